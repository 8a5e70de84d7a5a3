package wsrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnPair(t *testing.T, router *WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		router.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestDispatch(t *testing.T) {
	router := New()

	handled := make(chan string, 1)
	router.Handle("PING", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input struct {
			Value string `json:"value"`
		}
		require.NoError(t, json.Unmarshal(payload, &input))
		handled <- input.Value

		return conn.WriteJSON(map[string]string{"type": "PONG"})
	})

	client := newConnPair(t, router)

	require.NoError(t, client.WriteJSON(map[string]any{
		"type":    "PING",
		"payload": map[string]string{"value": "hello"},
	}))

	var reply map[string]string
	require.NoError(t, client.ReadJSON(&reply))
	assert.Equal(t, "PONG", reply["type"])
	assert.Equal(t, "hello", <-handled)
}

func TestMessageTypeInContext(t *testing.T) {
	router := New()

	router.Handle("PING", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		return conn.WriteJSON(map[string]string{"type": GetMessageTypeFromCtx(ctx)})
	})

	client := newConnPair(t, router)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "PING"}))

	var reply map[string]string
	require.NoError(t, client.ReadJSON(&reply))
	assert.Equal(t, "PING", reply["type"])
}

func TestUnknownMessageType(t *testing.T) {
	router := New()
	client := newConnPair(t, router)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "NOPE"}))

	var reply map[string]string
	require.NoError(t, client.ReadJSON(&reply))
	assert.Equal(t, "unknown message type", reply["error"])
}

func TestHandlerErrorReported(t *testing.T) {
	router := New()

	router.Handle("BOOM", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		return assert.AnError
	})

	errs := make(chan error, 1)
	router.OnError(func(ctx context.Context, err error) {
		errs <- err
	})

	client := newConnPair(t, router)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "BOOM"}))
	assert.ErrorIs(t, <-errs, assert.AnError)
}
