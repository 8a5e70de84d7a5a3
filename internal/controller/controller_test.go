package controller

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchparty/server/internal/repository/connection/inmemory"
	partyRedis "github.com/couchparty/server/internal/repository/party/redis"
	"github.com/couchparty/server/internal/service/party"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	partyRepo := partyRedis.NewRepo(r, slog.Default(), time.Hour)
	connRepo := inmemory.NewRepo()
	partyService := party.NewService(partyRepo, connRepo, slog.Default())
	c := NewController(partyService, slog.Default())

	server := httptest.NewServer(c.GetMux())
	t.Cleanup(server.Close)

	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readOutput(t *testing.T, conn *websocket.Conn) Output {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var output Output
	require.NoError(t, conn.ReadJSON(&output))

	return output
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientIdAssignedOnConnect(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server)

	output := readOutput(t, conn)
	assert.Equal(t, "SET_CLIENT_ID", output.Type)
	assert.NotEmpty(t, output.Payload)
}

func TestConnectToUnknownParty(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server)
	readOutput(t, conn) // SET_CLIENT_ID

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "WS_TO_SERVER_CONNECT_TO_PARTY",
		"payload": map[string]string{
			"userName": "Alice",
			"partyId":  "abc",
		},
	}))

	output := readOutput(t, conn)
	assert.Equal(t, "SET_PARTY_STATE", output.Type)
	assert.Equal(t, "inactive", output.Payload)
}

func TestMessageToUnknownParty(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server)
	readOutput(t, conn) // SET_CLIENT_ID

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "WS_TO_SERVER_SEND_MESSAGE_TO_PARTY",
		"payload": map[string]string{
			"partyId": "abc",
			"message": "anyone here?",
		},
	}))

	output := readOutput(t, conn)
	assert.Equal(t, "SET_PARTY_STATE", output.Type)
	assert.Equal(t, "inactive", output.Payload)
}
