package party

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchparty/server/internal/repository/connection/inmemory"
	partyRedis "github.com/couchparty/server/internal/repository/party/redis"
)

func newTestService(t *testing.T) (*service, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	r := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	partyRepo := partyRedis.NewRepo(r, slog.Default(), time.Hour)
	connRepo := inmemory.NewRepo()

	return NewService(partyRepo, connRepo, slog.Default()), s
}

func connectClient(t *testing.T, s *service, connectionId string) *websocket.Conn {
	t.Helper()

	conn := &websocket.Conn{}
	require.NoError(t, s.ConnectClient(context.Background(), &ConnectClientParams{
		Conn:         conn,
		ConnectionId: connectionId,
	}))

	return conn
}

// selectVideo brings the party into existence the way a client would, by
// selecting a video for it.
func selectVideo(t *testing.T, s *service, connectionId, partyId string) Video {
	t.Helper()

	video := Video{Id: "dQw4w9WgXcQ", Title: "some video", AuthorName: "some author"}
	_, err := s.SelectVideo(context.Background(), &SelectVideoParams{
		ConnectionId: connectionId,
		PartyId:      partyId,
		Video:        video,
	})
	require.NoError(t, err)

	return video
}

func TestConnectToUnknownPartyIsInactive(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "alice")

	resp, err := s.ConnectToParty(ctx, &ConnectToPartyParams{
		ConnectionId: "alice",
		Username:     "Alice",
		PartyId:      "abc",
	})
	require.NoError(t, err)
	assert.True(t, resp.PartyInactive, "party must be signaled inactive")
	assert.Nil(t, resp.SelectedVideo, "no video must be sent")
	assert.Nil(t, resp.SharedPlayerState, "no player state must be sent")
	assert.Empty(t, resp.Members, "no member list must be broadcast")
	assert.Empty(t, resp.Messages, "no messages must be broadcast")

	// membership must be unchanged
	disconnectResp, err := s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{ConnectionId: "alice"})
	require.NoError(t, err)
	assert.Empty(t, disconnectResp.PartyId, "user must not belong to any party")
}

func TestConnectToParty(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	video := selectVideo(t, s, "bob", "abc")

	// bob joins his own party
	bobResp, err := s.ConnectToParty(ctx, &ConnectToPartyParams{
		ConnectionId: "bob",
		Username:     "Bob",
		PartyId:      "abc",
	})
	require.NoError(t, err)
	assert.False(t, bobResp.PartyInactive)
	require.NotNil(t, bobResp.SelectedVideo)
	assert.Equal(t, video.Id, bobResp.SelectedVideo.Id)
	assert.Nil(t, bobResp.SharedPlayerState, "a fresh party paused at 0 sends no snapshot")
	assert.Equal(t, []Member{{Id: "bob", Username: "Bob"}}, bobResp.Members)
	require.Len(t, bobResp.Messages, 1)
	assert.Equal(t, MessageTypeSystem, bobResp.Messages[0].Type)
	assert.Equal(t, "Bob joined the party", bobResp.Messages[0].Text)
	assert.Len(t, bobResp.Conns, 1)

	// move the shared state off zero so the next joiner gets a snapshot
	stateResp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStatePaused,
		TimeInVideo:  42.0,
	})
	require.NoError(t, err)
	require.NotNil(t, stateResp.SharedPlayerState)

	connectClient(t, s, "alice")
	aliceResp, err := s.ConnectToParty(ctx, &ConnectToPartyParams{
		ConnectionId: "alice",
		Username:     "Alice",
		PartyId:      "abc",
	})
	require.NoError(t, err)
	assert.False(t, aliceResp.PartyInactive)
	require.NotNil(t, aliceResp.SelectedVideo)
	assert.Equal(t, video.Id, aliceResp.SelectedVideo.Id)
	require.NotNil(t, aliceResp.SharedPlayerState)
	assert.Equal(t, PlayerStatePaused, aliceResp.SharedPlayerState.PlayerState)
	assert.Equal(t, 42.0, aliceResp.SharedPlayerState.TimeInVideo)
	assert.Equal(t, []Member{
		{Id: "bob", Username: "Bob"},
		{Id: "alice", Username: "Alice"},
	}, aliceResp.Members, "member list order must follow insertion order")
	require.Len(t, aliceResp.Messages, 2)
	assert.Equal(t, "Alice joined the party", aliceResp.Messages[1].Text)
	assert.Len(t, aliceResp.Conns, 2, "join must broadcast to every member, not just the joiner")
}

func TestConnectWithoutUsername(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")

	connectClient(t, s, "ghost")
	resp, err := s.ConnectToParty(ctx, &ConnectToPartyParams{
		ConnectionId: "ghost",
		PartyId:      "abc",
	})
	require.NoError(t, err)
	assert.True(t, resp.PartyInactive, "a nameless join is signaled inactive")
	require.NotNil(t, resp.SelectedVideo, "the user is still admitted to the party")
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "ghost", resp.Members[0].Id)
	assert.Empty(t, resp.Messages, "no join message without a name")
}

func TestCreateUserIdempotent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")

	for i := 0; i < 2; i++ {
		resp, err := s.ConnectToParty(ctx, &ConnectToPartyParams{
			ConnectionId: "bob",
			Username:     "Bob",
			PartyId:      "abc",
		})
		require.NoError(t, err)
		assert.Equal(t, []Member{{Id: "bob", Username: "Bob"}}, resp.Members, "joining twice must not duplicate the user")
	}
}

func TestReadinessGate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	connectClient(t, s, "alice")
	_, err = s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "alice", Username: "Alice", PartyId: "abc"})
	require.NoError(t, err)

	// the controller starts buffering, pausing the whole party
	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStateBuffering,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SharedPlayerState)
	assert.Equal(t, PlayerStateBuffering, resp.SharedPlayerState.PlayerState)
	assert.Nil(t, resp.ResumedPlayerState)

	// alice is buffering too
	resp, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStateBuffering,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.ResumedPlayerState)

	// bob is done buffering, alice is not: no resume yet
	resp, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.SharedPlayerState, "playing cannot be reached while the party waits for ready")
	assert.Nil(t, resp.ResumedPlayerState)

	// alice is done buffering: the whole party resumes exactly once
	resp, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ResumedPlayerState)
	assert.Equal(t, PlayerStatePlaying, resp.ResumedPlayerState.PlayerState)
	assert.Equal(t, 10.0, resp.ResumedPlayerState.TimeInVideo)
	assert.Len(t, resp.Conns, 2, "resume must be broadcast to every member")

	// a repeated ready report must not resume again
	resp, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.ResumedPlayerState)
}

func TestUnauthorizedReportKeepsLocalState(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	connectClient(t, s, "alice")
	_, err = s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "alice", Username: "Alice", PartyId: "abc"})
	require.NoError(t, err)

	// bob is the controller; alice's report must not drive the party
	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  3.0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.SharedPlayerState, "unauthorized report must not become the shared state")

	assert.Equal(t, "PAUSED", mr.HGet("party:abc", "player_state"))
	assert.Equal(t, "PLAYING", mr.HGet("user:alice", "player_state"), "the local report is still recorded")
}

func TestControllerHandoverAfterDeparture(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	connectClient(t, s, "alice")
	_, err = s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "alice", Username: "Alice", PartyId: "abc"})
	require.NoError(t, err)

	_, err = s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{ConnectionId: "bob"})
	require.NoError(t, err)

	// with the controller gone, the first proposer takes over
	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  3.0,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SharedPlayerState)
	assert.Equal(t, "alice", resp.SharedPlayerState.LastStateChangeInitiator)
}

func TestTimeInVideoNormalization(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  12.3456,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SharedPlayerState)
	assert.Equal(t, 12.3, resp.SharedPlayerState.TimeInVideo)

	// a sub-decisecond wobble is not a state change and must not broadcast
	resp, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  12.3401,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.SharedPlayerState)
}

func TestDisconnectRemovesMembership(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	connectClient(t, s, "alice")
	_, err = s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "alice", Username: "Alice", PartyId: "abc"})
	require.NoError(t, err)

	resp, err := s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{ConnectionId: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.PartyId)
	assert.Equal(t, []Member{{Id: "bob", Username: "Bob"}}, resp.Members)

	// disconnecting again is a no-op
	resp, err = s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{ConnectionId: "alice"})
	require.NoError(t, err)
	assert.Empty(t, resp.PartyId)
}

func TestDepartingBufferingUserCannotHoldUpResume(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	connectClient(t, s, "alice")
	_, err = s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "alice", Username: "Alice", PartyId: "abc"})
	require.NoError(t, err)

	_, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStateBuffering,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)

	_, err = s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "alice",
		PartyId:      "abc",
		PlayerState:  PlayerStateBuffering,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)

	// alice leaves while still buffering; bob's next ready report resumes
	_, err = s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{ConnectionId: "alice"})
	require.NoError(t, err)

	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		PlayerState:  PlayerStatePaused,
		TimeInVideo:  10.0,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.ResumedPlayerState)
	assert.Equal(t, PlayerStatePlaying, resp.ResumedPlayerState.PlayerState)
}

func TestSendMessageToParty(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	connectClient(t, s, "bob")
	selectVideo(t, s, "bob", "abc")
	_, err := s.ConnectToParty(ctx, &ConnectToPartyParams{ConnectionId: "bob", Username: "Bob", PartyId: "abc"})
	require.NoError(t, err)

	resp, err := s.SendMessageToParty(ctx, &SendMessageToPartyParams{
		ConnectionId: "bob",
		PartyId:      "abc",
		Text:         "hello there",
	})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2, "the full log is resent, join message included")
	assert.Equal(t, MessageTypeSystem, resp.Messages[0].Type)
	assert.Equal(t, MessageTypeChat, resp.Messages[1].Type)
	assert.Equal(t, "hello there", resp.Messages[1].Text)
	assert.Equal(t, "Bob", resp.Messages[1].Username)
	assert.Len(t, resp.Conns, 1)

	// a stranger cannot post into the party
	connectClient(t, s, "mallory")
	_, err = s.SendMessageToParty(ctx, &SendMessageToPartyParams{
		ConnectionId: "mallory",
		PartyId:      "abc",
		Text:         "let me in",
	})
	assert.Error(t, err)
}

func TestReportForUnknownUserIsIgnored(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	resp, err := s.SetVideoPlayerState(ctx, &SetVideoPlayerStateParams{
		ConnectionId: "nobody",
		PartyId:      "abc",
		PlayerState:  PlayerStatePlaying,
		TimeInVideo:  1.0,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.SharedPlayerState)
	assert.Nil(t, resp.ResumedPlayerState)
}
