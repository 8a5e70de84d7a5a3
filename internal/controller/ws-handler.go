package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/service/party"
	"github.com/couchparty/server/pkg/ctxlogger"
	"github.com/couchparty/server/pkg/videodata"
)

// serveWS upgrades the request, assigns the connection its process-wide id,
// and pumps inbound messages until the connection drops. On drop the user is
// removed from its party and its record is torn down.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	connectionId := uuid.NewString()
	ctx := context.WithValue(r.Context(), connectionIdCtxKey, connectionId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("connection_id", connectionId))

	if err := c.partyService.ConnectClient(ctx, &party.ConnectClientParams{
		Conn:         conn,
		ConnectionId: connectionId,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to connect client", "error", err)
		return
	}
	defer c.disconnect(ctx, conn, connectionId)

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    actionSetClientId,
		Payload: connectionId,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to write client id", "error", err)
		return
	}

	c.logger.InfoContext(ctx, "client connected")

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, conn *websocket.Conn, connectionId string) {
	disconnectResp, err := c.partyService.DisconnectFromParty(ctx, &party.DisconnectFromPartyParams{
		ConnectionId: connectionId,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect from party", "error", err)
	} else if disconnectResp.PartyId != "" {
		c.broadcast(ctx, disconnectResp.Conns, &Output{
			Type:    actionSetUsersInParty,
			Payload: disconnectResp.Members,
		})
	}

	if err := c.partyService.RemoveUser(ctx, &party.RemoveUserParams{ConnectionId: connectionId}); err != nil {
		c.logger.WarnContext(ctx, "failed to remove user", "error", err)
	}

	if err := c.partyService.DisconnectClient(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "failed to disconnect client", "error", err)
	}

	c.logger.InfoContext(ctx, "client disconnected")
}

func (c controller) decode(payload json.RawMessage, input any) error {
	if err := json.Unmarshal(payload, input); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationError, err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, validationErrors)
	}

	return nil
}

type ConnectToPartyInput struct {
	Username string `json:"userName" validate:"omitempty,max=32"`
	PartyId  string `json:"partyId" validate:"required,max=64"`
}

func (c controller) handleConnectToParty(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input ConnectToPartyInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	connectToPartyResp, err := c.partyService.ConnectToParty(ctx, &party.ConnectToPartyParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Username:     input.Username,
		PartyId:      input.PartyId,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to party: %w", err)
	}

	if connectToPartyResp.PartyInactive {
		if err := c.writeToConn(ctx, conn, &Output{
			Type:    actionSetPartyState,
			Payload: partyStateInactive,
		}); err != nil {
			return fmt.Errorf("failed to write party state: %w", err)
		}
	}

	if connectToPartyResp.SelectedVideo == nil {
		return nil
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    actionSetSelectedVideo,
		Payload: connectToPartyResp.SelectedVideo,
	}); err != nil {
		return fmt.Errorf("failed to write selected video: %w", err)
	}

	if connectToPartyResp.SharedPlayerState != nil {
		if err := c.writeToConn(ctx, conn, &Output{
			Type:    actionSetPartyPlayerState,
			Payload: connectToPartyResp.SharedPlayerState,
		}); err != nil {
			return fmt.Errorf("failed to write party player state: %w", err)
		}
	}

	if err := c.broadcast(ctx, connectToPartyResp.Conns, &Output{
		Type:    actionSetUsersInParty,
		Payload: connectToPartyResp.Members,
	}); err != nil {
		return fmt.Errorf("failed to broadcast users in party: %w", err)
	}

	if err := c.broadcast(ctx, connectToPartyResp.Conns, &Output{
		Type:    actionPartyMessageReceived,
		Payload: connectToPartyResp.Messages,
	}); err != nil {
		return fmt.Errorf("failed to broadcast party messages: %w", err)
	}

	return nil
}

func (c controller) handleDisconnectFromParty(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	disconnectResp, err := c.partyService.DisconnectFromParty(ctx, &party.DisconnectFromPartyParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to disconnect from party: %w", err)
	}

	if disconnectResp.PartyId == "" {
		return nil
	}

	if err := c.broadcast(ctx, disconnectResp.Conns, &Output{
		Type:    actionSetUsersInParty,
		Payload: disconnectResp.Members,
	}); err != nil {
		return fmt.Errorf("failed to broadcast users in party: %w", err)
	}

	return nil
}

type SetVideoPlayerStateInput struct {
	PlayerState string  `json:"playerState" validate:"required,oneof=PLAYING PAUSED BUFFERING"`
	TimeInVideo float64 `json:"timeInVideo" validate:"min=0"`
	PartyId     string  `json:"partyId" validate:"required,max=64"`
}

func (c controller) handleSetVideoPlayerState(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SetVideoPlayerStateInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	setPlayerStateResp, err := c.partyService.SetVideoPlayerState(ctx, &party.SetVideoPlayerStateParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		PartyId:      input.PartyId,
		PlayerState:  party.PlayerState(input.PlayerState),
		TimeInVideo:  input.TimeInVideo,
	})
	if err != nil {
		return fmt.Errorf("failed to set video player state: %w", err)
	}

	if setPlayerStateResp.SharedPlayerState != nil {
		if err := c.broadcast(ctx, setPlayerStateResp.Conns, &Output{
			Type:    actionSetPartyPlayerState,
			Payload: setPlayerStateResp.SharedPlayerState,
		}); err != nil {
			return fmt.Errorf("failed to broadcast party player state: %w", err)
		}
	}

	if setPlayerStateResp.ResumedPlayerState != nil {
		if err := c.broadcast(ctx, setPlayerStateResp.Conns, &Output{
			Type:    actionSetPartyPlayerState,
			Payload: setPlayerStateResp.ResumedPlayerState,
		}); err != nil {
			return fmt.Errorf("failed to broadcast resumed player state: %w", err)
		}
	}

	return nil
}

type SetSelectedVideoInput struct {
	PartyId string `json:"partyId" validate:"required,max=64"`
	VideoId string `json:"videoId" validate:"required,max=64"`
	Title   string `json:"title" validate:"omitempty,max=256"`
}

func (c controller) handleSetSelectedVideo(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SetSelectedVideoInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	video := party.Video{
		Id:    input.VideoId,
		Title: input.Title,
	}

	// metadata lookup is best-effort: a provider outage must not keep the
	// party from selecting the video
	if data, err := videodata.Get(input.VideoId); err != nil {
		c.logger.InfoContext(ctx, "failed to get video data", "video_id", input.VideoId, "error", err)
	} else {
		if data.Title != "" {
			video.Title = data.Title
		}
		video.AuthorName = data.AuthorName
		video.ThumbnailUrl = data.ThumbnailUrl
	}

	selectVideoResp, err := c.partyService.SelectVideo(ctx, &party.SelectVideoParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		PartyId:      input.PartyId,
		Video:        video,
	})
	if err != nil {
		return fmt.Errorf("failed to select video: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    actionSetSelectedVideo,
		Payload: selectVideoResp.SelectedVideo,
	}); err != nil {
		return fmt.Errorf("failed to write selected video: %w", err)
	}

	// the selector may not have joined the party yet, so it is written to
	// directly above and excluded from the member broadcast
	memberConns := make([]*websocket.Conn, 0, len(selectVideoResp.Conns))
	for _, memberConn := range selectVideoResp.Conns {
		if memberConn != conn {
			memberConns = append(memberConns, memberConn)
		}
	}

	if err := c.broadcast(ctx, memberConns, &Output{
		Type:    actionSetSelectedVideo,
		Payload: selectVideoResp.SelectedVideo,
	}); err != nil {
		return fmt.Errorf("failed to broadcast selected video: %w", err)
	}

	return nil
}

type SendMessageToPartyInput struct {
	PartyId string `json:"partyId" validate:"required,max=64"`
	Message string `json:"message" validate:"required,max=500"`
}

func (c controller) handleSendMessageToParty(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var input SendMessageToPartyInput
	if err := c.decode(payload, &input); err != nil {
		return err
	}

	sendMessageResp, err := c.partyService.SendMessageToParty(ctx, &party.SendMessageToPartyParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		PartyId:      input.PartyId,
		Text:         input.Message,
	})
	if err != nil {
		if errors.Is(err, party.ErrPartyNotFound) || errors.Is(err, party.ErrUserNotFound) {
			return c.writeToConn(ctx, conn, &Output{
				Type:    actionSetPartyState,
				Payload: partyStateInactive,
			})
		}

		return fmt.Errorf("failed to send message to party: %w", err)
	}

	if err := c.broadcast(ctx, sendMessageResp.Conns, &Output{
		Type:    actionPartyMessageReceived,
		Payload: sendMessageResp.Messages,
	}); err != nil {
		return fmt.Errorf("failed to broadcast party messages: %w", err)
	}

	return nil
}
