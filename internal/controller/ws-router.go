package controller

import (
	"context"

	"github.com/couchparty/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// party
	mux.Handle("WS_TO_SERVER_CONNECT_TO_PARTY", c.handleConnectToParty)
	mux.Handle("WS_TO_SERVER_DISCONNECT_FROM_PARTY", c.handleDisconnectFromParty)

	// player
	mux.Handle("WS_TO_SERVER_SET_VIDEO_PLAYER_STATE", c.handleSetVideoPlayerState)

	// video
	mux.Handle("WS_TO_SERVER_SET_SELECTED_VIDEO", c.handleSetSelectedVideo)

	// chat
	mux.Handle("WS_TO_SERVER_SEND_MESSAGE_TO_PARTY", c.handleSendMessageToParty)

	mux.OnError(func(ctx context.Context, err error) {
		c.logger.InfoContext(ctx, "websocket handler error",
			"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
			"error", err,
		)
	})

	return mux
}
