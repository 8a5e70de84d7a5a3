package controller

import (
	"context"

	"github.com/gorilla/websocket"
)

// Output is the envelope for every server-to-client message.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// outbound action types, mirrored by the client
const (
	actionSetClientId          = "SET_CLIENT_ID"
	actionSetPartyState        = "SET_PARTY_STATE"
	actionSetSelectedVideo     = "SET_SELECTED_VIDEO"
	actionSetPartyPlayerState  = "SET_PARTY_PLAYER_STATE"
	actionSetUsersInParty      = "SET_USERS_IN_PARTY"
	actionPartyMessageReceived = "PARTY_MESSAGE_RECEIVED"
)

const partyStateInactive = "inactive"

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	return conn.WriteJSON(output)
}

// broadcast writes the output to every connection. A single dead connection
// must not keep the rest of the party from hearing the message, so write
// errors are logged and skipped.
func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	for _, conn := range conns {
		if err := conn.WriteJSON(output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}
