package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

type SendMessageToPartyParams struct {
	ConnectionId string
	PartyId      string
	Text         string
}

type SendMessageToPartyResponse struct {
	// Messages is the full log, resent to every member. Deliberate
	// simplicity/bandwidth tradeoff: logs are small and infrequent, and a
	// future delta sync only has to touch this one spot.
	Messages []Message
	Conns    []*websocket.Conn
}

// SendMessageToParty appends a chat message to the party's log and returns
// the full log for broadcast.
func (s *service) SendMessageToParty(ctx context.Context, params *SendMessageToPartyParams) (SendMessageToPartyResponse, error) {
	unlock := s.lockParty(params.PartyId)
	defer unlock()

	user, err := s.partyRepo.GetUser(ctx, params.ConnectionId)
	if err != nil {
		if errors.Is(err, party.ErrUserNotFound) {
			return SendMessageToPartyResponse{}, ErrUserNotFound
		}

		return SendMessageToPartyResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PartyId != params.PartyId {
		return SendMessageToPartyResponse{}, ErrPartyNotFound
	}

	if err := s.partyRepo.AppendMessage(ctx, &party.AppendMessageParams{
		PartyId: params.PartyId,
		Message: party.Message{
			Type:      MessageTypeChat,
			PartyId:   params.PartyId,
			Username:  user.Username,
			Text:      params.Text,
			Timestamp: time.Now().Unix(),
		},
	}); err != nil {
		return SendMessageToPartyResponse{}, fmt.Errorf("failed to append message: %w", err)
	}

	messages, err := s.getMessages(ctx, params.PartyId)
	if err != nil {
		return SendMessageToPartyResponse{}, fmt.Errorf("failed to get messages: %w", err)
	}

	conns, err := s.getConnsByPartyId(ctx, params.PartyId)
	if err != nil {
		return SendMessageToPartyResponse{}, fmt.Errorf("failed to get conns by party id: %w", err)
	}

	return SendMessageToPartyResponse{
		Messages: messages,
		Conns:    conns,
	}, nil
}
