package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

type ConnectToPartyParams struct {
	ConnectionId string
	Username     string
	PartyId      string
}

type ConnectToPartyResponse struct {
	// PartyInactive is a requester-only signal: the party does not exist,
	// or the join carried no display name.
	PartyInactive bool
	// SelectedVideo and SharedPlayerState go to the requester only.
	// SharedPlayerState is nil for a fresh party still paused at 0.
	SelectedVideo     *Video
	SharedPlayerState *VideoPlayerState
	// Members and Messages are broadcast to every member over Conns.
	Members  []Member
	Messages []Message
	Conns    []*websocket.Conn
}

// ConnectToParty runs the join transition: verify the party exists, ensure a
// user record, add the user to the party, and gather everything the joiner
// and the rest of the party need to hear about it.
func (s *service) ConnectToParty(ctx context.Context, params *ConnectToPartyParams) (ConnectToPartyResponse, error) {
	unlock := s.lockParty(params.PartyId)
	defer unlock()

	exists, err := s.partyRepo.IsPartyExists(ctx, params.PartyId)
	if err != nil {
		return ConnectToPartyResponse{}, fmt.Errorf("failed to check if party exists: %w", err)
	}

	if !exists {
		return ConnectToPartyResponse{PartyInactive: true}, nil
	}

	var joinedMessage *party.Message
	if params.Username != "" {
		joinedMessage = &party.Message{
			Type:      MessageTypeSystem,
			PartyId:   params.PartyId,
			Username:  params.Username,
			Text:      fmt.Sprintf("%s joined the party", params.Username),
			Timestamp: time.Now().Unix(),
		}
	}

	// a nameless join is still recorded so a later name-setting cannot
	// produce a duplicate user record
	if _, err := s.createUser(ctx, params.ConnectionId, params.Username); err != nil {
		return ConnectToPartyResponse{}, err
	}

	if err := s.joinParty(ctx, params.ConnectionId, params.PartyId); err != nil {
		return ConnectToPartyResponse{}, err
	}

	if joinedMessage != nil {
		if err := s.partyRepo.AppendMessage(ctx, &party.AppendMessageParams{
			PartyId: params.PartyId,
			Message: *joinedMessage,
		}); err != nil {
			return ConnectToPartyResponse{}, fmt.Errorf("failed to append message: %w", err)
		}
	}

	p, err := s.partyRepo.GetParty(ctx, params.PartyId)
	if err != nil {
		return ConnectToPartyResponse{}, fmt.Errorf("failed to get party: %w", err)
	}

	members, err := s.getMembers(ctx, params.PartyId)
	if err != nil {
		return ConnectToPartyResponse{}, fmt.Errorf("failed to get member list: %w", err)
	}

	messages, err := s.getMessages(ctx, params.PartyId)
	if err != nil {
		return ConnectToPartyResponse{}, fmt.Errorf("failed to get messages: %w", err)
	}

	conns, err := s.getConnsByPartyId(ctx, params.PartyId)
	if err != nil {
		return ConnectToPartyResponse{}, fmt.Errorf("failed to get conns by party id: %w", err)
	}

	resp := ConnectToPartyResponse{
		PartyInactive: params.Username == "",
		Members:       members,
		Messages:      messages,
		Conns:         conns,
	}

	selectedVideo := selectedVideoOf(p)
	resp.SelectedVideo = &selectedVideo

	// a fresh party paused at 0 is omitted to spare the joiner a
	// redundant snapshot
	if p.TimeInVideo != 0 {
		sharedState := sharedPlayerStateOf(p)
		resp.SharedPlayerState = &sharedState
	}

	return resp, nil
}

type DisconnectFromPartyParams struct {
	ConnectionId string
}

type DisconnectFromPartyResponse struct {
	PartyId string
	Members []Member
	Conns   []*websocket.Conn
}

// DisconnectFromParty removes the user from whatever party it belongs to.
// The departing user drops out of the readiness set immediately, so it can
// never hold up a resume it is no longer part of.
func (s *service) DisconnectFromParty(ctx context.Context, params *DisconnectFromPartyParams) (DisconnectFromPartyResponse, error) {
	user, err := s.partyRepo.GetUser(ctx, params.ConnectionId)
	if err != nil {
		if errors.Is(err, party.ErrUserNotFound) {
			return DisconnectFromPartyResponse{}, nil
		}

		return DisconnectFromPartyResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PartyId == "" {
		return DisconnectFromPartyResponse{}, nil
	}

	unlock := s.lockParty(user.PartyId)
	defer unlock()

	if err := s.leaveParty(ctx, params.ConnectionId, user.PartyId); err != nil {
		return DisconnectFromPartyResponse{}, err
	}

	members, err := s.getMembers(ctx, user.PartyId)
	if err != nil {
		return DisconnectFromPartyResponse{}, fmt.Errorf("failed to get member list: %w", err)
	}

	if len(members) == 0 {
		if err := s.partyRepo.RemoveParty(ctx, user.PartyId); err != nil {
			return DisconnectFromPartyResponse{}, fmt.Errorf("failed to remove party: %w", err)
		}

		s.logger.InfoContext(ctx, "empty party removed", "party_id", user.PartyId)

		return DisconnectFromPartyResponse{PartyId: user.PartyId}, nil
	}

	conns, err := s.getConnsByPartyId(ctx, user.PartyId)
	if err != nil {
		return DisconnectFromPartyResponse{}, fmt.Errorf("failed to get conns by party id: %w", err)
	}

	return DisconnectFromPartyResponse{
		PartyId: user.PartyId,
		Members: members,
		Conns:   conns,
	}, nil
}

type RemoveUserParams struct {
	ConnectionId string
}

// RemoveUser tears down a user's record entirely after its connection is
// gone, leaving its party first.
func (s *service) RemoveUser(ctx context.Context, params *RemoveUserParams) error {
	if _, err := s.DisconnectFromParty(ctx, &DisconnectFromPartyParams{
		ConnectionId: params.ConnectionId,
	}); err != nil {
		return err
	}

	if err := s.partyRepo.RemoveUser(ctx, params.ConnectionId); err != nil {
		if errors.Is(err, party.ErrUserNotFound) {
			return nil
		}

		return fmt.Errorf("failed to remove user: %w", err)
	}

	return nil
}
