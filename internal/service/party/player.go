package party

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

type SetVideoPlayerStateParams struct {
	ConnectionId string
	PartyId      string
	PlayerState  PlayerState
	TimeInVideo  float64
}

type SetVideoPlayerStateResponse struct {
	// SharedPlayerState is set when the report was authorized and valid
	// and therefore became the party's shared state.
	SharedPlayerState *VideoPlayerState
	// ResumedPlayerState is set when this report satisfied the readiness
	// gate: every member stopped buffering, so the whole party resumes.
	ResumedPlayerState *VideoPlayerState
	Conns              []*websocket.Conn
}

// SetVideoPlayerState runs the local-state-report transition. The report is
// recorded unconditionally; whether it also becomes the shared state depends
// on authorization and on it being a genuine transition. The readiness gate
// is evaluated on every report regardless of that outcome.
func (s *service) SetVideoPlayerState(ctx context.Context, params *SetVideoPlayerStateParams) (SetVideoPlayerStateResponse, error) {
	unlock := s.lockParty(params.PartyId)
	defer unlock()

	newState := VideoPlayerState{
		PlayerState:              params.PlayerState,
		TimeInVideo:              normalizeTime(params.TimeInVideo),
		LastStateChangeInitiator: params.ConnectionId,
	}

	if err := s.partyRepo.UpdateUserPlayerState(ctx, &party.UpdateUserPlayerStateParams{
		UserId:                   params.ConnectionId,
		PlayerState:              string(newState.PlayerState),
		TimeInVideo:              newState.TimeInVideo,
		LastStateChangeInitiator: newState.LastStateChangeInitiator,
	}); err != nil {
		if errors.Is(err, party.ErrUserNotFound) {
			return SetVideoPlayerStateResponse{}, nil
		}

		return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to update user player state: %w", err)
	}

	p, err := s.partyRepo.GetParty(ctx, params.PartyId)
	if err != nil {
		if errors.Is(err, party.ErrPartyNotFound) {
			return SetVideoPlayerStateResponse{}, nil
		}

		return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to get party: %w", err)
	}

	user, err := s.partyRepo.GetUser(ctx, params.ConnectionId)
	if err != nil {
		return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	memberIds, err := s.partyRepo.GetMemberIds(ctx, params.PartyId)
	if err != nil {
		return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	var resp SetVideoPlayerStateResponse

	// an unauthorized or stale report is silently ignored beyond the local
	// bookkeeping above
	if s.isAuthorizedToDriveParty(params.ConnectionId, user, p, memberIds) &&
		s.isValidNewPlayerState(p, newState) {
		if err := s.partyRepo.UpdatePartyPlayerState(ctx, &party.UpdatePartyPlayerStateParams{
			PartyId:                  params.PartyId,
			PlayerState:              string(newState.PlayerState),
			TimeInVideo:              newState.TimeInVideo,
			LastStateChangeInitiator: newState.LastStateChangeInitiator,
			ControllerId:             params.ConnectionId,
		}); err != nil {
			return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to update party player state: %w", err)
		}

		if newState.PlayerState == PlayerStateBuffering {
			if err := s.partyRepo.UpdatePartyWaitingForReady(ctx, &party.UpdatePartyWaitingForReadyParams{
				PartyId:         params.PartyId,
				WaitingForReady: true,
			}); err != nil {
				return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to update party waiting for ready: %w", err)
			}
		}

		s.logger.InfoContext(ctx, "party player state updated",
			"party_id", params.PartyId,
			"player_state", newState.PlayerState,
			"time_in_video", newState.TimeInVideo,
			"initiator", params.ConnectionId,
		)

		resp.SharedPlayerState = &newState
		p.PlayerState = string(newState.PlayerState)
		p.TimeInVideo = newState.TimeInVideo
		p.LastStateChangeInitiator = newState.LastStateChangeInitiator
		p.ControllerId = params.ConnectionId
		p.WaitingForReady = p.WaitingForReady || newState.PlayerState == PlayerStateBuffering
	}

	resumedState, err := s.evaluateReadinessGate(ctx, params.PartyId, p, memberIds)
	if err != nil {
		return SetVideoPlayerStateResponse{}, err
	}
	resp.ResumedPlayerState = resumedState

	if resp.SharedPlayerState != nil || resp.ResumedPlayerState != nil {
		conns, err := s.getConnsByPartyId(ctx, params.PartyId)
		if err != nil {
			return SetVideoPlayerStateResponse{}, fmt.Errorf("failed to get conns by party id: %w", err)
		}

		resp.Conns = conns
	}

	return resp, nil
}

// isValidNewPlayerState accepts only genuine transitions: a report that
// matches the current shared state after normalization is a duplicate and
// must not re-broadcast. While the party is waiting for everyone to finish
// buffering, PLAYING can only be reached through the readiness gate, never
// by an individual report.
func (s *service) isValidNewPlayerState(p party.Party, newState VideoPlayerState) bool {
	if p.WaitingForReady && newState.PlayerState == PlayerStatePlaying {
		return false
	}

	return string(newState.PlayerState) != p.PlayerState ||
		newState.TimeInVideo != p.TimeInVideo
}

// evaluateReadinessGate resumes playback once the party was waiting and no
// member reports BUFFERING anymore. Resumption is a quorum condition over
// the membership set, not an individual action: whoever requested the pause
// has no say in who unblocks it.
func (s *service) evaluateReadinessGate(ctx context.Context, partyId string, p party.Party, memberIds []string) (*VideoPlayerState, error) {
	if !p.WaitingForReady {
		return nil, nil
	}

	allReady, err := s.allMembersReady(ctx, memberIds)
	if err != nil {
		return nil, err
	}

	if !allReady {
		return nil, nil
	}

	if err := s.partyRepo.UpdatePartyWaitingForReady(ctx, &party.UpdatePartyWaitingForReadyParams{
		PartyId:         partyId,
		WaitingForReady: false,
	}); err != nil {
		return nil, fmt.Errorf("failed to update party waiting for ready: %w", err)
	}

	resumedState := VideoPlayerState{
		PlayerState:              PlayerStatePlaying,
		TimeInVideo:              p.TimeInVideo,
		LastStateChangeInitiator: p.LastStateChangeInitiator,
	}
	if err := s.partyRepo.UpdatePartyPlayerState(ctx, &party.UpdatePartyPlayerStateParams{
		PartyId:                  partyId,
		PlayerState:              string(resumedState.PlayerState),
		TimeInVideo:              resumedState.TimeInVideo,
		LastStateChangeInitiator: resumedState.LastStateChangeInitiator,
		ControllerId:             p.ControllerId,
	}); err != nil {
		return nil, fmt.Errorf("failed to update party player state: %w", err)
	}

	s.logger.InfoContext(ctx, "party resumed, all members ready", "party_id", partyId)

	return &resumedState, nil
}

func (s *service) allMembersReady(ctx context.Context, memberIds []string) (bool, error) {
	for _, memberId := range memberIds {
		user, err := s.partyRepo.GetUser(ctx, memberId)
		if err != nil {
			return false, fmt.Errorf("failed to get user: %w", err)
		}

		if user.PlayerState == string(PlayerStateBuffering) {
			return false, nil
		}
	}

	return true, nil
}
