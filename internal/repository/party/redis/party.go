package redis

import (
	"context"
	"fmt"

	"github.com/couchparty/server/internal/repository/party"
)

func (r repo) getPartyKey(partyId string) string {
	return "party:" + partyId
}

func (r repo) SetParty(ctx context.Context, params *party.SetPartyParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	p := party.Party{
		VideoId:                  params.VideoId,
		VideoTitle:               params.VideoTitle,
		VideoAuthorName:          params.VideoAuthorName,
		VideoThumbnailUrl:        params.VideoThumbnailUrl,
		PlayerState:              params.PlayerState,
		TimeInVideo:              params.TimeInVideo,
		LastStateChangeInitiator: params.LastStateChangeInitiator,
		WaitingForReady:          false,
		ControllerId:             params.ControllerId,
	}

	partyKey := r.getPartyKey(params.PartyId)
	if err := r.rc.HSet(ctx, partyKey, p).Err(); err != nil {
		return fmt.Errorf("failed to set party: %w", err)
	}

	r.rc.Expire(ctx, partyKey, r.expireDuration)

	return nil
}

func (r repo) IsPartyExists(ctx context.Context, partyId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getPartyKey(partyId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if party exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetParty(ctx context.Context, partyId string) (party.Party, error) {
	partyKey := r.getPartyKey(partyId)
	res, err := r.rc.Exists(ctx, partyKey).Result()
	if err != nil {
		return party.Party{}, fmt.Errorf("failed to get party: %w", err)
	}

	if res == 0 {
		return party.Party{}, party.ErrPartyNotFound
	}

	var p party.Party
	if err := r.rc.HGetAll(ctx, partyKey).Scan(&p); err != nil {
		return party.Party{}, fmt.Errorf("failed to get party: %w", err)
	}

	r.rc.Expire(ctx, partyKey, r.expireDuration)

	return p, nil
}

func (r repo) UpdatePartyPlayerState(ctx context.Context, params *party.UpdatePartyPlayerStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	partyKey := r.getPartyKey(params.PartyId)
	cmd := r.rc.Exists(ctx, partyKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return party.ErrPartyNotFound
	}

	if err := r.rc.HSet(ctx, partyKey,
		"player_state", params.PlayerState,
		"time_in_video", params.TimeInVideo,
		"last_state_change_initiator", params.LastStateChangeInitiator,
		"controller_id", params.ControllerId,
	).Err(); err != nil {
		return fmt.Errorf("failed to update party player state: %w", err)
	}

	r.rc.Expire(ctx, partyKey, r.expireDuration)

	return nil
}

func (r repo) UpdatePartyWaitingForReady(ctx context.Context, params *party.UpdatePartyWaitingForReadyParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	partyKey := r.getPartyKey(params.PartyId)
	cmd := r.rc.Exists(ctx, partyKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return party.ErrPartyNotFound
	}

	if err := r.rc.HSet(ctx, partyKey, "waiting_for_ready", params.WaitingForReady).Err(); err != nil {
		return fmt.Errorf("failed to update party waiting for ready: %w", err)
	}

	return nil
}

func (r repo) RemoveParty(ctx context.Context, partyId string) error {
	r.logger.DebugContext(ctx, "called", "party_id", partyId)
	pipe := r.rc.TxPipeline()

	pipe.Del(ctx, r.getPartyKey(partyId))
	pipe.Del(ctx, r.getMemberListKey(partyId))
	pipe.Del(ctx, r.getMessageListKey(partyId))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove party: %w", err)
	}

	return nil
}
