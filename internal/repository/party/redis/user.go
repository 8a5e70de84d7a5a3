package redis

import (
	"context"
	"fmt"

	"github.com/couchparty/server/internal/repository/party"
)

func (r repo) getUserKey(userId string) string {
	return "user:" + userId
}

func (r repo) SetUser(ctx context.Context, params *party.SetUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	user := party.User{
		Username: params.Username,
	}

	userKey := r.getUserKey(params.UserId)
	if err := r.rc.HSet(ctx, userKey, user).Err(); err != nil {
		return fmt.Errorf("failed to set user: %w", err)
	}

	r.rc.Expire(ctx, userKey, r.expireDuration)

	return nil
}

func (r repo) IsUserExists(ctx context.Context, userId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getUserKey(userId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if user exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetUser(ctx context.Context, userId string) (party.User, error) {
	userKey := r.getUserKey(userId)
	res, err := r.rc.Exists(ctx, userKey).Result()
	if err != nil {
		return party.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if res == 0 {
		return party.User{}, party.ErrUserNotFound
	}

	var user party.User
	if err := r.rc.HGetAll(ctx, userKey).Scan(&user); err != nil {
		return party.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r repo) UpdateUserUsername(ctx context.Context, params *party.UpdateUserUsernameParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.HSet(ctx, r.getUserKey(params.UserId), "username", params.Username).Err(); err != nil {
		return fmt.Errorf("failed to update user username: %w", err)
	}

	return nil
}

func (r repo) UpdateUserPartyId(ctx context.Context, params *party.UpdateUserPartyIdParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.HSet(ctx, r.getUserKey(params.UserId), "party_id", params.PartyId).Err(); err != nil {
		return fmt.Errorf("failed to update user party id: %w", err)
	}

	return nil
}

func (r repo) UpdateUserPlayerState(ctx context.Context, params *party.UpdateUserPlayerStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	userKey := r.getUserKey(params.UserId)
	cmd := r.rc.Exists(ctx, userKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return party.ErrUserNotFound
	}

	if err := r.rc.HSet(ctx, userKey,
		"player_state", params.PlayerState,
		"time_in_video", params.TimeInVideo,
		"last_state_change_initiator", params.LastStateChangeInitiator,
	).Err(); err != nil {
		return fmt.Errorf("failed to update user player state: %w", err)
	}

	r.rc.Expire(ctx, userKey, r.expireDuration)

	return nil
}

func (r repo) RemoveUser(ctx context.Context, userId string) error {
	r.logger.DebugContext(ctx, "called", "user_id", userId)
	res, err := r.rc.Del(ctx, r.getUserKey(userId)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	if res == 0 {
		return party.ErrUserNotFound
	}

	return nil
}
