package redis

import (
	"context"
	"fmt"

	"github.com/couchparty/server/internal/repository/party"
)

func (r repo) getMemberListKey(partyId string) string {
	return "party:" + partyId + ":memberlist"
}

func (r repo) AddMemberToList(ctx context.Context, params *party.AddMemberToListParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	memberListKey := r.getMemberListKey(params.PartyId)

	// insertion order is kept via a monotonically increasing zset score
	r.addWithIncrement(ctx, r.rc, memberListKey, params.MemberId)
	r.rc.Expire(ctx, memberListKey, r.expireDuration)

	return nil
}

func (r repo) RemoveMemberFromList(ctx context.Context, params *party.RemoveMemberFromListParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.ZRem(ctx, r.getMemberListKey(params.PartyId), params.MemberId).Err(); err != nil {
		return fmt.Errorf("failed to remove member from list: %w", err)
	}

	return nil
}

func (r repo) GetMemberIds(ctx context.Context, partyId string) ([]string, error) {
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(partyId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return memberIds, nil
}
