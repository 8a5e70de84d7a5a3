package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchparty/server/internal/repository/party"
)

func (r repo) getMessageListKey(partyId string) string {
	return "party:" + partyId + ":messages"
}

func (r repo) AppendMessage(ctx context.Context, params *party.AppendMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	raw, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	messageListKey := r.getMessageListKey(params.PartyId)
	if err := r.rc.RPush(ctx, messageListKey, raw).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	r.rc.Expire(ctx, messageListKey, r.expireDuration)

	return nil
}

func (r repo) GetMessages(ctx context.Context, partyId string) ([]party.Message, error) {
	rawMessages, err := r.rc.LRange(ctx, r.getMessageListKey(partyId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]party.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var message party.Message
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}
