package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultInboxSize = 100

// ListSink keeps a capped per-account inbox in a Redis list, newest first.
type ListSink struct {
	Client *redis.Client
	Max    int64
}

func InboxKey(side domain.Side, accountID uuid.UUID) string {
	return fmt.Sprintf("inbox:%s:%s", side, accountID)
}

func (s *ListSink) max() int64 {
	if s.Max > 0 {
		return s.Max
	}
	return defaultInboxSize
}

func (s *ListSink) Notify(ctx context.Context, ev Event) error {
	if s == nil || s.Client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pipe := s.Client.TxPipeline()
	for _, r := range ev.Recipients() {
		key := InboxKey(r.Side, r.AccountID)
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, s.max()-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Inbox returns up to limit recent events addressed to the account.
func (s *ListSink) Inbox(ctx context.Context, side domain.Side, accountID uuid.UUID, limit int64) ([]Event, error) {
	if s == nil || s.Client == nil {
		return []Event{}, nil
	}
	if limit <= 0 || limit > s.max() {
		limit = s.max()
	}
	raw, err := s.Client.LRange(ctx, InboxKey(side, accountID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
