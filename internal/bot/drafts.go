// README: Per-chat conversation drafts kept in Redis with a TTL.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

const (
	draftKeyPrefix = "bot:draft:%d"
	draftTTL       = 30 * time.Minute
)

// Step is what the bot expects next from the chat.
type Step string

const (
	StepNone           Step = ""
	StepOrigin         Step = "origin"
	StepDestination    Step = "destination"
	StepWriteOff       Step = "writeoff"
	StepProductAddress Step = "product_address"
	StepProductPhone   Step = "product_phone"
)

type Draft struct {
	Step      Step            `json:"step"`
	OrderType types.OrderType `json:"order_type,omitempty"`
	Origin    *maps.Address   `json:"origin,omitempty"`
	OrderID   types.ID        `json:"order_id,omitempty"`
	ProductID types.ID        `json:"product_id,omitempty"`
	Address   string          `json:"address,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	// WriteOff marks a product purchase that spends points.
	WriteOff bool `json:"write_off,omitempty"`
}

type DraftStore struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewDraftStore(rdb redis.Cmdable) *DraftStore {
	return &DraftStore{redis: rdb, ttl: draftTTL}
}

// Get returns the chat's draft or an empty draft when none is stored.
func (s *DraftStore) Get(ctx context.Context, chat types.TelegramID) (Draft, error) {
	val, err := s.redis.Get(ctx, draftKey(chat)).Result()
	if err == redis.Nil {
		return Draft{}, nil
	}
	if err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) Save(ctx context.Context, chat types.TelegramID, d Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.redis.Set(ctx, draftKey(chat), string(b), s.ttl).Err()
}

func (s *DraftStore) Clear(ctx context.Context, chat types.TelegramID) error {
	return s.redis.Del(ctx, draftKey(chat)).Err()
}

func draftKey(chat types.TelegramID) string {
	return fmt.Sprintf(draftKeyPrefix, int64(chat))
}
