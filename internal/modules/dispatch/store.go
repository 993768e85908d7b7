// README: Dispatch bookkeeping in Redis: which drivers hold an open offer and how often an order was broadcast.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

const (
	offersKeyPrefix    = "dispatch:order:%s:offers"
	broadcastKeyPrefix = "dispatch:order:%s:broadcasts"
	// Orders resolve well within a week.
	keyTTL = 7 * 24 * time.Hour
)

type Store struct {
	redis redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{redis: rdb}
}

// RecordOffers adds drivers to the set of open offers for an order.
func (s *Store) RecordOffers(ctx context.Context, orderID types.ID, drivers []types.TelegramID) error {
	if len(drivers) == 0 {
		return nil
	}
	members := make([]interface{}, len(drivers))
	for i, d := range drivers {
		members[i] = strconv.FormatInt(int64(d), 10)
	}
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, offersKey(orderID), members...)
	pipe.Expire(ctx, offersKey(orderID), keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ConsumeOffer removes the driver's open offer. It reports false when the
// driver was never offered the order or already answered.
func (s *Store) ConsumeOffer(ctx context.Context, orderID types.ID, driver types.TelegramID) (bool, error) {
	n, err := s.redis.SRem(ctx, offersKey(orderID), strconv.FormatInt(int64(driver), 10)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkBroadcast counts a public channel post for the order.
func (s *Store) MarkBroadcast(ctx context.Context, orderID types.ID) (int64, error) {
	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, broadcastKey(orderID))
	pipe.Expire(ctx, broadcastKey(orderID), keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func offersKey(orderID types.ID) string {
	return fmt.Sprintf(offersKeyPrefix, string(orderID))
}

func broadcastKey(orderID types.ID) string {
	return fmt.Sprintf(broadcastKeyPrefix, string(orderID))
}
