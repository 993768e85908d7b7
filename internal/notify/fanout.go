// README: Concurrent best-effort delivery of one message per recipient.
package notify

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FanOutResult struct {
	Sent   int
	Failed int
}

// FanOut sends every message with at most limit deliveries in flight. A
// failed delivery is logged and counted; it never stops the others.
func FanOut(ctx context.Context, m Messenger, msgs []Message, limit int, log *zap.Logger) FanOutResult {
	if log == nil {
		log = zap.NewNop()
	}
	if limit <= 0 {
		limit = 1
	}

	var sent, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			if _, err := m.Send(ctx, msg); err != nil {
				failed.Add(1)
				log.Warn("Failed to deliver message", zap.Int64("chat_id", int64(msg.ChatID)), zap.Error(err))
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return FanOutResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
}
