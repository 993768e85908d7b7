// README: Dispatch service: queued offers to eligible drivers, public channel fallback, delayed escalation and decline tracking.
package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/jobs"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Tracker interface {
	RecordOffers(ctx context.Context, orderID types.ID, drivers []types.TelegramID) error
	ConsumeOffer(ctx context.Context, orderID types.ID, driver types.TelegramID) (bool, error)
	MarkBroadcast(ctx context.Context, orderID types.ID) (int64, error)
}

type Drivers interface {
	ListEligible(ctx context.Context, requester types.TelegramID) ([]driver.Driver, error)
}

type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

type Scheduler interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type Service struct {
	tracker   Tracker
	orders    Orders
	drivers   Drivers
	scheduler Scheduler
	messenger notify.Messenger
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(tracker Tracker, orders Orders, drivers Drivers, scheduler Scheduler, messenger notify.Messenger, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FanOutLimit <= 0 {
		cfg.FanOutLimit = 16
	}
	return &Service{
		tracker:   tracker,
		orders:    orders,
		drivers:   drivers,
		scheduler: scheduler,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// OrderCreated implements order.Dispatcher. It schedules the escalation and
// queues the offers so the requester does not wait for the fan-out. Offers
// are sent inline when the queue is unavailable.
func (s *Service) OrderCreated(ctx context.Context, o *order.Order) error {
	if !o.Unassigned() {
		return nil
	}
	_, escErr := s.scheduleEscalation(ctx, o.ID)
	err := s.scheduler.Enqueue(ctx, jobs.Job{
		ID:      "offer:" + string(o.ID),
		Kind:    jobs.KindDispatchOffer,
		Payload: string(o.ID),
		RunAt:   s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to queue offers", zap.String("order_id", string(o.ID)), zap.Error(err))
		_, err = s.offer(ctx, o)
	}
	return errors.Join(escErr, err)
}

// Declined implements order.Dispatcher.
func (s *Service) Declined(ctx context.Context, orderID types.ID, driverTG types.TelegramID) (bool, error) {
	return s.tracker.ConsumeOffer(ctx, orderID, driverTG)
}

// Dispatch schedules the escalation, then offers o to every eligible driver
// except the requester, or posts it to the public channel when there are
// none. The escalation is scheduled even when the offers fail.
func (s *Service) Dispatch(ctx context.Context, o *order.Order) (Round, error) {
	if !o.Unassigned() {
		return Round{}, nil
	}
	at, escErr := s.scheduleEscalation(ctx, o.ID)
	round, err := s.offer(ctx, o)
	round.Escalate = at
	return round, errors.Join(escErr, err)
}

// HandleOffer is the jobs.Handler for queued offers. Orders taken in the
// meantime are skipped.
func (s *Service) HandleOffer(ctx context.Context, job jobs.Job) error {
	o, err := s.orders.Get(ctx, types.ID(job.Payload))
	if err != nil {
		return err
	}
	if !o.Unassigned() {
		return nil
	}
	_, err = s.offer(ctx, o)
	return err
}

func (s *Service) scheduleEscalation(ctx context.Context, orderID types.ID) (time.Time, error) {
	at := s.now().Add(s.cfg.EscalationDelay)
	err := s.scheduler.Enqueue(ctx, jobs.Job{
		ID:      "escalate:" + string(orderID),
		Kind:    jobs.KindDispatchEscalate,
		Payload: string(orderID),
		RunAt:   at,
	})
	if err != nil {
		s.logger.Error("Failed to schedule escalation", zap.String("order_id", string(orderID)), zap.Error(err))
	}
	return at, err
}

func (s *Service) offer(ctx context.Context, o *order.Order) (Round, error) {
	var round Round
	log := s.logger.With(zap.String("order_id", string(o.ID)))

	drivers, err := s.drivers.ListEligible(ctx, o.RequesterTelegramID)
	if err != nil {
		log.Error("Failed to list eligible drivers", zap.Error(err))
		return round, err
	}

	chats := make([]types.TelegramID, 0, len(drivers))
	for _, d := range drivers {
		chats = append(chats, d.TelegramID)
	}
	if err := s.tracker.RecordOffers(ctx, o.ID, chats); err != nil {
		log.Warn("Failed to record offers", zap.Error(err))
	}

	if len(chats) == 0 {
		round.Channel = s.postToChannel(ctx, o, reasonNoDrivers)
		return round, nil
	}
	msgs := make([]notify.Message, 0, len(chats))
	for _, chat := range chats {
		msgs = append(msgs, notify.Offer(chat, o.Card()))
	}
	res := notify.FanOut(ctx, s.messenger, msgs, s.cfg.FanOutLimit, log)
	round.Offered, round.Failed = res.Sent, res.Failed
	observability.OffersSent.Add(float64(res.Sent))
	observability.OffersFailed.Add(float64(res.Failed))
	log.Info("Order offered", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return round, nil
}

// Escalate re-posts the order to the public channel if it is still
// unassigned when the job fires.
func (s *Service) Escalate(ctx context.Context, orderID types.ID) (bool, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !o.Unassigned() {
		return false, nil
	}
	return s.postToChannel(ctx, o, reasonEscalation), nil
}

// HandleEscalation is the jobs.Handler for escalation jobs.
func (s *Service) HandleEscalation(ctx context.Context, job jobs.Job) error {
	_, err := s.Escalate(ctx, types.ID(job.Payload))
	return err
}

func (s *Service) postToChannel(ctx context.Context, o *order.Order, reason string) bool {
	log := s.logger.With(zap.String("order_id", string(o.ID)), zap.String("reason", reason))
	if s.cfg.ChannelID == 0 {
		log.Warn("Orders channel not configured")
		return false
	}
	if _, err := s.messenger.Send(ctx, notify.ChannelPost(s.cfg.ChannelID, o.Card(), s.cfg.BotLink)); err != nil {
		log.Error("Failed to post to channel", zap.Error(err))
		return false
	}
	observability.ChannelPosts.WithLabelValues(reason).Inc()
	if n, err := s.tracker.MarkBroadcast(ctx, o.ID); err != nil {
		log.Warn("Failed to mark broadcast", zap.Error(err))
	} else {
		log.Info("Order posted to channel", zap.Int64("broadcasts", n))
	}
	return true
}
