// README: Review service: one 1..5 rating per side of a completed order.
package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
	"github.com/KamranYsupov/TaxiDriverBot/internal/validation"
)

var (
	ErrAlreadyRated = apperr.Conflict("order already rated")
	ErrInvalidScore = apperr.UserInput("invalid score")
	ErrInvalidRole  = apperr.Invariant("invalid rater role")
)

type Repository interface {
	Submit(ctx context.Context, r *Review) (*float64, error)
}

type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

type Drivers interface {
	ByTelegram(ctx context.Context, tg types.TelegramID) (*driver.Driver, error)
}

type Service struct {
	store   Repository
	orders  Orders
	drivers Drivers
	logger  *zap.Logger
}

func NewService(store Repository, orders Orders, drivers Drivers, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, orders: orders, drivers: drivers, logger: logger}
}

type Result struct {
	Review *Review
	Rating *float64
}

// Submit records the rating raterTG gives the other side of a completed order.
func (s *Service) Submit(ctx context.Context, orderID types.ID, raterTG types.TelegramID, score int) (Result, error) {
	if err := validation.Var(score, "min=1,max=5", "score"); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o.Status != order.StatusCompleted || o.DriverID == nil {
		return Result{}, order.ErrInvalidState
	}

	r := &Review{OrderID: o.ID, Score: score, CreatedAt: time.Now()}
	if raterTG == o.RequesterTelegramID {
		r.RaterRole = RoleRider
		r.RateeID = *o.DriverID
	} else {
		d, err := s.drivers.ByTelegram(ctx, raterTG)
		if err != nil || !o.AssignedTo(d.ID) {
			return Result{}, order.ErrNotParticipant
		}
		r.RaterRole = RoleDriver
		r.RateeID = o.RequesterID
	}

	rating, err := s.store.Submit(ctx, r)
	if err != nil {
		return Result{}, err
	}
	observability.RatingsSubmitted.Inc()
	s.logger.Info("Rating submitted",
		zap.String("order_id", string(o.ID)),
		zap.String("rater_role", string(r.RaterRole)),
		zap.Int("score", score))
	return Result{Review: r, Rating: rating}, nil
}
