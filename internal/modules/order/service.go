// README: Order service: creation with synchronous pricing, claim arbitration, confirmation, payment and completion transitions.
package order

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var (
	ErrNotFound       = apperr.NotFound("order not found")
	ErrInvalidState   = apperr.Invariant("invalid state transition")
	ErrConflict       = apperr.Conflict("order state conflict")
	ErrAlreadyTaken   = apperr.Conflict("order already taken")
	ErrOwnOrder       = apperr.UserInput("cannot claim own order")
	ErrNotParticipant = apperr.UserInput("not a participant of the order")
	ErrNotConfirmed   = apperr.Invariant("driver not confirmed")
	ErrNotServed      = apperr.UserInput("city is not served")
	ErrBadRequest     = apperr.UserInput("bad request")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	Claim(ctx context.Context, id, driverID types.ID) (ClaimOutcome, *Order, error)
	IncrementMiss(ctx context.Context, id types.ID) error
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	SetConfirmed(ctx context.Context, id types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	DailyStats(ctx context.Context, driverID types.ID, from, to time.Time) (Stats, error)
}

type Resolver interface {
	Geocode(ctx context.Context, text string) (maps.Address, error)
	GeocodeInCity(ctx context.Context, city, text string) (maps.Address, error)
	ReverseGeocode(ctx context.Context, p types.Point) (maps.Address, error)
	Route(ctx context.Context, from, to types.Point) (maps.Route, error)
}

type Pricing interface {
	Quote(ctx context.Context, orderType types.OrderType, tariff types.Tariff, distanceKm, durationMin float64) (pricing.Quote, error)
}

type Drivers interface {
	Get(ctx context.Context, id types.ID) (*driver.Driver, error)
	ByTelegram(ctx context.Context, tg types.TelegramID) (*driver.Driver, error)
	CountEligible(ctx context.Context) (int, error)
}

// Dispatcher is told about every new order and every declined offer.
type Dispatcher interface {
	OrderCreated(ctx context.Context, o *Order) error
	// Declined consumes the driver's open offer and reports whether it had one.
	Declined(ctx context.Context, orderID types.ID, driverTG types.TelegramID) (bool, error)
}

type Deps struct {
	Resolver   Resolver
	Pricing    Pricing
	Drivers    Drivers
	Dispatcher Dispatcher
	Messenger  notify.Messenger
	// ServiceCities limits origins when non-empty.
	ServiceCities []string
}

type Service struct {
	store     Repository
	resolver  Resolver
	pricing   Pricing
	drivers   Drivers
	dispatch  Dispatcher
	messenger notify.Messenger
	cities    []string
	logger    *zap.Logger
}

func NewService(store Repository, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		resolver:  deps.Resolver,
		pricing:   deps.Pricing,
		drivers:   deps.Drivers,
		dispatch:  deps.Dispatcher,
		messenger: deps.Messenger,
		cities:    deps.ServiceCities,
		logger:    logger,
	}
}

type CreateCommand struct {
	RequesterID         types.ID
	RequesterTelegramID types.TelegramID
	Type                types.OrderType
	Tariff              types.Tariff
	Origin              maps.Address
	DestinationText     string
}

// ResolveOrigin turns a shared location or typed address into the order
// origin. A non-nil point wins over text.
func (s *Service) ResolveOrigin(ctx context.Context, point *types.Point, text string) (maps.Address, error) {
	var addr maps.Address
	var err error
	if point != nil {
		addr, err = s.resolver.ReverseGeocode(ctx, *point)
	} else {
		addr, err = s.resolver.Geocode(ctx, text)
	}
	if err != nil {
		return maps.Address{}, err
	}
	if !s.serves(addr.City) {
		return maps.Address{}, ErrNotServed
	}
	return addr, nil
}

func (s *Service) serves(city string) bool {
	if len(s.cities) == 0 {
		return true
	}
	for _, c := range s.cities {
		if strings.EqualFold(c, city) {
			return true
		}
	}
	return false
}

// Create resolves the destination in the origin's city, prices the route and
// stores the order before handing it to dispatch.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.RequesterID == "" || !cmd.Type.Valid() || cmd.Origin.Text == "" {
		return nil, ErrBadRequest
	}
	if !cmd.Tariff.Valid() {
		cmd.Tariff = types.TariffStandard
	}

	dest, err := s.resolver.GeocodeInCity(ctx, cmd.Origin.City, cmd.DestinationText)
	if err != nil {
		return nil, err
	}
	route, err := s.resolver.Route(ctx, cmd.Origin.Point, dest.Point)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.Quote(ctx, cmd.Type, cmd.Tariff, route.DistanceKm(), route.DurationMin())
	if err != nil {
		return nil, err
	}
	active, err := s.drivers.CountEligible(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	o := &Order{
		ID:                  types.NewID(),
		Type:                cmd.Type,
		Tariff:              cmd.Tariff,
		RequesterID:         cmd.RequesterID,
		RequesterTelegramID: cmd.RequesterTelegramID,
		Status:              StatusCreated,
		From:                Place{Address: cmd.Origin.Text, Point: cmd.Origin.Point},
		To:                  Place{Address: dest.Text, Point: dest.Point},
		DistanceM:           route.DistanceM,
		DurationS:           route.DurationS,
		TravelMinutes:       int(math.Round(route.DurationMin())),
		Price:               quote.Price,
		ActiveDriversCount:  active,
		CreatedAt:           now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, o.ID, StatusNone, StatusCreated, ActorRider, &o.RequesterID)
	observability.OrdersCreated.WithLabelValues(string(o.Type)).Inc()

	if s.dispatch != nil {
		if err := s.dispatch.OrderCreated(ctx, o); err != nil {
			s.logger.Error("Failed to dispatch order", zap.String("order_id", string(o.ID)), zap.Error(err))
		}
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// Claim arbitrates concurrent claims: exactly one driver wins, the same
// driver claiming again gets ClaimAlreadyHeld, everyone else ErrAlreadyTaken.
func (s *Service) Claim(ctx context.Context, orderID types.ID, driverTG types.TelegramID) (ClaimOutcome, error) {
	d, err := s.drivers.ByTelegram(ctx, driverTG)
	if err != nil {
		return "", err
	}
	if !d.HasApprovedCar() {
		return "", driver.ErrCarNotApproved
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.RequesterTelegramID == driverTG {
		return "", ErrOwnOrder
	}

	outcome, o, err := s.store.Claim(ctx, orderID, d.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyTaken) {
			observability.ClaimsTotal.WithLabelValues("taken").Inc()
		}
		return "", err
	}
	observability.ClaimsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == ClaimAlreadyHeld {
		return outcome, nil
	}

	s.appendEvent(ctx, o.ID, StatusCreated, StatusAssigned, ActorDriver, &d.ID)
	s.send(ctx, notify.DriverSummary(o.RequesterTelegramID, o.Card(), driverCard(d)))
	return outcome, nil
}

func driverCard(d *driver.Driver) notify.DriverCard {
	c := notify.DriverCard{FullName: d.FullName, Rating: d.Rating}
	if d.Car != nil {
		c.CarName = d.Car.Name
		c.Plate = d.Car.Plate
	}
	return c
}

// Decline records a skipped offer; the order stays claimable. Only a driver
// that was offered the order counts, and only once.
func (s *Service) Decline(ctx context.Context, orderID types.ID, driverTG types.TelegramID) error {
	if s.dispatch != nil {
		offered, err := s.dispatch.Declined(ctx, orderID, driverTG)
		if err != nil {
			return err
		}
		if !offered {
			return nil
		}
	}
	return s.store.IncrementMiss(ctx, orderID)
}

// ConfirmDriver records the requester's acceptance of the assigned driver.
// Confirming twice is not an error.
func (s *Service) ConfirmDriver(ctx context.Context, orderID types.ID, requesterTG types.TelegramID) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.RequesterTelegramID != requesterTG {
		return nil, ErrNotParticipant
	}
	if o.Status != StatusAssigned {
		return nil, ErrInvalidState
	}
	if o.ConfirmedAt != nil {
		return o, nil
	}
	if _, err := s.store.SetConfirmed(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, orderID)
}

// MarkPaid moves an assigned order to paid and tells the driver the trip is
// active. Already paid orders are left alone.
func (s *Service) MarkPaid(ctx context.Context, orderID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == StatusPaid || o.Status == StatusCompleted {
		return nil
	}
	if !CanTransition(o.Status, StatusPaid) || o.DriverID == nil {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusPaid, o.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusAssigned, StatusPaid, ActorSystem, nil)

	d, err := s.drivers.Get(ctx, *o.DriverID)
	if err != nil {
		s.logger.Warn("Failed to load driver", zap.String("order_id", string(o.ID)), zap.Error(err))
		return nil
	}
	s.send(ctx, notify.TripActive(d.TelegramID, o.Card()))
	return nil
}

// PromptCompletion returns the yes/no confirmation shown to the driver.
func (s *Service) PromptCompletion(ctx context.Context, orderID types.ID, driverTG types.TelegramID) (notify.Message, error) {
	o, _, err := s.driverOrder(ctx, orderID, driverTG)
	if err != nil {
		return notify.Message{}, err
	}
	if o.Status != StatusPaid {
		return notify.Message{}, ErrInvalidState
	}
	return notify.CompletionPrompt(driverTG, o.ID), nil
}

// Complete finishes a paid order and asks both parties for a rating.
func (s *Service) Complete(ctx context.Context, orderID types.ID, driverTG types.TelegramID) error {
	o, d, err := s.driverOrder(ctx, orderID, driverTG)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCompleted, o.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.appendEvent(ctx, o.ID, StatusPaid, StatusCompleted, ActorDriver, &d.ID)

	notify.FanOut(ctx, s.messenger, []notify.Message{
		notify.RatePrompt(o.RequesterTelegramID, o.ID, notify.TextRateDriver),
		notify.RatePrompt(driverTG, o.ID, notify.TextRateRider),
	}, 2, s.logger)
	return nil
}

func (s *Service) driverOrder(ctx context.Context, orderID types.ID, driverTG types.TelegramID) (*Order, *driver.Driver, error) {
	d, err := s.drivers.ByTelegram(ctx, driverTG)
	if err != nil {
		return nil, nil, err
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !o.AssignedTo(d.ID) {
		return nil, nil, ErrNotParticipant
	}
	return o, d, nil
}

// DailyStats reports the driver's orders for the calendar day containing day
// in loc.
func (s *Service) DailyStats(ctx context.Context, driverTG types.TelegramID, day time.Time, loc *time.Location) (Stats, error) {
	d, err := s.drivers.ByTelegram(ctx, driverTG)
	if err != nil {
		return Stats{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return s.store.DailyStats(ctx, d.ID, from, from.AddDate(0, 0, 1))
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actor string, actorID *types.ID) {
	err := s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		s.logger.Warn("Failed to append order event", zap.String("order_id", string(id)), zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, msg notify.Message) {
	if s.messenger == nil {
		return
	}
	if _, err := s.messenger.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send notification", zap.Int64("chat_id", int64(msg.ChatID)), zap.Error(err))
	}
}
