// README: Driver service: registration, car vetting, shift toggle and tariff requests.
package driver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
	"github.com/KamranYsupov/TaxiDriverBot/internal/validation"
)

var (
	ErrNotFound              = apperr.NotFound("driver not found")
	ErrCarNotFound           = apperr.NotFound("car not found")
	ErrTariffRequestNotFound = apperr.NotFound("tariff request not found")
	ErrAlreadyRegistered     = apperr.Conflict("driver already registered")
	ErrCarNotApproved        = apperr.Conflict("car is not approved")
	ErrTariffUnchanged       = apperr.Conflict("tariff unchanged")
	ErrRequestPending        = apperr.Conflict("tariff request already pending")
	ErrRequestDecided        = apperr.Conflict("tariff request already decided")
	ErrInvalidStatus         = apperr.UserInput("invalid approval status")
	ErrInvalidTariff         = apperr.UserInput("invalid tariff")
)

type Repository interface {
	Create(ctx context.Context, d *Driver) error
	Get(ctx context.Context, id types.ID) (*Driver, error)
	GetByTelegram(ctx context.Context, tg types.TelegramID) (*Driver, error)
	ListEligible(ctx context.Context, exclude types.TelegramID) ([]Driver, error)
	CountEligible(ctx context.Context) (int, error)
	SetActive(ctx context.Context, id types.ID, active bool) error
	CreateCar(ctx context.Context, c *Car) error
	ApplyCarStatus(ctx context.Context, carID types.ID, next ApprovalStatus) (CarStatusChange, error)
	CreateTariffRequest(ctx context.Context, r *TariffRequest) error
	ApplyTariffRequestStatus(ctx context.Context, id types.ID, next ApprovalStatus) (TariffStatusChange, error)
}

type Service struct {
	store     Repository
	messenger notify.Messenger
	logger    *zap.Logger
}

func NewService(store Repository, messenger notify.Messenger, logger *zap.Logger) *Service {
	return &Service{store: store, messenger: messenger, logger: logger}
}

type RegisterCommand struct {
	TelegramID types.TelegramID
	Username   string
	FullName   string `validate:"full_name"`
	Phone      string `validate:"phone"`
	Passport   string `validate:"passport"`
}

type SubmitCarCommand struct {
	DriverTelegramID types.TelegramID
	Name             string `validate:"trimmed_min2"`
	Plate            string `validate:"required,max=20"`
	VIN              string `validate:"vin"`
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	d := &Driver{
		ID:         types.NewID(),
		TelegramID: cmd.TelegramID,
		Username:   cmd.Username,
		FullName:   strings.Join(strings.Fields(cmd.FullName), " "),
		Phone:      validation.NormalizePhone(cmd.Phone),
		Passport:   strings.TrimSpace(cmd.Passport),
		Tariff:     types.TariffStandard,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ByTelegram(ctx context.Context, tg types.TelegramID) (*Driver, error) {
	return s.store.GetByTelegram(ctx, tg)
}

// ListEligible returns the drivers who may receive offers for an order
// placed by requester.
func (s *Service) ListEligible(ctx context.Context, requester types.TelegramID) ([]Driver, error) {
	return s.store.ListEligible(ctx, requester)
}

func (s *Service) CountEligible(ctx context.Context) (int, error) {
	return s.store.CountEligible(ctx)
}

// SubmitCar registers a car for verification. It stays unusable until an
// admin approves it.
func (s *Service) SubmitCar(ctx context.Context, cmd SubmitCarCommand) (*Car, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	d, err := s.store.GetByTelegram(ctx, cmd.DriverTelegramID)
	if err != nil {
		return nil, err
	}
	c := &Car{
		ID:        types.NewID(),
		DriverID:  d.ID,
		Name:      strings.TrimSpace(cmd.Name),
		Plate:     strings.ToUpper(strings.TrimSpace(cmd.Plate)),
		VIN:       strings.ToUpper(strings.TrimSpace(cmd.VIN)),
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateCar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCarStatus applies an admin decision and notifies the driver exactly
// once per real transition.
func (s *Service) SetCarStatus(ctx context.Context, carID types.ID, next ApprovalStatus) (*Car, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}
	change, err := s.store.ApplyCarStatus(ctx, carID, next)
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, change.DriverTelegramID, change.Notification)
	return &change.Car, nil
}

// SetActive toggles the driver's shift. Only drivers with an approved car
// may go on shift.
func (s *Service) SetActive(ctx context.Context, tg types.TelegramID, active bool) (*Driver, error) {
	d, err := s.store.GetByTelegram(ctx, tg)
	if err != nil {
		return nil, err
	}
	if active && !d.HasApprovedCar() {
		return nil, ErrCarNotApproved
	}
	if d.IsActive == active {
		return d, nil
	}
	if err := s.store.SetActive(ctx, d.ID, active); err != nil {
		return nil, err
	}
	d.IsActive = active
	return d, nil
}

func (s *Service) RequestTariff(ctx context.Context, tg types.TelegramID, tariff types.Tariff) (*TariffRequest, error) {
	if !tariff.Valid() {
		return nil, ErrInvalidTariff
	}
	d, err := s.store.GetByTelegram(ctx, tg)
	if err != nil {
		return nil, err
	}
	if !d.HasApprovedCar() {
		return nil, ErrCarNotApproved
	}
	if d.Tariff == tariff {
		return nil, ErrTariffUnchanged
	}
	r := &TariffRequest{
		ID:        types.NewID(),
		DriverID:  d.ID,
		Tariff:    tariff,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateTariffRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ResolveTariffRequest(ctx context.Context, id types.ID, next ApprovalStatus) (*TariffRequest, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}
	change, err := s.store.ApplyTariffRequestStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, change.DriverTelegramID, change.Notification)
	return &change.Request, nil
}

func (s *Service) deliver(ctx context.Context, chat types.TelegramID, n *Notification) {
	if n == nil || s.messenger == nil {
		return
	}
	if _, err := s.messenger.Send(ctx, notify.Message{ChatID: chat, Text: n.Text}); err != nil {
		s.logger.Warn("Failed to notify driver",
			zap.Int64("telegram_id", int64(chat)),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}
