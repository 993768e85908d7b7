// README: Rider service: first-contact registration and tariff selection.
package rider

import (
	"context"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var (
	ErrNotFound      = apperr.NotFound("rider not found")
	ErrInvalidTariff = apperr.UserInput("invalid tariff")
)

type Repository interface {
	GetOrCreate(ctx context.Context, tg types.TelegramID, username string, welcome int64) (*Rider, error)
	Get(ctx context.Context, id types.ID) (*Rider, error)
	GetByTelegram(ctx context.Context, tg types.TelegramID) (*Rider, error)
	SetTariff(ctx context.Context, id types.ID, tariff types.Tariff) error
}

type Service struct {
	store         Repository
	welcomePoints int64
}

func NewService(store Repository, welcomePoints int64) *Service {
	return &Service{store: store, welcomePoints: welcomePoints}
}

// Register returns the rider for tg, creating it with the welcome balance.
func (s *Service) Register(ctx context.Context, tg types.TelegramID, username string) (*Rider, error) {
	return s.store.GetOrCreate(ctx, tg, username, s.welcomePoints)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ByTelegram(ctx context.Context, tg types.TelegramID) (*Rider, error) {
	return s.store.GetByTelegram(ctx, tg)
}

func (s *Service) SetTariff(ctx context.Context, tg types.TelegramID, tariff types.Tariff) (*Rider, error) {
	if !tariff.Valid() {
		return nil, ErrInvalidTariff
	}
	r, err := s.store.GetByTelegram(ctx, tg)
	if err != nil {
		return nil, err
	}
	if r.Tariff == tariff {
		return r, nil
	}
	if err := s.store.SetTariff(ctx, r.ID, tariff); err != nil {
		return nil, err
	}
	r.Tariff = tariff
	return r, nil
}
