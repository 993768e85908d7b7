// README: Pricing service: cached config with explicit invalidation plus quotes.
package pricing

import (
	"context"
	"sync"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var ErrInvalidConfig = apperr.UserInput("pricing values must not be negative")

// ConfigSource loads the persisted configuration, creating it when absent.
type ConfigSource interface {
	GetOrCreate(ctx context.Context) (Config, error)
	Update(ctx context.Context, c Config) error
}

type Service struct {
	source ConfigSource

	mu     sync.Mutex
	cached *Config
}

func NewService(source ConfigSource) *Service {
	return &Service{source: source}
}

// Config returns the cached configuration, loading it on first use or
// after Invalidate.
func (s *Service) Config(ctx context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}
	c, err := s.source.GetOrCreate(ctx)
	if err != nil {
		return Config{}, err
	}
	s.cached = &c
	return c, nil
}

// Invalidate drops the cached configuration so the next read reloads it.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Update persists new fares and drops the cache.
func (s *Service) Update(ctx context.Context, c Config) (Config, error) {
	if c.BaseFare < 0 || c.PerKm < 0 || c.PerMinute < 0 {
		return Config{}, ErrInvalidConfig
	}
	if err := s.source.Update(ctx, c); err != nil {
		return Config{}, err
	}
	s.Invalidate()
	return s.Config(ctx)
}

func (s *Service) Quote(ctx context.Context, orderType types.OrderType, tariff types.Tariff, distanceKm, durationMin float64) (Quote, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Price:       Price(orderType, tariff, distanceKm, durationMin, cfg),
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Config:      cfg,
	}, nil
}
