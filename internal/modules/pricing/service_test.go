package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

func TestPrice(t *testing.T) {
	cfg := Config{BaseFare: 100, PerKm: 10, PerMinute: 2}

	tests := []struct {
		name   string
		tariff types.Tariff
		km     float64
		min    float64
		want   int64
	}{
		{"standard 5km 10min", types.TariffStandard, 5, 10, 170},
		{"urgent 5km 10min", types.TariffUrgent, 5, 10, 197},
		{"zero route", types.TariffStandard, 0, 0, 100},
		{"fractional floors", types.TariffStandard, 1.55, 0.3, 116},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(types.OrderTaxi, tt.tariff, tt.km, tt.min, cfg))
		})
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	cfg := DefaultConfig
	first := Price(types.OrderDelivery, types.TariffUrgent, 12.3, 27.5, cfg)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Price(types.OrderDelivery, types.TariffUrgent, 12.3, 27.5, cfg))
	}
	assert.Equal(t, first, Price(types.OrderTaxi, types.TariffUrgent, 12.3, 27.5, cfg))
}

func TestUrgentDiffersBySurcharge(t *testing.T) {
	cfg := Config{BaseFare: 300, PerKm: 0, PerMinute: 0}
	std := Price(types.OrderTaxi, types.TariffStandard, 3, 3, cfg)
	urg := Price(types.OrderTaxi, types.TariffUrgent, 3, 3, cfg)
	assert.Equal(t, int64(300), std)
	assert.Equal(t, int64(381), urg)
}

type countingSource struct {
	calls int
	cfg   Config
	err   error
}

func (c *countingSource) GetOrCreate(context.Context) (Config, error) {
	c.calls++
	return c.cfg, c.err
}

func (c *countingSource) Update(_ context.Context, cfg Config) error {
	c.cfg = cfg
	return c.err
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	src := &countingSource{cfg: Config{BaseFare: 100, PerKm: 10, PerMinute: 2}}
	s := NewService(src)
	ctx := context.Background()

	q, err := s.Quote(ctx, types.OrderTaxi, types.TariffStandard, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(170), q.Price)

	_, err = s.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	src.cfg.BaseFare = 200
	s.Invalidate()
	q, err = s.Quote(ctx, types.OrderTaxi, types.TariffStandard, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(270), q.Price)
	assert.Equal(t, 2, src.calls)
}

func TestServiceDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	s := NewService(src)

	_, err := s.Config(context.Background())
	require.Error(t, err)

	src.err = nil
	src.cfg = DefaultConfig
	c, err := s.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.BaseFare, c.BaseFare)
	assert.Equal(t, 2, src.calls)
}

func TestUpdateReloadsCache(t *testing.T) {
	src := &countingSource{cfg: DefaultConfig}
	s := NewService(src)
	ctx := context.Background()

	_, err := s.Config(ctx)
	require.NoError(t, err)

	c, err := s.Update(ctx, Config{BaseFare: 150, PerKm: 12, PerMinute: 3})
	require.NoError(t, err)
	assert.Equal(t, 150.0, c.BaseFare)
	assert.Equal(t, 2, src.calls)

	_, err = s.Update(ctx, Config{BaseFare: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
