// README: Pricing config store backed by PostgreSQL (get-or-create singleton row).
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetOrCreate inserts the default row when missing and returns the stored one.
func (s *Store) GetOrCreate(ctx context.Context) (Config, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pricing_config (id, base_fare, per_km, per_minute, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING`,
		DefaultConfig.BaseFare, DefaultConfig.PerKm, DefaultConfig.PerMinute,
	)
	if err != nil {
		return Config{}, err
	}

	var c Config
	err = s.db.QueryRow(ctx, `
		SELECT base_fare, per_km, per_minute, updated_at
		FROM pricing_config
		WHERE id = 1`,
	).Scan(&c.BaseFare, &c.PerKm, &c.PerMinute, &c.UpdatedAt)
	return c, err
}

func (s *Store) Update(ctx context.Context, c Config) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pricing_config (id, base_fare, per_km, per_minute, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET base_fare = EXCLUDED.base_fare,
		    per_km = EXCLUDED.per_km,
		    per_minute = EXCLUDED.per_minute,
		    updated_at = EXCLUDED.updated_at`,
		c.BaseFare, c.PerKm, c.PerMinute,
	)
	return err
}
