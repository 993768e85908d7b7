// README: Rider store backed by PostgreSQL.
package rider

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const riderColumns = `id, telegram_id, COALESCE(username, ''), tariff, points, last_points_at, rating, reviews, created_at`

// GetOrCreate returns the rider for tg, inserting it with welcome points on
// first contact. The username is refreshed when Telegram reports one.
func (s *Store) GetOrCreate(ctx context.Context, tg types.TelegramID, username string, welcome int64) (*Rider, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO riders (id, telegram_id, username, tariff, points, last_points_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), 'standard', $4, $5, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = COALESCE(EXCLUDED.username, riders.username)
		RETURNING `+riderColumns,
		string(types.NewID()), int64(tg), username, welcome, time.Now(),
	)
	return scanRider(row)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return scanRider(s.db.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = $1`, string(id)))
}

func (s *Store) GetByTelegram(ctx context.Context, tg types.TelegramID) (*Rider, error) {
	return scanRider(s.db.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE telegram_id = $1`, int64(tg)))
}

func (s *Store) SetTariff(ctx context.Context, id types.ID, tariff types.Tariff) error {
	tag, err := s.db.Exec(ctx, `UPDATE riders SET tariff = $2 WHERE id = $1`, string(id), string(tariff))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRider(row pgx.Row) (*Rider, error) {
	var r Rider
	err := row.Scan(&r.ID, &r.TelegramID, &r.Username, &r.Tariff, &r.Points, &r.LastPointsAt, &r.Rating, &r.Reviews, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
