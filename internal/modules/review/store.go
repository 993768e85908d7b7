// README: Review store: the review insert and the ratee aggregate update share one transaction.
package review

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamranYsupov/TaxiDriverBot/internal/infra"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Riders rate drivers and drivers rate riders.
var rateeTable = map[RaterRole]string{
	RoleRider:  "drivers",
	RoleDriver: "riders",
}

// Submit stores r, appends its score to the ratee's reviews and recomputes
// the ratee's rating. A second review by the same side of an order fails
// with ErrAlreadyRated.
func (s *Store) Submit(ctx context.Context, r *Review) (*float64, error) {
	table, ok := rateeTable[r.RaterRole]
	if !ok {
		return nil, ErrInvalidRole
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO reviews (order_id, rater_role, ratee_id, score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		string(r.OrderID), string(r.RaterRole), string(r.RateeID), r.Score, r.CreatedAt,
	).Scan(&r.ID)
	if infra.IsUniqueViolation(err) {
		return nil, ErrAlreadyRated
	}
	if err != nil {
		return nil, err
	}

	var scores []int
	err = tx.QueryRow(ctx, `
		UPDATE `+table+` SET reviews = array_append(reviews, $2)
		WHERE id = $1
		RETURNING reviews`, string(r.RateeID), r.Score,
	).Scan(&scores)
	if err != nil {
		return nil, err
	}

	rating := MeanRating(scores)
	if _, err := tx.Exec(ctx, `UPDATE `+table+` SET rating = $2 WHERE id = $1`, string(r.RateeID), rating); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rating, nil
}
