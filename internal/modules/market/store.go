// README: Product store backed by PostgreSQL with an atomic stock decrement.
package market

import (
	"context"
	"errors"

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

func (s *Store) Create(ctx context.Context, p *Product) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(p.ID), p.Name, p.Description, p.Price, p.Quantity, p.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, price, quantity, created_at
		FROM products
		WHERE id = $1`, string(id),
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListInStock(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, price, quantity, created_at
		FROM products
		WHERE quantity > 0
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock takes one unit; it never drives quantity below zero.
func (s *Store) DecrementStock(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE products SET quantity = quantity - 1
		WHERE id = $1 AND quantity > 0`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOutOfStock
	}
	return nil
}
