// README: Payment store backed by PostgreSQL; debits, paid flips and credits run as conditional updates in transactions.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamranYsupov/TaxiDriverBot/internal/infra"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const paymentColumns = `
	id, type, order_id, product_id, payer_id, amount, currency, status,
	provider_tx_id, COALESCE(confirmation_url, ''), points_to_credit, points_spent, metadata,
	created_at, paid_at`

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertPayment(ctx context.Context, q querier, p *Payment) error {
	meta := p.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO payments (
			id, type, order_id, product_id, payer_id, amount, currency, status,
			points_to_credit, points_spent, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(p.ID), string(p.Type), toStringPtr(p.OrderID), toStringPtr(p.ProductID), string(p.PayerID),
		p.Amount, p.Currency, string(p.Status),
		p.PointsToCredit, p.PointsSpent, meta, p.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Store) SetProviderTx(ctx context.Context, id types.ID, txID, url string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments SET provider_tx_id = $2, confirmation_url = $3
		WHERE id = $1`, string(id), txID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Open inserts p and debits its spent points from the payer in one
// transaction. The balance never goes below zero. An order keeps one live
// payment: earlier not_paid rows are cancelled with their points refunded
// and returned, and a paid order refuses new payments.
func (s *Store) Open(ctx context.Context, p *Payment) ([]*Payment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var replaced []*Payment
	if p.OrderID != nil {
		if replaced, err = cancelPending(ctx, tx, *p.OrderID); err != nil {
			return nil, err
		}
	}
	if p.PointsSpent > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE riders SET points = points - $2
			WHERE id = $1 AND points >= $2`, string(p.PayerID), p.PointsSpent)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrInsufficientPoints
		}
	}
	if err := insertPayment(ctx, tx, p); err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return replaced, nil
}

func cancelPending(ctx context.Context, tx pgx.Tx, orderID types.ID) ([]*Payment, error) {
	live, err := lockLive(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	for _, p := range live {
		if p.Paid() {
			return nil, ErrOrderAlreadyPaid
		}
	}
	for _, p := range live {
		if _, err := tx.Exec(ctx, `UPDATE payments SET status = 'cancelled' WHERE id = $1`, string(p.ID)); err != nil {
			return nil, err
		}
		if p.PointsSpent > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE riders SET points = points + $2
				WHERE id = $1`, string(p.PayerID), p.PointsSpent); err != nil {
				return nil, err
			}
		}
		p.Status = StatusCancelled
	}
	return live, nil
}

func lockLive(ctx context.Context, tx pgx.Tx, orderID types.ID) ([]*Payment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1 AND status <> 'cancelled'
		FOR UPDATE`, string(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPaid flips a not_paid payment to paid and credits its points to the
// payer. It reports false when the payment is not pending any more, and
// ErrOrderAlreadyPaid when another payment already paid its order.
func (s *Store) MarkPaid(ctx context.Context, id types.ID) (bool, *Payment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback(ctx)

	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'not_paid'
		  AND NOT EXISTS (
			SELECT 1 FROM payments done
			WHERE done.order_id = payments.order_id AND done.status = 'paid')
		RETURNING `+paymentColumns, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		current, err := s.Get(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if current.Status == StatusNotPaid {
			return false, current, ErrOrderAlreadyPaid
		}
		return false, current, nil
	}
	if err != nil {
		return false, nil, err
	}

	if p.PointsToCredit > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE riders SET points = points + $2, last_points_at = NOW()
			WHERE id = $1`, string(p.PayerID), p.PointsToCredit); err != nil {
			return false, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, p, nil
}

// ExpirePoints zeroes balances that have not grown since before cutoff.
func (s *Store) ExpirePoints(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE riders SET points = 0
		WHERE points > 0 AND last_points_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var orderID, productID *string
	err := row.Scan(
		&p.ID, &p.Type, &orderID, &productID, &p.PayerID, &p.Amount, &p.Currency, &p.Status,
		&p.ProviderTxID, &p.ConfirmationURL, &p.PointsToCredit, &p.PointsSpent, &p.Metadata,
		&p.CreatedAt, &p.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	p.OrderID = toIDPtr(orderID)
	p.ProductID = toIDPtr(productID)
	return &p, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}
