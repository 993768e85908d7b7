// README: Order store backed by PostgreSQL; claims and status flips are single conditional updates.
package order

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

const orderColumns = `
	id, type, tariff, requester_id, requester_telegram_id, driver_id,
	status, status_version,
	from_address, from_lat, from_lng, to_address, to_lat, to_lng,
	distance_m, duration_s, travel_minutes, price, miss_count, active_drivers_count,
	created_at, assigned_at, confirmed_at, paid_at, completed_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, type, tariff, requester_id, requester_telegram_id,
			status, status_version,
			from_address, from_lat, from_lng, to_address, to_lat, to_lng,
			distance_m, duration_s, travel_minutes, price, active_drivers_count, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19
		)`,
		string(o.ID), string(o.Type), string(o.Tariff), string(o.RequesterID), int64(o.RequesterTelegramID),
		string(o.Status), o.StatusVersion,
		o.From.Address, o.From.Point.Lat, o.From.Point.Lng,
		o.To.Address, o.To.Point.Lat, o.To.Point.Lng,
		o.DistanceM, o.DurationS, o.TravelMinutes, o.Price, o.ActiveDriversCount, o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

// Claim assigns driverID when nobody holds the order yet. Losing claims are
// classified from the row as it stands afterwards.
func (s *Store) Claim(ctx context.Context, id, driverID types.ID) (ClaimOutcome, *Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `
		UPDATE orders
		SET driver_id = $2,
			status = 'assigned',
			status_version = status_version + 1,
			assigned_at = NOW()
		WHERE id = $1 AND driver_id IS NULL AND status = 'created'
		RETURNING `+orderColumns, string(id), string(driverID)))
	if err == nil {
		return ClaimAssigned, o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return classifyLostClaim(current, driverID)
}

func classifyLostClaim(o *Order, driverID types.ID) (ClaimOutcome, *Order, error) {
	switch {
	case o.AssignedTo(driverID):
		return ClaimAlreadyHeld, o, nil
	case o.DriverID != nil:
		return "", o, ErrAlreadyTaken
	default:
		return "", o, ErrInvalidState
	}
}

func (s *Store) IncrementMiss(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `UPDATE orders SET miss_count = miss_count + 1 WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
			status_version = status_version + 1,
			paid_at = CASE WHEN $1 = 'paid' THEN NOW() ELSE paid_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetConfirmed records the requester's driver confirmation once.
func (s *Store) SetConfirmed(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET confirmed_at = NOW()
		WHERE id = $1 AND status = 'assigned' AND confirmed_at IS NULL`, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// DailyStats counts paid or completed orders assigned in [from, to).
func (s *Store) DailyStats(ctx context.Context, driverID types.ID, from, to time.Time) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(price), 0)
		FROM orders
		WHERE driver_id = $1
		  AND status IN ('paid', 'completed')
		  AND created_at >= $2 AND created_at < $3`,
		string(driverID), from, to,
	).Scan(&st.Orders, &st.Income)
	return st, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var driverID *string
	err := row.Scan(
		&o.ID, &o.Type, &o.Tariff, &o.RequesterID, &o.RequesterTelegramID, &driverID,
		&o.Status, &o.StatusVersion,
		&o.From.Address, &o.From.Point.Lat, &o.From.Point.Lng,
		&o.To.Address, &o.To.Point.Lat, &o.To.Point.Lng,
		&o.DistanceM, &o.DurationS, &o.TravelMinutes, &o.Price, &o.MissCount, &o.ActiveDriversCount,
		&o.CreatedAt, &o.AssignedAt, &o.ConfirmedAt, &o.PaidAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	return &o, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
