// README: Driver, car and tariff request store backed by PostgreSQL.
package driver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamranYsupov/TaxiDriverBot/internal/infra"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// CarStatusChange is the outcome of a car status update.
type CarStatusChange struct {
	Car              Car
	Previous         ApprovalStatus
	DriverTelegramID types.TelegramID
	Notification     *Notification
}

type TariffStatusChange struct {
	Request          TariffRequest
	Previous         ApprovalStatus
	DriverTelegramID types.TelegramID
	Notification     *Notification
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectDriver = `
	SELECT d.id, d.telegram_id, COALESCE(d.username, ''), d.full_name, d.phone, d.passport,
	       d.is_active, d.tariff, d.rating, d.reviews, d.car_id, d.created_at,
	       c.id, c.name, c.plate, c.vin, c.status
	FROM drivers d
	LEFT JOIN cars c ON c.id = d.car_id`

func (s *Store) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, telegram_id, username, full_name, phone, passport, is_active, tariff, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		string(d.ID), int64(d.TelegramID), d.Username, d.FullName, d.Phone, d.Passport,
		d.IsActive, string(d.Tariff), d.CreatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return scanDriver(s.db.QueryRow(ctx, selectDriver+` WHERE d.id = $1`, string(id)))
}

func (s *Store) GetByTelegram(ctx context.Context, tg types.TelegramID) (*Driver, error) {
	return scanDriver(s.db.QueryRow(ctx, selectDriver+` WHERE d.telegram_id = $1`, int64(tg)))
}

// ListEligible returns active drivers with an approved car, excluding the
// given Telegram identity.
func (s *Store) ListEligible(ctx context.Context, exclude types.TelegramID) ([]Driver, error) {
	rows, err := s.db.Query(ctx, selectDriver+`
		WHERE d.is_active AND c.status = 'approved' AND d.telegram_id <> $1
		ORDER BY d.created_at`, int64(exclude))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Store) CountEligible(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM drivers d
		JOIN cars c ON c.id = d.car_id
		WHERE d.is_active AND c.status = 'approved'`).Scan(&n)
	return n, err
}

func (s *Store) SetActive(ctx context.Context, id types.ID, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET is_active = $2 WHERE id = $1`, string(id), active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateCar(ctx context.Context, c *Car) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cars (id, driver_id, name, plate, vin, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		string(c.ID), string(c.DriverID), c.Name, c.Plate, c.VIN, string(c.Status), c.CreatedAt,
	)
	return err
}

// ApplyCarStatus locks the car row, applies the transition and, on
// approval, links the car to its driver. All in one transaction.
func (s *Store) ApplyCarStatus(ctx context.Context, carID types.ID, next ApprovalStatus) (CarStatusChange, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return CarStatusChange{}, err
	}
	defer tx.Rollback(ctx)

	var c Car
	var tg int64
	err = tx.QueryRow(ctx, `
		SELECT c.id, c.driver_id, c.name, c.plate, c.vin, c.status, c.created_at, c.updated_at, d.telegram_id
		FROM cars c
		JOIN drivers d ON d.id = c.driver_id
		WHERE c.id = $1
		FOR UPDATE OF c`, string(carID),
	).Scan(&c.ID, &c.DriverID, &c.Name, &c.Plate, &c.VIN, &c.Status, &c.CreatedAt, &c.UpdatedAt, &tg)
	if errors.Is(err, pgx.ErrNoRows) {
		return CarStatusChange{}, ErrCarNotFound
	}
	if err != nil {
		return CarStatusChange{}, err
	}

	prev := c.Status
	updated, note := ApplyCarStatus(c, next)
	if prev != next {
		if err := tx.QueryRow(ctx, `
			UPDATE cars SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`, string(c.ID), string(next),
		).Scan(&updated.UpdatedAt); err != nil {
			return CarStatusChange{}, err
		}
	}
	switch {
	case next == StatusApproved && prev != StatusApproved:
		if _, err := tx.Exec(ctx, `UPDATE drivers SET car_id = $1 WHERE id = $2`, string(c.ID), string(c.DriverID)); err != nil {
			return CarStatusChange{}, err
		}
	case next != StatusApproved && prev == StatusApproved:
		// A revoked car can no longer carry offers.
		if _, err := tx.Exec(ctx, `
			UPDATE drivers SET car_id = NULL, is_active = FALSE
			WHERE id = $1 AND car_id = $2`, string(c.DriverID), string(c.ID)); err != nil {
			return CarStatusChange{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return CarStatusChange{}, err
	}
	return CarStatusChange{Car: updated, Previous: prev, DriverTelegramID: types.TelegramID(tg), Notification: note}, nil
}

func (s *Store) CreateTariffRequest(ctx context.Context, r *TariffRequest) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tariff_requests (id, driver_id, tariff, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		string(r.ID), string(r.DriverID), string(r.Tariff), string(r.Status), r.CreatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrRequestPending
	}
	return err
}

// ApplyTariffRequestStatus locks the request, applies the transition and,
// on approval, copies the tariff onto the driver.
func (s *Store) ApplyTariffRequestStatus(ctx context.Context, id types.ID, next ApprovalStatus) (TariffStatusChange, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return TariffStatusChange{}, err
	}
	defer tx.Rollback(ctx)

	var r TariffRequest
	var tg int64
	err = tx.QueryRow(ctx, `
		SELECT r.id, r.driver_id, r.tariff, r.status, r.created_at, r.updated_at, d.telegram_id
		FROM tariff_requests r
		JOIN drivers d ON d.id = r.driver_id
		WHERE r.id = $1
		FOR UPDATE OF r`, string(id),
	).Scan(&r.ID, &r.DriverID, &r.Tariff, &r.Status, &r.CreatedAt, &r.UpdatedAt, &tg)
	if errors.Is(err, pgx.ErrNoRows) {
		return TariffStatusChange{}, ErrTariffRequestNotFound
	}
	if err != nil {
		return TariffStatusChange{}, err
	}

	prev := r.Status
	updated, note, err := ApplyTariffRequestStatus(r, next)
	if err != nil {
		return TariffStatusChange{}, err
	}
	if prev != next {
		if err := tx.QueryRow(ctx, `
			UPDATE tariff_requests SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`, string(r.ID), string(next),
		).Scan(&updated.UpdatedAt); err != nil {
			return TariffStatusChange{}, err
		}
	}
	if note != nil && next == StatusApproved {
		if _, err := tx.Exec(ctx, `UPDATE drivers SET tariff = $1 WHERE id = $2`, string(r.Tariff), string(r.DriverID)); err != nil {
			return TariffStatusChange{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return TariffStatusChange{}, err
	}
	return TariffStatusChange{Request: updated, Previous: prev, DriverTelegramID: types.TelegramID(tg), Notification: note}, nil
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var carID *string
	var cID, cName, cPlate, cVIN, cStatus *string
	err := row.Scan(
		&d.ID, &d.TelegramID, &d.Username, &d.FullName, &d.Phone, &d.Passport,
		&d.IsActive, &d.Tariff, &d.Rating, &d.Reviews, &carID, &d.CreatedAt,
		&cID, &cName, &cPlate, &cVIN, &cStatus,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if carID != nil {
		id := types.ID(*carID)
		d.CarID = &id
	}
	if cID != nil {
		d.Car = &Car{
			ID:       types.ID(*cID),
			DriverID: d.ID,
			Name:     deref(cName),
			Plate:    deref(cPlate),
			VIN:      deref(cVIN),
			Status:   ApprovalStatus(deref(cStatus)),
		}
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
