// README: Driver, car and tariff change request aggregates.
package driver

import (
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Driver struct {
	ID         types.ID
	TelegramID types.TelegramID
	Username   string
	FullName   string
	Phone      string
	Passport   string
	IsActive   bool
	Tariff     types.Tariff
	Rating     *float64
	Reviews    []int
	CarID      *types.ID
	// Car is the approved car linked to the driver, when loaded.
	Car       *Car
	CreatedAt time.Time
}

// HasApprovedCar reports whether the linked car passed verification.
func (d *Driver) HasApprovedCar() bool {
	return d.Car != nil && d.Car.Status == StatusApproved
}

// Eligible reports whether the driver may receive dispatch offers.
func (d *Driver) Eligible() bool {
	return d.IsActive && d.HasApprovedCar()
}

type Car struct {
	ID        types.ID
	DriverID  types.ID
	Name      string
	Plate     string
	VIN       string
	Status    ApprovalStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TariffRequest struct {
	ID        types.ID
	DriverID  types.ID
	Tariff    types.Tariff
	Status    ApprovalStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
