// README: Order aggregate, status flow and claim outcomes.
package order

import (
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusCreated   Status = "created"
	StatusAssigned  Status = "assigned"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
)

type Order struct {
	ID                  types.ID
	Type                types.OrderType
	Tariff              types.Tariff
	RequesterID         types.ID
	RequesterTelegramID types.TelegramID
	DriverID            *types.ID
	Status              Status
	StatusVersion       int
	From                Place
	To                  Place
	DistanceM           int
	DurationS           int
	TravelMinutes       int
	Price               int64
	MissCount           int
	ActiveDriversCount  int
	CreatedAt           time.Time
	AssignedAt          *time.Time
	ConfirmedAt         *time.Time
	PaidAt              *time.Time
	CompletedAt         *time.Time
}

// Place is a canonical address with its coordinates.
type Place struct {
	Address string
	Point   types.Point
}

// Unassigned reports whether the order is still open for claims.
func (o *Order) Unassigned() bool {
	return o.DriverID == nil && o.Status == StatusCreated
}

// AssignedTo reports whether driverID holds the order.
func (o *Order) AssignedTo(driverID types.ID) bool {
	return o.DriverID != nil && *o.DriverID == driverID
}

func (o *Order) Card() notify.OrderCard {
	return notify.OrderCard{
		ID:            o.ID,
		Type:          o.Type,
		Tariff:        o.Tariff,
		From:          o.From.Address,
		To:            o.To.Address,
		Price:         o.Price,
		TravelMinutes: o.TravelMinutes,
	}
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

const (
	ActorRider  = "rider"
	ActorDriver = "driver"
	ActorSystem = "system"
)

// AllowedTransitions represents the order state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNone:     {StatusCreated},
	StatusCreated:  {StatusAssigned},
	StatusAssigned: {StatusPaid},
	StatusPaid:     {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type ClaimOutcome string

const (
	ClaimAssigned    ClaimOutcome = "assigned"
	ClaimAlreadyHeld ClaimOutcome = "already_held"
)

// Stats summarises a driver's completed orders over a period.
type Stats struct {
	Orders int
	Income int64
}
