// README: Payments, loyalty point rules and the write-off cap.
package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type PaymentType string

const (
	TypeTaxi     PaymentType = "taxi"
	TypeDelivery PaymentType = "delivery"
	TypeProduct  PaymentType = "product"
)

type PaymentStatus string

const (
	StatusNotPaid   PaymentStatus = "not_paid"
	StatusPaid      PaymentStatus = "paid"
	StatusCancelled PaymentStatus = "cancelled"
)

// Metadata keys understood by confirmation.
const (
	MetaAddress  = "address"
	MetaPhone    = "phone"
	MetaUsername = "username"
)

type Payment struct {
	ID              types.ID
	Type            PaymentType
	OrderID         *types.ID
	ProductID       *types.ID
	PayerID         types.ID
	Amount          int64
	Currency        string
	Status          PaymentStatus
	ProviderTxID    *string
	ConfirmationURL string
	PointsToCredit  int64
	PointsSpent     int64
	Metadata        map[string]string
	CreatedAt       time.Time
	PaidAt          *time.Time
}

func (p *Payment) Paid() bool {
	return p.Status == StatusPaid
}

// Intent is a created payment together with the provider checkout link.
type Intent struct {
	Payment *Payment
	URL     string
}

// OrderPoints is the credit for an order payment: half of what the price
// exceeds the base fare, floored.
func OrderPoints(price int64, baseFare float64) int64 {
	diff := float64(price) - baseFare
	if diff <= 0 {
		return 0
	}
	return int64(diff / 2)
}

func ProductPoints(price, percent int64) int64 {
	if price <= 0 || percent <= 0 {
		return 0
	}
	return price * percent / 100
}

// CheckWriteOff allows spending at most half of the price in points.
func CheckWriteOff(price, points int64) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	if points*2 > price {
		return ErrPointsCapExceeded
	}
	return nil
}

// ParsePoints reads a positive point amount typed by the rider.
func ParsePoints(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidPoints
	}
	return n, nil
}
