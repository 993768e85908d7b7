// README: Common value objects (ids, points, money) used across modules.
package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ID is an opaque entity identifier (32 hex chars for generated ids).
type ID string

// TelegramID identifies a Telegram chat or user.
type TelegramID int64

type Point struct {
	Lat float64
	Lng float64
}

// String renders the point as "lat,lng", the form routing providers accept.
func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

type Money struct {
	Amount   int64
	Currency string
}

func NewID() ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return ID(hex.EncodeToString(b[:]))
}
