// README: Rider aggregate (Telegram user placing orders and holding loyalty points).
package rider

import (
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Rider struct {
	ID           types.ID
	TelegramID   types.TelegramID
	Username     string
	Tariff       types.Tariff
	Points       int64
	LastPointsAt time.Time
	Rating       *float64
	Reviews      []int
	CreatedAt    time.Time
}
