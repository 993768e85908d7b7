// README: Pure price function used once at order creation.
package pricing

import (
	"math"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// Price returns floor(base + PerKm*distanceKm + PerMinute*durationMin), where
// base is the configured base fare raised by UrgentSurcharge for urgent orders.
// Taxi and delivery orders share the formula, so the order type is ignored.
func Price(_ types.OrderType, tariff types.Tariff, distanceKm, durationMin float64, cfg Config) int64 {
	base := cfg.BaseFare
	if tariff == types.TariffUrgent {
		base *= UrgentSurcharge
	}
	total := base + cfg.PerKm*distanceKm + cfg.PerMinute*durationMin
	if total < 0 {
		return 0
	}
	// Round away float noise such as 196.99999999999997 before flooring.
	return int64(math.Floor(math.Round(total*1e6) / 1e6))
}
