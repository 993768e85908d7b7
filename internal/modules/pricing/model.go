// README: Pricing configuration record and the tariff surcharge.
package pricing

import "time"

// UrgentSurcharge multiplies the base fare for the urgent tariff.
const UrgentSurcharge = 1.27

// Config is the singleton row of tunable pricing parameters.
type Config struct {
	BaseFare  float64
	PerKm     float64
	PerMinute float64
	UpdatedAt time.Time
}

// DefaultConfig is inserted when no row exists yet.
var DefaultConfig = Config{
	BaseFare:  100,
	PerKm:     10,
	PerMinute: 2,
}

// Quote is a computed price with the inputs it was computed from.
type Quote struct {
	Price       int64
	DistanceKm  float64
	DurationMin float64
	Config      Config
}
