// README: Ratings left after a completed order and the rating aggregate.
package review

import (
	"math"
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// RaterRole tells which side of the order left the review.
type RaterRole string

const (
	RoleRider  RaterRole = "rider"
	RoleDriver RaterRole = "driver"
)

type Review struct {
	ID        int64
	OrderID   types.ID
	RaterRole RaterRole
	RateeID   types.ID
	Score     int
	CreatedAt time.Time
}

// MeanRating averages scores rounded to one decimal. It returns nil for no scores.
func MeanRating(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	mean := math.Round(float64(sum)/float64(len(scores))*10) / 10
	return &mean
}
