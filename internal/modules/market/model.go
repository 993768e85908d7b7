// README: Marketplace product sold through the bot.
package market

import (
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Product struct {
	ID          types.ID
	Name        string
	Description string
	Price       int64
	Quantity    int
	CreatedAt   time.Time
}

func (p *Product) InStock() bool {
	return p.Quantity > 0
}
