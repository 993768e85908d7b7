// README: Tariff and order type enums shared by riders, drivers, orders and pricing.
package types

type Tariff string

const (
	TariffStandard Tariff = "standard"
	TariffUrgent   Tariff = "urgent"
)

func (t Tariff) Valid() bool {
	return t == TariffStandard || t == TariffUrgent
}

type OrderType string

const (
	OrderTaxi     OrderType = "taxi"
	OrderDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	return t == OrderTaxi || t == OrderDelivery
}
