package round

import (
	"github.com/shopspring/decimal"
)

// CurrentPrice computes the price of a round after bidCount bids.
//
// The opening bid merely claims the player at the listed price, so it
// carries no increment: price(1) == basePrice exactly. Every later bid
// adds one fixed increment. Rounded to 2 decimal places.
func CurrentPrice(basePrice float64, bidCount int, increment float64) float64 {
	base := decimal.NewFromFloat(basePrice)
	if bidCount <= 1 {
		return base.Round(2).InexactFloat64()
	}
	inc := decimal.NewFromFloat(increment)
	price := base.Add(inc.Mul(decimal.NewFromInt(int64(bidCount - 1))))
	return price.Round(2).InexactFloat64()
}
