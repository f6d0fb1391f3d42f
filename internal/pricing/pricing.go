package pricing

import "math"

// Line is a (unit price, quantity) pair taken from an order's line items.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Totals is the computed price breakdown for an order.
type Totals struct {
	ItemsPrice    float64 `json:"items_price"`
	ShippingPrice float64 `json:"shipping_price"`
	TaxPrice      float64 `json:"tax_price"`
	TotalPrice    float64 `json:"total_price"`
}

// Calc computes the price breakdown for a set of order lines. Shipping and
// tax are fixed at zero in this deployment. Every component is rounded to
// two decimal places before it is combined into the total.
func Calc(lines []Line) Totals {
	var items float64
	for _, l := range lines {
		items += l.UnitPrice * float64(l.Quantity)
	}
	items = round2(items)

	shipping := round2(0)
	tax := round2(0)

	return Totals{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    round2(items + shipping + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
