package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Pricing holds the process-wide tax rate and flat delivery fee.
type Pricing struct {
	TaxRatePercent decimal.Decimal
	DeliveryFee    decimal.Decimal
}

// Totals computes the order money fields, each rounded to cents.
func (p Pricing) Totals(items []Item, orderType OrderType) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(p.TaxRatePercent).Div(hundred).Round(2)
	fee := decimal.Zero
	if orderType == TypeDelivery {
		fee = p.DeliveryFee.Round(2)
	}
	discount := decimal.Zero

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       subtotal.Add(tax).Add(fee).Sub(discount).Round(2),
	}
}
