// Package pricing computes order totals. All amounts are rounded to cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"shopsphere/internal/models"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingCost      = decimal.NewFromInt(5)
	TaxRate               = decimal.RequireFromString("0.10")
)

type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// Calculate applies the flat shipping policy (free from 50) and 10% tax.
func Calculate(items []models.OrderItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	subtotal = subtotal.Round(2)

	shipping := FlatShippingCost
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
	}
}

// Apply copies the totals onto the order.
func (t Totals) Apply(o *models.Order) {
	o.Subtotal = t.Subtotal
	o.ShippingCost = t.ShippingCost
	o.Tax = t.Tax
	o.Total = t.Total
}
