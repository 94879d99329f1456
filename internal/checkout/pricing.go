package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// FreeShippingThreshold is exclusive: a subtotal of exactly 100 still pays shipping.
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// Item is a cart line as submitted to checkout.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Totals are the cent-rounded amounts charged for a checkout.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices items: shipping is waived above the threshold and tax
// applies to the subtotal only.
func ComputeTotals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)

	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// MinorUnits converts a currency amount to integer cents.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a currency amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// LineItems builds the provider line items: one per cart line, then shipping
// when charged, then tax.
func LineItems(items []Item, t Totals) []LineItem {
	out := make([]LineItem, 0, len(items)+2)
	for _, it := range items {
		out = append(out, LineItem{
			Name:        it.Name,
			Description: fmt.Sprintf("Size: %s, Color: %s", orNA(it.Size), orNA(it.Color)),
			UnitAmount:  MinorUnits(decimal.NewFromFloat(it.Price)),
			Quantity:    int64(it.Quantity),
		})
	}
	if t.Shipping.IsPositive() {
		out = append(out, LineItem{
			Name:        "Shipping",
			Description: "Standard shipping",
			UnitAmount:  MinorUnits(t.Shipping),
			Quantity:    1,
		})
	}
	out = append(out, LineItem{
		Name:        "Tax",
		Description: fmt.Sprintf("Sales tax (%s%%)", TaxRate.Shift(2).String()),
		UnitAmount:  MinorUnits(t.Tax),
		Quantity:    1,
	})
	return out
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
