package catalog

import "github.com/shopspring/decimal"

// Default pricing parameters applied when a filter is created without them.
const (
	DefaultMarginPercent = 30.0
	DefaultVATPercent    = 19.0
)

// Prices are the derived sale figures of a filter, rounded to cents.
type Prices struct {
	Net  float64
	VAT  float64
	Sale float64
}

// CalculatePrices derives net price (purchase plus margin), VAT amount and sale price.
// Inputs are taken at their shortest decimal representation and every step is
// computed exactly, rounding half away from zero to cents. Sale always equals
// Net + VAT to the cent.
func CalculatePrices(purchase, marginPercent, vatPercent float64) Prices {
	p := decimal.NewFromFloat(purchase)
	net := roundCents(p.Add(p.Mul(decimal.NewFromFloat(marginPercent)).Shift(-2)))
	vat := roundCents(net.Mul(decimal.NewFromFloat(vatPercent)).Shift(-2))
	return Prices{
		Net:  net.InexactFloat64(),
		VAT:  vat.InexactFloat64(),
		Sale: net.Add(vat).InexactFloat64(),
	}
}

// roundCents rounds half away from zero to two decimals.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
