package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCalculatePrices(t *testing.T) {
	tests := []struct {
		name     string
		purchase float64
		margin   float64
		vat      float64
		want     Prices
	}{
		{"defaults", 1000, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 1300, VAT: 247, Sale: 1547}},
		{"no margin", 10.01, 0, 19, Prices{Net: 10.01, VAT: 1.9, Sale: 11.91}},
		{"no vat", 99.99, 10, 0, Prices{Net: 109.99, VAT: 0, Sale: 109.99}},
		// exact half cents round away from zero
		{"net tie 2.665", 2.05, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 2.67, VAT: 0.51, Sale: 3.18}},
		{"net tie 1.495, vat tie 0.285", 1.15, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 1.5, VAT: 0.29, Sale: 1.79}},
		{"net tie 4.225", 3.25, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 4.23, VAT: 0.8, Sale: 5.03}},
		{"net tie 5.655", 4.35, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 5.66, VAT: 1.08, Sale: 6.74}},
		{"net tie 8.255", 6.35, DefaultMarginPercent, DefaultVATPercent, Prices{Net: 8.26, VAT: 1.57, Sale: 9.83}},
		{"vat tie", 10, 0, 5.05, Prices{Net: 10, VAT: 0.51, Sale: 10.51}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePrices(tt.purchase, tt.margin, tt.vat)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatePrices_Properties(t *testing.T) {
	halfCent := decimal.New(5, -3)

	rapid.Check(t, func(t *rapid.T) {
		purchase := rapid.IntRange(1, 100_000_000).Draw(t, "purchase_cents")
		margin := rapid.IntRange(0, 100_000).Draw(t, "margin_hundredths")
		vat := rapid.IntRange(0, 10_000).Draw(t, "vat_hundredths")

		dp, dm, dv := decimal.New(int64(purchase), -2), decimal.New(int64(margin), -2), decimal.New(int64(vat), -2)
		p := CalculatePrices(dp.InexactFloat64(), dm.InexactFloat64(), dv.InexactFloat64())
		net, tax, sale := decimal.NewFromFloat(p.Net), decimal.NewFromFloat(p.VAT), decimal.NewFromFloat(p.Sale)

		if !sale.Equal(net.Add(tax)) {
			t.Fatalf("sale %v != net %v + vat %v", sale, net, tax)
		}
		exactNet := dp.Add(dp.Mul(dm).Shift(-2))
		if net.Sub(exactNet).Abs().GreaterThan(halfCent) {
			t.Fatalf("net %v too far from %v", net, exactNet)
		}
		if exactNet.Sub(net).Equal(halfCent) {
			t.Fatalf("net %v rounded %v towards zero", net, exactNet)
		}
		exactVAT := net.Mul(dv).Shift(-2)
		if tax.Sub(exactVAT).Abs().GreaterThan(halfCent) || exactVAT.Sub(tax).Equal(halfCent) {
			t.Fatalf("vat %v is not %v rounded half up", tax, exactVAT)
		}
	})
}

func TestFilterApplyPricingAndClone(t *testing.T) {
	dist := int64(4)
	f := &Filter{
		PurchasePrice: 1000,
		MarginPercent: DefaultMarginPercent,
		VATPercent:    DefaultVATPercent,
		DistributorID: &dist,
		Category:      &Category{ID: 1, Name: "Aire"},
	}
	f.ApplyPricing()
	assert.Equal(t, 1547.0, f.SalePrice)

	c := f.Clone()
	*c.DistributorID = 9
	c.Category.Name = "Otro"
	assert.Equal(t, int64(4), *f.DistributorID)
	assert.Equal(t, "Aire", f.Category.Name)
	assert.Nil(t, (*Filter)(nil).Clone())
}
