package invoice_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/invisifeed/invisifeed/internal/invoice"
)

func item(qty, rate, discount, tax int64) invoice.Item {
	return invoice.Item{
		Description: "line",
		Quantity:    decimal.NewFromInt(qty),
		Rate:        decimal.NewFromInt(rate),
		Discount:    decimal.NewFromInt(discount),
		Tax:         decimal.NewFromInt(tax),
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name  string
		items []invoice.Item
		want  [4]string
	}{
		{
			name:  "TwoItems",
			items: []invoice.Item{item(2, 100, 10, 5), item(1, 50, 0, 0)},
			want:  [4]string{"250", "20", "9", "239"},
		},
		{
			name:  "Empty",
			items: nil,
			want:  [4]string{"0", "0", "0", "0"},
		},
		{
			name: "FractionalRounding",
			items: []invoice.Item{{
				Quantity: decimal.RequireFromString("3"),
				Rate:     decimal.RequireFromString("33.33"),
				Discount: decimal.RequireFromString("12.5"),
				Tax:      decimal.RequireFromString("18"),
			}},
			want: [4]string{"99.99", "12.5", "15.75", "103.24"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := invoice.ComputeTotals(tt.items)

			assert.Equal(t, tt.want[0], got.Subtotal.String(), "subtotal")
			assert.Equal(t, tt.want[1], got.Discount.String(), "discount")
			assert.Equal(t, tt.want[2], got.Tax.String(), "tax")
			assert.Equal(t, tt.want[3], got.GrandTotal.String(), "grand total")
		})
	}
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	items := []invoice.Item{item(2, 100, 10, 5), item(1, 50, 0, 0), item(7, 13, 3, 18)}
	reversed := []invoice.Item{items[2], items[1], items[0]}

	assert.Equal(t, invoice.ComputeTotals(items), invoice.ComputeTotals(reversed))
}

func TestInvoice_Amount(t *testing.T) {
	built := &invoice.Invoice{Items: []invoice.Item{item(2, 100, 10, 5)}}
	built.Recalculate()
	assert.Equal(t, "189", built.Amount().String())

	uploaded := &invoice.Invoice{CustomerAmount: decimal.NewFromInt(420)}
	assert.Equal(t, "420", uploaded.Amount().String())
}
