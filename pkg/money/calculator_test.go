package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	t.Run("two lines with five percent tax", func(t *testing.T) {
		totals, err := Calculate([]Line{
			{Quantity: d("2"), UnitPrice: d("50.00")},
			{Quantity: d("1"), UnitPrice: d("25.00")},
		}, d("5"))
		require.NoError(t, err)

		assert.True(t, d("125.00").Equal(totals.Subtotal), totals.Subtotal.String())
		assert.True(t, d("6.25").Equal(totals.TaxAmount), totals.TaxAmount.String())
		assert.True(t, d("131.25").Equal(totals.TotalAmount), totals.TotalAmount.String())
	})

	t.Run("empty lines give zero totals", func(t *testing.T) {
		totals, err := Calculate(nil, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.TotalAmount.IsZero())
	})

	t.Run("many small lines do not drift", func(t *testing.T) {
		lines := make([]Line, 0, 1000)
		for i := 0; i < 1000; i++ {
			lines = append(lines, Line{Quantity: d("1"), UnitPrice: d("0.10")})
		}
		totals, err := Calculate(lines, d("12.5"))
		require.NoError(t, err)

		assert.True(t, d("100.00").Equal(totals.Subtotal), totals.Subtotal.String())
		assert.True(t, d("12.50").Equal(totals.TaxAmount), totals.TaxAmount.String())
		assert.True(t, d("112.50").Equal(totals.TotalAmount), totals.TotalAmount.String())
	})

	t.Run("tax rounded once on the subtotal", func(t *testing.T) {
		// Per-line rounding would give 0.02 + 0.02 + 0.02 = 0.06.
		totals, err := Calculate([]Line{
			{Quantity: d("1"), UnitPrice: d("0.15")},
			{Quantity: d("1"), UnitPrice: d("0.15")},
			{Quantity: d("1"), UnitPrice: d("0.15")},
		}, d("10"))
		require.NoError(t, err)

		assert.True(t, d("0.45").Equal(totals.Subtotal))
		assert.True(t, d("0.05").Equal(totals.TaxAmount), totals.TaxAmount.String())
		assert.True(t, d("0.50").Equal(totals.TotalAmount))
	})

	t.Run("fractional quantity keeps exact line total", func(t *testing.T) {
		totals, err := Calculate([]Line{{Quantity: d("1.5"), UnitPrice: d("3.33")}}, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, d("4.995").Equal(totals.Subtotal), totals.Subtotal.String())
	})
}

func TestCalculate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		tax   decimal.Decimal
		field string
		index int
	}{
		{"negative quantity", []Line{{Quantity: d("-1"), UnitPrice: d("1")}}, decimal.Zero, "quantity", 0},
		{"negative price", []Line{{Quantity: d("1"), UnitPrice: d("1")}, {Quantity: d("1"), UnitPrice: d("-0.01")}}, decimal.Zero, "unit_price", 1},
		{"negative tax", nil, d("-5"), "tax_pct", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.lines, tt.tax)
			require.Error(t, err)

			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.field, inputErr.Field)
			assert.Equal(t, tt.index, inputErr.Index)
			assert.ErrorIs(t, err, ErrNegative)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, "0.13", Round(d("0.125")).String())
	assert.Equal(t, "6.25", Round(d("6.25")).StringFixed(2))
	assert.Equal(t, "1.00", Round(d("0.995")).StringFixed(2))
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(d("0.1234")))
	assert.True(t, FitsScale(d("2.50000")), "trailing zeros are not significant")
	assert.True(t, FitsScale(d("-3")))
	assert.False(t, FitsScale(d("0.12345")))
}
