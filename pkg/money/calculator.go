package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the currency's minor unit (cents, pesewas).
const MinorUnits = 2

// InputScale is the most decimal places accepted for quantities, prices, rates and payments.
// Line totals and subtotals carry up to twice this many.
const InputScale = 4

var hundred = decimal.NewFromInt(100)

// ErrNegative is wrapped by InvalidInputError when a quantity, price or rate is below zero.
var ErrNegative = errors.New("value must not be negative")

// InvalidInputError reports a caller error in calculator input
type InvalidInputError struct {
	Field string
	Index int // line position, -1 when the field is not per-line
	Err   error
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("line %d: %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// Line is one priced row fed into the calculator
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals holds the derived monetary fields of a document
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// LineTotal returns quantity * unitPrice without any rounding.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

// FitsScale reports whether d has no significant digits beyond InputScale.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(InputScale))
}

// Round rounds half-up to the currency minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// Calculate sums line totals exactly and applies taxPct once on the subtotal.
// Rounding happens only on the tax amount; line totals are never rounded.
func Calculate(lines []Line, taxPct decimal.Decimal) (Totals, error) {
	if taxPct.IsNegative() {
		return Totals{}, &InvalidInputError{Field: "tax_pct", Index: -1, Err: ErrNegative}
	}

	subtotal := decimal.Zero
	for i, l := range lines {
		if l.Quantity.IsNegative() {
			return Totals{}, &InvalidInputError{Field: "quantity", Index: i, Err: ErrNegative}
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, &InvalidInputError{Field: "unit_price", Index: i, Err: ErrNegative}
		}
		subtotal = subtotal.Add(LineTotal(l.Quantity, l.UnitPrice))
	}

	tax := Round(subtotal.Mul(taxPct).Div(hundred))

	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
	}, nil
}
