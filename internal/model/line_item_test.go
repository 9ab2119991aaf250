package model

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// Quantity and unit price accept four places, so their exact product needs eight.
func TestDerivedAmountColumnsHoldExactProducts(t *testing.T) {
	tests := []struct {
		model  interface{}
		fields []string
	}{
		{&QuoteItem{}, []string{"TotalPrice"}},
		{&InvoiceItem{}, []string{"TotalPrice"}},
		{&Quote{}, []string{"Subtotal", "TotalAmount"}},
		{&Invoice{}, []string{"Amount", "TotalAmount"}},
	}

	for _, tt := range tests {
		s, err := schema.Parse(tt.model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		for _, name := range tt.fields {
			field := s.LookUpField(name)
			require.NotNil(t, field, "%s.%s", s.Name, name)
			assert.Equal(t, "decimal(24,8)", field.TagSettings["TYPE"], "%s.%s", s.Name, name)
		}
	}
}

func TestLineItemTotalIsExact(t *testing.T) {
	item := InvoiceItem{LineItem: LineItem{Quantity: decimal.RequireFromString("0.125"), UnitPrice: decimal.RequireFromString("0.125")}}
	require.NoError(t, item.BeforeCreate(nil))
	assert.Equal(t, "0.015625", item.TotalPrice.String())
}
