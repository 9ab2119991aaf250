package reconcile

import (
	"errors"
	"testing"
	"time"

	"billing/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCanTransitionQuote(t *testing.T) {
	tests := []struct {
		from, to model.QuoteStatus
		allowed  bool
	}{
		{model.QuoteStatusDraft, model.QuoteStatusSent, true},
		{model.QuoteStatusDraft, model.QuoteStatusAccepted, true},
		{model.QuoteStatusDraft, model.QuoteStatusRejected, false},
		{model.QuoteStatusSent, model.QuoteStatusAccepted, true},
		{model.QuoteStatusSent, model.QuoteStatusRejected, true},
		{model.QuoteStatusSent, model.QuoteStatusExpired, true},
		{model.QuoteStatusSent, model.QuoteStatusDraft, false},
		{model.QuoteStatusAccepted, model.QuoteStatusSent, false},
		{model.QuoteStatusRejected, model.QuoteStatusAccepted, false},
		{model.QuoteStatusExpired, model.QuoteStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransitionQuote(tt.from, tt.to))
		})
	}
}

func TestCanTransitionInvoice(t *testing.T) {
	tests := []struct {
		from, to model.InvoiceStatus
		allowed  bool
	}{
		{model.InvoiceStatusDraft, model.InvoiceStatusSent, true},
		{model.InvoiceStatusDraft, model.InvoiceStatusPaid, false},
		{model.InvoiceStatusSent, model.InvoiceStatusOverdue, true},
		{model.InvoiceStatusSent, model.InvoiceStatusPaid, true},
		{model.InvoiceStatusOverdue, model.InvoiceStatusPaid, true},
		{model.InvoiceStatusOverdue, model.InvoiceStatusSent, false},
		{model.InvoiceStatusPaid, model.InvoiceStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransitionInvoice(tt.from, tt.to))
		})
	}
}

func TestCheckTransition_Override(t *testing.T) {
	err := CheckInvoiceTransition(model.InvoiceStatusPaid, model.InvoiceStatusSent, false)
	var transErr *TransitionError
	require.True(t, errors.As(err, &transErr))
	assert.Equal(t, model.DocumentInvoice, transErr.Kind)

	assert.NoError(t, CheckInvoiceTransition(model.InvoiceStatusPaid, model.InvoiceStatusSent, true))
	assert.NoError(t, CheckQuoteTransition(model.QuoteStatusAccepted, model.QuoteStatusDraft, true))

	// override never admits an unknown status
	assert.Error(t, CheckQuoteTransition(model.QuoteStatusDraft, model.QuoteStatus("void"), true))
	assert.Error(t, CheckInvoiceTransition(model.InvoiceStatusDraft, model.InvoiceStatus("void"), true))
}

func TestInvoiceStatusAfterPayment(t *testing.T) {
	total := dec("131.25")

	tests := []struct {
		name    string
		current model.InvoiceStatus
		paid    string
		want    model.InvoiceStatus
	}{
		{"partial on draft advances to sent", model.InvoiceStatusDraft, "100.00", model.InvoiceStatusSent},
		{"partial on sent stays sent", model.InvoiceStatusSent, "100.00", model.InvoiceStatusSent},
		{"partial on overdue becomes sent", model.InvoiceStatusOverdue, "100.00", model.InvoiceStatusSent},
		{"exact amount is paid", model.InvoiceStatusSent, "131.25", model.InvoiceStatusPaid},
		{"overpayment is paid", model.InvoiceStatusOverdue, "150.00", model.InvoiceStatusPaid},
		{"paid is never reverted", model.InvoiceStatusPaid, "100.00", model.InvoiceStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InvoiceStatusAfterPayment(tt.current, dec(tt.paid), total))
		})
	}
}

func TestRecheck(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	t.Run("paid invoice with retracted payment reverts to sent", func(t *testing.T) {
		inv := &model.Invoice{Status: model.InvoiceStatusPaid, TotalAmount: dec("131.25"), AmountPaid: dec("100"), DueDate: &tomorrow}
		assert.True(t, NeedsRecheck(inv))
		assert.Equal(t, model.InvoiceStatusSent, Recheck(inv, now))
	})

	t.Run("underpaid past due becomes overdue", func(t *testing.T) {
		inv := &model.Invoice{Status: model.InvoiceStatusPaid, TotalAmount: dec("10"), AmountPaid: dec("5"), DueDate: &yesterday}
		assert.Equal(t, model.InvoiceStatusOverdue, Recheck(inv, now))
	})

	t.Run("untouched draft stays draft", func(t *testing.T) {
		inv := &model.Invoice{Status: model.InvoiceStatusDraft, TotalAmount: dec("10"), AmountPaid: decimal.Zero}
		assert.False(t, NeedsRecheck(inv))
		assert.Equal(t, model.InvoiceStatusDraft, Recheck(inv, now))
	})

	t.Run("covered but not marked paid", func(t *testing.T) {
		inv := &model.Invoice{Status: model.InvoiceStatusSent, TotalAmount: dec("10"), AmountPaid: dec("10")}
		assert.True(t, NeedsRecheck(inv))
		assert.Equal(t, model.InvoiceStatusPaid, Recheck(inv, now))
	})
}

func TestIsOverdueAndExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	assert.False(t, IsOverdue(&model.Invoice{Status: model.InvoiceStatusSent, DueDate: &today}, now))
	assert.True(t, IsOverdue(&model.Invoice{Status: model.InvoiceStatusSent, DueDate: &yesterday}, now))
	assert.False(t, IsOverdue(&model.Invoice{Status: model.InvoiceStatusPaid, DueDate: &yesterday}, now))
	assert.False(t, IsOverdue(&model.Invoice{Status: model.InvoiceStatusSent}, now))

	assert.True(t, IsQuoteExpired(&model.Quote{Status: model.QuoteStatusSent, ValidUntil: &yesterday}, now))
	assert.False(t, IsQuoteExpired(&model.Quote{Status: model.QuoteStatusDraft, ValidUntil: &yesterday}, now))
	assert.False(t, IsQuoteExpired(&model.Quote{Status: model.QuoteStatusSent, ValidUntil: &today}, now))
}
