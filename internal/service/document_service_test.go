package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuote(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := WithActor(context.Background(), "staff-1")

	quote, err := env.docs.CreateQuote(ctx, QuoteSpec{
		Items:   scenarioItems(),
		TaxPct:  decPtr("5"),
		Billing: BillingInfo{Name: "Kofi", Phone: "0244111222"},
		Notes:   "deliver friday",
	})
	require.NoError(t, err)

	assert.Equal(t, "QT-20260310-00001", quote.QuoteNo)
	assert.Equal(t, model.QuoteStatusDraft, quote.Status)
	assert.Equal(t, "staff-1", quote.CreatedBy)
	assertMoney(t, "125.00", quote.Subtotal)
	assertMoney(t, "6.25", quote.TaxAmount)
	assertMoney(t, "131.25", quote.TotalAmount)
	require.NotNil(t, quote.ValidUntil)
	assert.True(t, time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC).Equal(*quote.ValidUntil), quote.ValidUntil.String())

	stored, err := env.docs.GetQuote(ctx, quote.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Widget", stored.Items[0].Description)
	assert.Equal(t, "Gadget", stored.Items[1].Description)
	assertMoney(t, "100", stored.Items[0].TotalPrice)
	assertMoney(t, "131.25", stored.TotalAmount)

	second, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "Esi"}})
	require.NoError(t, err)
	assert.Equal(t, "QT-20260310-00002", second.QuoteNo)
	assertMoney(t, "0", second.TaxAmount)

	logs, total, err := env.audit.GetAuditLogs(ctx, quote.ID.String(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.ActionCreateQuote, logs[0].Action)
	assert.Equal(t, "staff-1", logs[0].ActorID)
}

func TestCreateInvoice_FillsBillingFromCustomer(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	customer := env.createCustomer(t)

	inv, err := env.docs.CreateInvoice(ctx, InvoiceSpec{
		UserID: &customer.ID,
		Items:  scenarioItems(),
		TaxPct: decPtr("5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-20260310-00001", inv.InvoiceNo)
	assert.Equal(t, "Mensah Trading", inv.BillingName)
	assert.Equal(t, "+233200000000", inv.BillingPhone)
	assert.Equal(t, "12 Ring Road, Accra", inv.BillingAddress)
	assert.Equal(t, model.InvoiceStatusDraft, inv.Status)
	assertMoney(t, "0", inv.AmountPaid)
	require.NotNil(t, inv.DueDate)
	assert.True(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC).Equal(*inv.DueDate), inv.DueDate.String())
}

func TestCreateInvoice_InvalidInput(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	walkIn := BillingInfo{Name: "Walk-in"}

	tests := []struct {
		name  string
		spec  InvoiceSpec
		field string
	}{
		{"no items", InvoiceSpec{Billing: walkIn}, "items"},
		{"zero quantity", InvoiceSpec{Billing: walkIn, Items: []LineItemInput{{Description: "x", Quantity: dec("0"), UnitPrice: dec("1")}}}, "items[0].quantity"},
		{"negative price", InvoiceSpec{Billing: walkIn, Items: []LineItemInput{
			{Description: "x", Quantity: dec("1"), UnitPrice: dec("1")},
			{Description: "y", Quantity: dec("1"), UnitPrice: dec("-1")},
		}}, "items[1].unit_price"},
		{"blank description", InvoiceSpec{Billing: walkIn, Items: []LineItemInput{{Description: "  ", Quantity: dec("1"), UnitPrice: dec("1")}}}, "items[0].description"},
		{"negative tax", InvoiceSpec{Billing: walkIn, Items: scenarioItems(), TaxPct: decPtr("-5")}, "tax_pct"},
		{"walk-in without name", InvoiceSpec{Items: scenarioItems()}, "billing_name"},
		{"paid on creation", InvoiceSpec{Billing: walkIn, Items: scenarioItems(), Status: "paid"}, "status"},
		{"quantity past four places", InvoiceSpec{Billing: walkIn, Items: []LineItemInput{{Description: "x", Quantity: dec("1.00005"), UnitPrice: dec("1")}}}, "items[0].quantity"},
		{"price past four places", InvoiceSpec{Billing: walkIn, Items: []LineItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("0.12345")}}}, "items[0].unit_price"},
		{"tax past four places", InvoiceSpec{Billing: walkIn, Items: scenarioItems(), TaxPct: decPtr("12.50001")}, "tax_pct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.docs.CreateInvoice(ctx, tt.spec)
			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}

	assert.Zero(t, env.count(t, &model.Invoice{}, "1 = 1"))
}

func TestCreateInvoice_StoredLineTotalsMatchSubtotal(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	inv, err := env.docs.CreateInvoice(ctx, InvoiceSpec{
		Items: []LineItemInput{
			{Description: "Offcut", Quantity: dec("0.125"), UnitPrice: dec("0.125")},
			{Description: "Offcut", Quantity: dec("0.125"), UnitPrice: dec("0.125")},
			{Description: "Trailing zeros", Quantity: dec("2.50000"), UnitPrice: dec("1")},
		},
		Billing: BillingInfo{Name: "x"},
	})
	require.NoError(t, err)

	stored, err := env.docs.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	sum := dec("0")
	for _, item := range stored.Items {
		sum = sum.Add(item.TotalPrice)
	}
	assertMoney(t, "0.015625", stored.Items[0].TotalPrice)
	assertMoney(t, "2.53125", stored.Amount)
	assertMoney(t, stored.Amount.String(), sum, "line totals must add up to the stored subtotal")
}

func TestCreateInvoice_UnknownReferences(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	missing := uuid.New()

	_, err := env.docs.CreateInvoice(ctx, InvoiceSpec{UserID: &missing, Items: scenarioItems()})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "customer", nf.Entity)

	_, err = env.docs.CreateInvoice(ctx, InvoiceSpec{TaxRuleID: &missing, Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "tax rule", nf.Entity)
}

func TestCreateInvoice_TaxRule(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	rule, err := env.taxes.CreateTaxRule(ctx, CreateTaxRuleRequest{Name: "vat", RatePct: "12.5", EffectiveFrom: "2026-01-01"})
	require.NoError(t, err)
	ruleID := uuid.MustParse(rule.ID)

	inv, err := env.docs.CreateInvoice(ctx, InvoiceSpec{
		TaxRuleID: &ruleID,
		Items:     []LineItemInput{{Description: "Service", Quantity: dec("1"), UnitPrice: dec("100")}},
		Billing:   BillingInfo{Name: "x"},
	})
	require.NoError(t, err)
	assertMoney(t, "12.50", inv.TaxAmount)
	assertMoney(t, "112.50", inv.TotalAmount)

	_, err = env.docs.CreateInvoice(ctx, InvoiceSpec{
		TaxRuleID: &ruleID,
		TaxPct:    decPtr("5"),
		Items:     scenarioItems(),
		Billing:   BillingInfo{Name: "x"},
	})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "tax_pct", inputErr.Field)

	expired, err := env.taxes.CreateTaxRule(ctx, CreateTaxRuleRequest{Name: "NHIL", RatePct: "2.5", EffectiveFrom: "2025-01-01", EffectiveTo: "2025-12-31"})
	require.NoError(t, err)
	expiredID := uuid.MustParse(expired.ID)
	_, err = env.docs.CreateInvoice(ctx, InvoiceSpec{TaxRuleID: &expiredID, Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "tax_rule_id", inputErr.Field)
}

func TestCreateInvoice_TaxRuleOnLastDay(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	rule, err := env.taxes.CreateTaxRule(ctx, CreateTaxRuleRequest{Name: "COVID", RatePct: "1", EffectiveFrom: "2026-01-01", EffectiveTo: "2026-03-10"})
	require.NoError(t, err)
	ruleID := uuid.MustParse(rule.ID)

	inv, err := env.docs.CreateInvoice(ctx, InvoiceSpec{
		TaxRuleID: &ruleID,
		Items:     []LineItemInput{{Description: "Service", Quantity: dec("1"), UnitPrice: dec("100")}},
		Billing:   BillingInfo{Name: "x"},
	})
	require.NoError(t, err, "testNow is 09:30 on the rule's last day")
	assertMoney(t, "1", inv.TaxAmount)
}

func TestGetInvoice_NotFound(t *testing.T) {
	env := newTestEnv(t, false)
	id := uuid.New()

	_, err := env.docs.GetInvoice(context.Background(), id)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "invoice", nf.Entity)
	assert.Equal(t, id.String(), nf.ID)

	_, err = env.docs.GetDocument(context.Background(), DocumentRef{Kind: model.DocumentQuote, ID: id})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "quote", nf.Entity)
}

func TestGetDocument(t *testing.T) {
	env := newTestEnv(t, false)
	inv := env.createSentInvoice(t)

	doc, err := env.docs.GetDocument(context.Background(), DocumentRef{Kind: model.DocumentInvoice, ID: inv.ID})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentInvoice, doc.Kind())
	assert.Equal(t, inv.InvoiceNo, doc.Number())
	assert.Len(t, doc.Lines(), 2)
	assertMoney(t, "131.25", doc.Totals().TotalAmount)
	assert.Equal(t, "sent", doc.StatusValue())

	_, err = env.docs.GetDocument(context.Background(), DocumentRef{Kind: "receipt", ID: inv.ID})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
}

func TestUpdateStatus_Invoice(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	ref := DocumentRef{Kind: model.DocumentInvoice, ID: inv.ID}

	t.Run("same status is a no-op", func(t *testing.T) {
		require.NoError(t, env.docs.UpdateStatus(ctx, ref, "sent", false))
	})

	t.Run("illegal move is rejected", func(t *testing.T) {
		err := env.docs.UpdateStatus(ctx, ref, "draft", false)
		var inputErr *InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "status", inputErr.Field)
	})

	t.Run("unknown status is rejected even with override", func(t *testing.T) {
		err := env.docs.UpdateStatus(ctx, ref, "cancelled", true)
		var inputErr *InvalidInputError
		require.True(t, errors.As(err, &inputErr))
	})

	t.Run("paid needs the balance covered", func(t *testing.T) {
		err := env.docs.UpdateStatus(ctx, ref, "paid", false)
		var inputErr *InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Contains(t, inputErr.Reason, "131.25")
	})

	t.Run("override forces paid and stamps paid date", func(t *testing.T) {
		require.NoError(t, env.docs.UpdateStatus(ctx, ref, "paid", true))
		got, err := env.docs.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceStatusPaid, got.Status)
		require.NotNil(t, got.PaidDate)
	})

	t.Run("paid is terminal in normal flow", func(t *testing.T) {
		err := env.docs.UpdateStatus(ctx, ref, "sent", false)
		var inputErr *InvalidInputError
		require.True(t, errors.As(err, &inputErr))
	})

	t.Run("missing invoice", func(t *testing.T) {
		err := env.docs.UpdateStatus(ctx, DocumentRef{Kind: model.DocumentInvoice, ID: uuid.New()}, "sent", false)
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
	})

	assert.Contains(t, env.events.names(), EventStatusChanged)
}

func TestUpdateStatus_Quote(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	quote, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.NoError(t, err)
	ref := DocumentRef{Kind: model.DocumentQuote, ID: quote.ID}

	require.NoError(t, env.docs.UpdateStatus(ctx, ref, "sent", false))
	require.NoError(t, env.docs.UpdateStatus(ctx, ref, "rejected", false))

	err = env.docs.UpdateStatus(ctx, ref, "accepted", false)
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr), "rejected is terminal")

	require.NoError(t, env.docs.UpdateStatus(ctx, ref, "sent", true))
	got, err := env.docs.GetQuote(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusSent, got.Status)
}

func TestCreateInvoice_ItemFailureRollsBackInTransaction(t *testing.T) {
	env := newTestEnv(t, false)
	env.inject.failCreate("invoice_items")

	_, err := env.docs.CreateInvoice(context.Background(), InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	var partial *PartialWriteError
	assert.False(t, errors.As(err, &partial))
	assert.Zero(t, env.count(t, &model.Invoice{}, "1 = 1"), "header rolled back with its items")
}

func TestCreateInvoice_PartialWriteWithoutTransaction(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.inject.failCreate("invoice_items")

	_, err := env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), TaxPct: decPtr("5"), Billing: BillingInfo{Name: "x"}})
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial), "got %v", err)
	assert.Equal(t, "invoice", partial.Kind)
	assert.Equal(t, "items", partial.Step)
	assert.ErrorIs(t, err, errInjected)

	orphan, err := env.docs.GetInvoice(ctx, partial.ParentID)
	require.NoError(t, err, "the orphan is left for the caller")
	assert.Empty(t, orphan.Items)
	assertMoney(t, "131.25", orphan.TotalAmount)

	t.Run("retry completes the orphan", func(t *testing.T) {
		env.inject.clear()

		_, err := env.docs.RetryInvoiceItems(ctx, orphan.ID, []LineItemInput{{Description: "Other", Quantity: dec("1"), UnitPrice: dec("1")}})
		var inputErr *InvalidInputError
		require.True(t, errors.As(err, &inputErr), "items must reproduce the stored subtotal")

		fixed, err := env.docs.RetryInvoiceItems(ctx, orphan.ID, scenarioItems())
		require.NoError(t, err)
		require.Len(t, fixed.Items, 2)

		_, err = env.docs.RetryInvoiceItems(ctx, orphan.ID, scenarioItems())
		require.True(t, errors.As(err, &inputErr), "a complete document cannot be retried")
	})
}

func TestCreateQuote_PartialWriteThenDelete(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.inject.failCreate("quote_items")

	_, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "quote", partial.Kind)

	env.inject.clear()
	require.NoError(t, env.docs.DeleteQuote(ctx, partial.ParentID))

	_, err = env.docs.GetQuote(ctx, partial.ParentID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestRetryQuoteItems(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.inject.failCreate("quote_items")

	_, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), TaxPct: decPtr("5"), Billing: BillingInfo{Name: "x"}})
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial), "got %v", err)
	env.inject.clear()

	_, err = env.docs.RetryQuoteItems(ctx, partial.ParentID, []LineItemInput{{Description: "Other", Quantity: dec("1"), UnitPrice: dec("1")}})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr), "items must reproduce the stored subtotal")
	assert.Zero(t, env.count(t, &model.QuoteItem{}, "quote_id = ?", partial.ParentID))

	fixed, err := env.docs.RetryQuoteItems(ctx, partial.ParentID, scenarioItems())
	require.NoError(t, err)
	require.Len(t, fixed.Items, 2)

	_, err = env.docs.RetryQuoteItems(ctx, partial.ParentID, scenarioItems())
	require.True(t, errors.As(err, &inputErr), "a complete document cannot be retried")
	assert.Equal(t, int64(2), env.count(t, &model.QuoteItem{}, "quote_id = ?", partial.ParentID))

	_, err = env.docs.RetryQuoteItems(ctx, uuid.New(), scenarioItems())
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestDeleteInvoice_Cascades(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)

	_, err := env.payments.AddPayment(ctx, AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("10"), Method: "cash"})
	require.NoError(t, err)

	require.NoError(t, env.docs.DeleteInvoice(ctx, inv.ID))

	assert.Zero(t, env.count(t, &model.Invoice{}, "id = ?", inv.ID))
	assert.Zero(t, env.count(t, &model.InvoiceItem{}, "invoice_id = ?", inv.ID))
	assert.Zero(t, env.count(t, &model.Payment{}, "invoice_id = ?", inv.ID))

	err = env.docs.DeleteInvoice(ctx, inv.ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestDocumentNumbers_SkipDeletedGaps(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	first, err := env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "a"}})
	require.NoError(t, err)
	_, err = env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "b"}})
	require.NoError(t, err)
	require.NoError(t, env.docs.DeleteInvoice(ctx, first.ID))

	third, err := env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "c"}})
	require.NoError(t, err)
	assert.Equal(t, "INV-20260310-00003", third.InvoiceNo)

	q1, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "a"}})
	require.NoError(t, err)
	_, err = env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "b"}})
	require.NoError(t, err)
	require.NoError(t, env.docs.DeleteQuote(ctx, q1.ID))

	q3, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "c"}})
	require.NoError(t, err)
	assert.Equal(t, "QT-20260310-00003", q3.QuoteNo)
}

func TestListInvoices(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	env.createSentInvoice(t)
	_, err := env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.NoError(t, err)

	all, total, err := env.docs.ListInvoices(ctx, InvoiceFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	sent, total, err := env.docs.ListInvoices(ctx, InvoiceFilter{Status: "sent", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Items, 2)

	_, _, err = env.docs.ListInvoices(ctx, InvoiceFilter{Status: "void", Page: 1, Limit: 10})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
}

func TestMarkOverdue(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	past := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late, err := env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), DueDate: &past, Status: "sent", Billing: BillingInfo{Name: "x"}})
	require.NoError(t, err)
	_, err = env.docs.CreateInvoice(ctx, InvoiceSpec{Items: scenarioItems(), DueDate: &past, Billing: BillingInfo{Name: "draft"}})
	require.NoError(t, err)
	onTime := env.createSentInvoice(t)

	moved, err := env.docs.MarkOverdue(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	got, err := env.docs.GetInvoice(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusOverdue, got.Status)

	got, err = env.docs.GetInvoice(ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusSent, got.Status)

	moved, err = env.docs.MarkOverdue(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestExpireQuotes(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	validUntil := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	stale, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), ValidUntil: &validUntil, Status: "sent", Billing: BillingInfo{Name: "x"}})
	require.NoError(t, err)
	fresh, err := env.docs.CreateQuote(ctx, QuoteSpec{Items: scenarioItems(), Status: "sent", Billing: BillingInfo{Name: "y"}})
	require.NoError(t, err)

	moved, err := env.docs.ExpireQuotes(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	got, err := env.docs.GetQuote(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusExpired, got.Status)

	got, err = env.docs.GetQuote(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusSent, got.Status)
}
