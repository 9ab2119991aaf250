package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"billing/internal/model"
	"billing/internal/reconcile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pay(t *testing.T, env *testEnv, invoiceID uuid.UUID, amount string) *model.Payment {
	t.Helper()
	p, err := env.payments.AddPayment(context.Background(), AddPaymentRequest{
		InvoiceID: invoiceID,
		Amount:    dec(amount),
		Method:    "cash",
	})
	require.NoError(t, err)
	return p
}

func reload(t *testing.T, env *testEnv, id uuid.UUID) *model.Invoice {
	t.Helper()
	inv, err := env.docs.GetInvoice(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func TestAddPayment_PartialThenFull(t *testing.T) {
	env := newTestEnv(t, false)
	inv := env.createSentInvoice(t)

	pay(t, env, inv.ID, "100.00")
	got := reload(t, env, inv.ID)
	assertMoney(t, "100.00", got.AmountPaid)
	assert.Equal(t, model.InvoiceStatusSent, got.Status)
	assert.Nil(t, got.PaidDate)

	pay(t, env, inv.ID, "31.25")
	got = reload(t, env, inv.ID)
	assertMoney(t, "131.25", got.AmountPaid)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
	require.NotNil(t, got.PaidDate)

	assert.Equal(t, []string{EventStatusChanged, EventPaymentRecorded, EventPaymentRecorded, EventInvoicePaid}, env.events.names())
}

func TestDeletePayment_KeepsPaidStatus(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)

	pay(t, env, inv.ID, "100.00")
	last := pay(t, env, inv.ID, "31.25")
	require.Equal(t, model.InvoiceStatusPaid, reload(t, env, inv.ID).Status)

	require.NoError(t, env.payments.DeletePayment(ctx, last.ID, inv.ID))

	got := reload(t, env, inv.ID)
	assertMoney(t, "100.00", got.AmountPaid)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status, "a retraction does not revert paid")
	assert.True(t, reconcile.NeedsRecheck(got), "paid while underpaid must be flagged")

	t.Run("re-check reverts to sent", func(t *testing.T) {
		rechecked, err := env.payments.RecheckStatus(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceStatusSent, rechecked.Status)
		assert.Nil(t, rechecked.PaidDate)

		got := reload(t, env, inv.ID)
		assert.Equal(t, model.InvoiceStatusSent, got.Status)
		assertMoney(t, "100.00", got.AmountPaid)
		assert.Nil(t, got.PaidDate)
		assert.False(t, reconcile.NeedsRecheck(got))
	})

	assert.Contains(t, env.events.names(), EventPaymentDeleted)
}

func TestAddPayment_PaidIffCovered(t *testing.T) {
	env := newTestEnv(t, false)
	inv := env.createSentInvoice(t)

	for _, amount := range []string{"0.01", "50", "31.23", "49.99", "0.01", "0.01", "10"} {
		pay(t, env, inv.ID, amount)
		got := reload(t, env, inv.ID)
		covered := got.AmountPaid.GreaterThanOrEqual(got.TotalAmount)
		assert.Equal(t, covered, got.Status == model.InvoiceStatusPaid,
			"after paying %s: amount_paid=%s status=%s", amount, got.AmountPaid, got.Status)
	}

	got := reload(t, env, inv.ID)
	assertMoney(t, "141.25", got.AmountPaid)
	assertMoney(t, "-10", got.Balance(), "overpayment stays on the ledger")
}

func TestAddPayment_DraftMovesToSent(t *testing.T) {
	env := newTestEnv(t, false)
	inv, err := env.docs.CreateInvoice(context.Background(), InvoiceSpec{Items: scenarioItems(), Billing: BillingInfo{Name: "x"}})
	require.NoError(t, err)

	pay(t, env, inv.ID, "10")
	assert.Equal(t, model.InvoiceStatusSent, reload(t, env, inv.ID).Status)
}

func TestAddPayment_OverdueStaysOpen(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	require.NoError(t, env.docs.UpdateStatus(ctx, DocumentRef{Kind: model.DocumentInvoice, ID: inv.ID}, "overdue", false))

	pay(t, env, inv.ID, "10")
	assert.Equal(t, model.InvoiceStatusSent, reload(t, env, inv.ID).Status)

	pay(t, env, inv.ID, "121.25")
	assert.Equal(t, model.InvoiceStatusPaid, reload(t, env, inv.ID).Status)
}

func TestAddPayment_InvalidInput(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)

	tests := []struct {
		name  string
		req   AddPaymentRequest
		field string
	}{
		{"zero amount", AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("0"), Method: "cash"}, "amount"},
		{"negative amount", AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("-5"), Method: "cash"}, "amount"},
		{"amount past four places", AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("10.00001"), Method: "cash"}, "amount"},
		{"unknown method", AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("5"), Method: "barter"}, "method"},
		{"mobile money without network", AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("5"), Method: "mobile_money"}, "momo_network"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.AddPayment(ctx, tt.req)
			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}

	_, err := env.payments.AddPayment(ctx, AddPaymentRequest{InvoiceID: uuid.New(), Amount: dec("5"), Method: "cash"})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "invoice", nf.Entity)

	assert.Zero(t, env.count(t, &model.Payment{}, "1 = 1"))
}

func TestAddPayment_MobileMoney(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := WithActor(context.Background(), "cashier-7")
	inv := env.createSentInvoice(t)

	p, err := env.payments.AddPayment(ctx, AddPaymentRequest{
		InvoiceID:   inv.ID,
		Amount:      dec("20"),
		Method:      " Mobile_Money ",
		MomoNetwork: "MTN",
		Reference:   "TX-998",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodMobileMoney, p.Method)
	require.NotNil(t, p.MomoNetwork)
	assert.Equal(t, "MTN", *p.MomoNetwork)
	assert.Equal(t, "cashier-7", p.CollectedBy)

	payments, err := env.payments.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "TX-998", payments[0].Reference)
}

func TestDeletePayment_WrongInvoice(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	first := env.createSentInvoice(t)
	second := env.createSentInvoice(t)
	p := pay(t, env, first.ID, "40")

	err := env.payments.DeletePayment(ctx, p.ID, second.ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "payment", nf.Entity)

	err = env.payments.DeletePayment(ctx, uuid.New(), first.ID)
	require.True(t, errors.As(err, &nf))

	assert.Equal(t, int64(1), env.count(t, &model.Payment{}, "id = ?", p.ID))
	assertMoney(t, "40", reload(t, env, first.ID).AmountPaid)
}

func TestRecompute_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	pay(t, env, inv.ID, "12.34")
	pay(t, env, inv.ID, "0.66")

	first, err := env.payments.Recompute(ctx, inv.ID)
	require.NoError(t, err)
	second, err := env.payments.Recompute(ctx, inv.ID)
	require.NoError(t, err)

	assertMoney(t, "13.00", first)
	assert.True(t, first.Equal(second))
	assertMoney(t, "13.00", reload(t, env, inv.ID).AmountPaid)

	_, err = env.payments.Recompute(ctx, uuid.New())
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestRecompute_HealsDrift(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	pay(t, env, inv.ID, "30")

	require.NoError(t, env.db.Model(&model.Invoice{}).Where("id = ?", inv.ID).Update("amount_paid", dec("999")).Error)

	sum, err := env.payments.Recompute(ctx, inv.ID)
	require.NoError(t, err)
	assertMoney(t, "30", sum)
	assertMoney(t, "30", reload(t, env, inv.ID).AmountPaid)
}

func TestAddPayment_Concurrent(t *testing.T) {
	env := newTestEnv(t, false)
	inv := env.createSentInvoice(t)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.payments.AddPayment(context.Background(), AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("26.25"), Method: "card"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := reload(t, env, inv.ID)
	assertMoney(t, "131.25", got.AmountPaid)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)

	paidEvents := 0
	for _, name := range env.events.names() {
		if name == EventInvoicePaid {
			paidEvents++
		}
	}
	assert.Equal(t, 1, paidEvents)
}

func TestAddPayment_ReconcileFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, false)
	inv := env.createSentInvoice(t)
	env.inject.failUpdate("invoices")

	_, err := env.payments.AddPayment(context.Background(), AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("50"), Method: "cash"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	assert.Zero(t, env.count(t, &model.Payment{}, "invoice_id = ?", inv.ID))
}

func TestAddPayment_ReconcileFailureWithoutTransaction(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	env.inject.failUpdate("invoices")

	_, err := env.payments.AddPayment(ctx, AddPaymentRequest{InvoiceID: inv.ID, Amount: dec("50"), Method: "cash"})
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial), "got %v", err)
	assert.Equal(t, "invoice", partial.Kind)
	assert.Equal(t, inv.ID, partial.ParentID, "the invoice is what Recompute repairs")
	assert.Equal(t, "reconcile", partial.Step)
	assert.ErrorIs(t, err, errInjected)

	assert.Equal(t, int64(1), env.count(t, &model.Payment{}, "invoice_id = ?", inv.ID))
	assertMoney(t, "0", reload(t, env, inv.ID).AmountPaid)

	env.inject.clear()
	pay(t, env, inv.ID, "81.25")
	got := reload(t, env, inv.ID)
	assertMoney(t, "131.25", got.AmountPaid, "next payment picks up the stranded row")
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
}

func TestDeletePayment_ReconcileFailureWithoutTransaction(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	inv := env.createSentInvoice(t)
	first := pay(t, env, inv.ID, "50")
	pay(t, env, inv.ID, "20")
	env.inject.failUpdate("invoices")

	err := env.payments.DeletePayment(ctx, first.ID, inv.ID)
	var partial *PartialWriteError
	require.True(t, errors.As(err, &partial), "got %v", err)
	assert.Equal(t, "invoice", partial.Kind)
	assert.Equal(t, inv.ID, partial.ParentID)
	assert.Equal(t, "reconcile", partial.Step)
	assertMoney(t, "70", reload(t, env, inv.ID).AmountPaid, "amount_paid is stale until recomputed")

	env.inject.clear()
	sum, err := env.payments.Recompute(ctx, partial.ParentID)
	require.NoError(t, err)
	assertMoney(t, "20", sum)
	assertMoney(t, "20", reload(t, env, inv.ID).AmountPaid)
}
