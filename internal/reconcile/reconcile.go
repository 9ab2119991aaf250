// Package reconcile holds the lifecycle rules shared by the payment ledger and the
// quote conversion: which status transitions are legal and which status an invoice
// takes from its monetary state.
package reconcile

import (
	"fmt"
	"time"

	"billing/internal/model"

	"github.com/shopspring/decimal"
)

// TransitionError reports a status change that normal flow does not allow
type TransitionError struct {
	Kind model.DocumentKind
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Kind, e.From, e.To)
}

var quoteTransitions = map[model.QuoteStatus][]model.QuoteStatus{
	model.QuoteStatusDraft: {model.QuoteStatusSent, model.QuoteStatusAccepted},
	model.QuoteStatusSent:  {model.QuoteStatusAccepted, model.QuoteStatusRejected, model.QuoteStatusExpired},
}

var invoiceTransitions = map[model.InvoiceStatus][]model.InvoiceStatus{
	model.InvoiceStatusDraft:   {model.InvoiceStatusSent},
	model.InvoiceStatusSent:    {model.InvoiceStatusOverdue, model.InvoiceStatusPaid},
	model.InvoiceStatusOverdue: {model.InvoiceStatusPaid},
}

// CanTransitionQuote reports whether normal flow allows from -> to.
// Staying in the same status is not a transition.
func CanTransitionQuote(from, to model.QuoteStatus) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionInvoice reports whether normal flow allows from -> to.
func CanTransitionInvoice(from, to model.InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckQuoteTransition validates a quote status change. override is the
// administrative edit and permits any move to a valid status.
func CheckQuoteTransition(from, to model.QuoteStatus, override bool) error {
	if !to.IsValid() {
		return fmt.Errorf("unknown quote status %q", to)
	}
	if override || CanTransitionQuote(from, to) {
		return nil
	}
	return &TransitionError{Kind: model.DocumentQuote, From: string(from), To: string(to)}
}

// CheckInvoiceTransition validates an invoice status change, see CheckQuoteTransition.
func CheckInvoiceTransition(from, to model.InvoiceStatus, override bool) error {
	if !to.IsValid() {
		return fmt.Errorf("unknown invoice status %q", to)
	}
	if override || CanTransitionInvoice(from, to) {
		return nil
	}
	return &TransitionError{Kind: model.DocumentInvoice, From: string(from), To: string(to)}
}

// IsFullyPaid is the single paid test: amountPaid >= total. Overpayment counts as paid.
func IsFullyPaid(amountPaid, total decimal.Decimal) bool {
	return amountPaid.GreaterThanOrEqual(total)
}

// InvoiceStatusAfterPayment derives the status written after a payment is added.
// A paid invoice is never reverted here; see Recheck for the explicit path.
func InvoiceStatusAfterPayment(current model.InvoiceStatus, amountPaid, total decimal.Decimal) model.InvoiceStatus {
	if IsFullyPaid(amountPaid, total) {
		return model.InvoiceStatusPaid
	}
	if current.IsOpen() {
		return model.InvoiceStatusSent
	}
	return current
}

// Recheck derives the status an administrator re-check writes: paid when covered,
// otherwise overdue if the due date has passed, else sent. Drafts without payments stay draft.
func Recheck(inv *model.Invoice, now time.Time) model.InvoiceStatus {
	if IsFullyPaid(inv.AmountPaid, inv.TotalAmount) {
		return model.InvoiceStatusPaid
	}
	if inv.Status == model.InvoiceStatusDraft && inv.AmountPaid.IsZero() {
		return model.InvoiceStatusDraft
	}
	if pastDue(inv.DueDate, now) {
		return model.InvoiceStatusOverdue
	}
	return model.InvoiceStatusSent
}

// NeedsRecheck flags invoices whose stored status contradicts their amount paid,
// which happens after a payment retraction on a paid invoice.
func NeedsRecheck(inv *model.Invoice) bool {
	covered := IsFullyPaid(inv.AmountPaid, inv.TotalAmount)
	if inv.Status == model.InvoiceStatusPaid {
		return !covered
	}
	return covered && inv.AmountPaid.IsPositive()
}

// IsOverdue reports whether a sent invoice is past its due date on now's calendar day.
func IsOverdue(inv *model.Invoice, now time.Time) bool {
	return inv.Status == model.InvoiceStatusSent && pastDue(inv.DueDate, now)
}

// IsQuoteExpired reports whether a sent quote's validity has elapsed.
func IsQuoteExpired(q *model.Quote, now time.Time) bool {
	return q.Status == model.QuoteStatusSent && pastDue(q.ValidUntil, now)
}

func pastDue(due *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}
	return StartOfDay(*due).Before(StartOfDay(now))
}

// StartOfDay truncates t to midnight UTC of its calendar day. Due dates and
// validity dates are compared by day only.
func StartOfDay(t time.Time) time.Time {
	return model.CalendarDay(t)
}
