package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"billing/internal/logger"
	"billing/internal/model"
	"billing/internal/reconcile"
	"billing/internal/repository"
	"billing/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- DTOs ---

type LineItemInput struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string" example:"2"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string" example:"50.00"`
}

// BillingInfo is the billing snapshot stored on a document. Empty fields are
// filled from the referenced customer.
type BillingInfo struct {
	Name    string `json:"billing_name"`
	Phone   string `json:"billing_phone"`
	Address string `json:"billing_address"`
}

type QuoteSpec struct {
	ClientID   *uuid.UUID       `json:"client_id" swaggertype:"string"`
	Items      []LineItemInput  `json:"items"`
	TaxPct     *decimal.Decimal `json:"tax_pct" swaggertype:"string" example:"5"`
	TaxRuleID  *uuid.UUID       `json:"tax_rule_id" swaggertype:"string"`
	ValidUntil *time.Time       `json:"valid_until"`
	Status     string           `json:"status" example:"draft"` // draft (default) or sent
	Billing    BillingInfo      `json:"billing"`
	Notes      string           `json:"notes"`
}

type InvoiceSpec struct {
	UserID    *uuid.UUID       `json:"user_id" swaggertype:"string"`
	OrderID   *uuid.UUID       `json:"order_id" swaggertype:"string"`
	Items     []LineItemInput  `json:"items"`
	TaxPct    *decimal.Decimal `json:"tax_pct" swaggertype:"string" example:"5"`
	TaxRuleID *uuid.UUID       `json:"tax_rule_id" swaggertype:"string"`
	DueDate   *time.Time       `json:"due_date"`
	Status    string           `json:"status" example:"draft"` // draft (default) or sent
	Billing   BillingInfo      `json:"billing"`
	Notes     string           `json:"notes"`
}

// DocumentRef names one document of either kind
type DocumentRef struct {
	Kind model.DocumentKind
	ID   uuid.UUID
}

type QuoteFilter struct {
	Status   string
	ClientID *uuid.UUID
	Page     int
	Limit    int
}

type InvoiceFilter struct {
	Status    string
	UserID    *uuid.UUID
	InvoiceNo string // partial match on invoice_no
	Page      int
	Limit     int
}

// DocumentOptions sets the defaults applied to new documents
type DocumentOptions struct {
	PaymentTermsDays int
	QuoteValidDays   int
	Now              func() time.Time
}

// --- Interface ---

type DocumentService interface {
	CreateQuote(ctx context.Context, spec QuoteSpec) (*model.Quote, error)
	CreateInvoice(ctx context.Context, spec InvoiceSpec) (*model.Invoice, error)
	GetQuote(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	GetDocument(ctx context.Context, ref DocumentRef) (model.Document, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.Quote, int64, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error)
	UpdateStatus(ctx context.Context, ref DocumentRef, status string, override bool) error
	DeleteQuote(ctx context.Context, id uuid.UUID) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	RetryQuoteItems(ctx context.Context, id uuid.UUID, items []LineItemInput) (*model.Quote, error)
	RetryInvoiceItems(ctx context.Context, id uuid.UUID, items []LineItemInput) (*model.Invoice, error)
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
	ExpireQuotes(ctx context.Context, now time.Time) (int, error)
}

type documentService struct {
	quoteRepo    repository.QuoteRepository
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	taxRuleRepo  repository.TaxRuleRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	opts         DocumentOptions
}

func NewDocumentService(
	quoteRepo repository.QuoteRepository,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	taxRuleRepo repository.TaxRuleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	opts DocumentOptions,
) DocumentService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &documentService{
		quoteRepo:    quoteRepo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		taxRuleRepo:  taxRuleRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNop(events),
		opts:         opts,
	}
}

// --- Creation ---

func (s *documentService) CreateQuote(ctx context.Context, spec QuoteSpec) (*model.Quote, error) {
	status := model.QuoteStatus(spec.Status)
	if spec.Status == "" {
		status = model.QuoteStatusDraft
	}
	if status != model.QuoteStatusDraft && status != model.QuoteStatusSent {
		return nil, &InvalidInputError{Field: "status", Reason: "a new quote must be draft or sent"}
	}

	lines, err := buildLines(spec.Items)
	if err != nil {
		return nil, err
	}
	taxPct, err := s.resolveTax(ctx, spec.TaxPct, spec.TaxRuleID)
	if err != nil {
		return nil, err
	}
	totals, err := money.Calculate(toCalcLines(lines), taxPct)
	if err != nil {
		return nil, inputError(err)
	}
	billing, err := s.resolveBilling(ctx, spec.ClientID, spec.Billing)
	if err != nil {
		return nil, err
	}

	validUntil := spec.ValidUntil
	if validUntil == nil && s.opts.QuoteValidDays > 0 {
		v := reconcile.StartOfDay(s.opts.Now()).AddDate(0, 0, s.opts.QuoteValidDays)
		validUntil = &v
	}

	quote := &model.Quote{
		ClientID:       spec.ClientID,
		Subtotal:       totals.Subtotal,
		TaxPct:         taxPct,
		TaxAmount:      totals.TaxAmount,
		TotalAmount:    totals.TotalAmount,
		Status:         status,
		ValidUntil:     validUntil,
		BillingName:    billing.Name,
		BillingPhone:   billing.Phone,
		BillingAddress: billing.Address,
		Notes:          spec.Notes,
		CreatedBy:      ActorFrom(ctx),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		no, err := nextNumber(txCtx, s.opts.Now(), "QT", s.quoteRepo.LastNumberWithPrefix)
		if err != nil {
			return fmt.Errorf("failed to generate quote number: %w", err)
		}
		quote.QuoteNo = no

		if err := s.quoteRepo.Create(txCtx, quote); err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}

		items := quoteItems(quote.ID, lines)
		if err := s.quoteRepo.CreateItems(txCtx, items); err != nil {
			return s.itemFailure(string(model.DocumentQuote), quote.ID, err)
		}
		quote.Items = items

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionCreateQuote, quote.ID.String(), quote.QuoteNo, map[string]interface{}{
			"total_amount": quote.TotalAmount.String(),
			"items":        len(items),
			"status":       quote.Status,
		})
	})
	if err != nil {
		s.logCreateFailure(ctx, model.DocumentQuote, quote.ID, err)
		return nil, err
	}

	logger.FromContext(ctx).Info("quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.String("quote_no", quote.QuoteNo),
		zap.String("total_amount", quote.TotalAmount.String()),
	)
	return quote, nil
}

func (s *documentService) CreateInvoice(ctx context.Context, spec InvoiceSpec) (*model.Invoice, error) {
	status := model.InvoiceStatus(spec.Status)
	if spec.Status == "" {
		status = model.InvoiceStatusDraft
	}
	if status != model.InvoiceStatusDraft && status != model.InvoiceStatusSent {
		return nil, &InvalidInputError{Field: "status", Reason: "a new invoice must be draft or sent"}
	}

	lines, err := buildLines(spec.Items)
	if err != nil {
		return nil, err
	}
	taxPct, err := s.resolveTax(ctx, spec.TaxPct, spec.TaxRuleID)
	if err != nil {
		return nil, err
	}
	totals, err := money.Calculate(toCalcLines(lines), taxPct)
	if err != nil {
		return nil, inputError(err)
	}
	billing, err := s.resolveBilling(ctx, spec.UserID, spec.Billing)
	if err != nil {
		return nil, err
	}

	dueDate := spec.DueDate
	if dueDate == nil && s.opts.PaymentTermsDays > 0 {
		d := reconcile.StartOfDay(s.opts.Now()).AddDate(0, 0, s.opts.PaymentTermsDays)
		dueDate = &d
	}

	invoice := &model.Invoice{
		UserID:         spec.UserID,
		OrderID:        spec.OrderID,
		Amount:         totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		TotalAmount:    totals.TotalAmount,
		AmountPaid:     decimal.Zero,
		DueDate:        dueDate,
		Status:         status,
		BillingName:    billing.Name,
		BillingPhone:   billing.Phone,
		BillingAddress: billing.Address,
		Notes:          spec.Notes,
		CreatedBy:      ActorFrom(ctx),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		no, err := nextNumber(txCtx, s.opts.Now(), "INV", s.invoiceRepo.LastNumberWithPrefix)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice.InvoiceNo = no

		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		items := invoiceItems(invoice.ID, lines)
		if err := s.invoiceRepo.CreateItems(txCtx, items); err != nil {
			return s.itemFailure(string(model.DocumentInvoice), invoice.ID, err)
		}
		invoice.Items = items

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"total_amount": invoice.TotalAmount.String(),
			"items":        len(items),
			"status":       invoice.Status,
		})
	})
	if err != nil {
		s.logCreateFailure(ctx, model.DocumentInvoice, invoice.ID, err)
		return nil, err
	}

	logger.FromContext(ctx).Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("total_amount", invoice.TotalAmount.String()),
	)
	return invoice, nil
}

// itemFailure reports a failed child write. Inside a real transaction the parent
// row is rolled back with it; otherwise the parent stays and the caller gets a
// PartialWriteError naming it.
func (s *documentService) itemFailure(kind string, parentID uuid.UUID, err error) error {
	if s.txManager.Atomic() {
		return fmt.Errorf("failed to create %s items: %w", kind, err)
	}
	return &PartialWriteError{Kind: kind, ParentID: parentID, Step: "items", Err: err}
}

func (s *documentService) logCreateFailure(ctx context.Context, kind model.DocumentKind, id uuid.UUID, err error) {
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		logger.FromContext(ctx).Warn("document persisted without items",
			zap.String("kind", string(kind)),
			zap.String("id", id.String()),
			zap.Error(err),
		)
		return
	}
	logger.FromContext(ctx).Error("document creation failed", zap.String("kind", string(kind)), zap.Error(err))
}

// --- Reads ---

func (s *documentService) GetQuote(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	quote, err := s.quoteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "quote", id)
	}
	return quote, nil
}

func (s *documentService) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "invoice", id)
	}
	return invoice, nil
}

func (s *documentService) GetDocument(ctx context.Context, ref DocumentRef) (model.Document, error) {
	switch ref.Kind {
	case model.DocumentQuote:
		return s.GetQuote(ctx, ref.ID)
	case model.DocumentInvoice:
		return s.GetInvoice(ctx, ref.ID)
	}
	return nil, &InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown document kind %q", ref.Kind)}
}

func (s *documentService) ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.Quote, int64, error) {
	if filter.Status != "" && !model.QuoteStatus(filter.Status).IsValid() {
		return nil, 0, &InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown quote status %q", filter.Status)}
	}
	quotes, total, err := s.quoteRepo.List(ctx, repository.QuoteListFilter{
		Status:   filter.Status,
		ClientID: filter.ClientID,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	return quotes, total, nil
}

func (s *documentService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	if filter.Status != "" && !model.InvoiceStatus(filter.Status).IsValid() {
		return nil, 0, &InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown invoice status %q", filter.Status)}
	}
	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status:    filter.Status,
		UserID:    filter.UserID,
		InvoiceNo: filter.InvoiceNo,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	return invoices, total, nil
}

// --- Status ---

// UpdateStatus moves a document to status. Normal flow follows the reconciler's
// transition table; override is the administrative edit that may force any move.
// Setting the current status again is a no-op.
func (s *documentService) UpdateStatus(ctx context.Context, ref DocumentRef, status string, override bool) error {
	switch ref.Kind {
	case model.DocumentQuote:
		return s.updateQuoteStatus(ctx, ref.ID, model.QuoteStatus(status), override)
	case model.DocumentInvoice:
		return s.updateInvoiceStatus(ctx, ref.ID, model.InvoiceStatus(status), override)
	}
	return &InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unknown document kind %q", ref.Kind)}
}

func (s *documentService) updateQuoteStatus(ctx context.Context, id uuid.UUID, to model.QuoteStatus, override bool) error {
	if !to.IsValid() {
		return &InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown quote status %q", to)}
	}

	var from model.QuoteStatus
	var quoteNo string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quote, err := s.quoteRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, "quote", id)
		}
		from, quoteNo = quote.Status, quote.QuoteNo
		if from == to {
			return nil
		}
		if err := reconcile.CheckQuoteTransition(from, to, override); err != nil {
			return inputError(err)
		}
		if err := s.quoteRepo.UpdateStatus(txCtx, id, from, to); err != nil {
			return statusConflictOr(err, quoteNo)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionUpdateStatus, id.String(), quoteNo, map[string]interface{}{
			"kind":     model.DocumentQuote,
			"from":     from,
			"to":       to,
			"override": override,
		})
	})
	if err != nil || from == to {
		return err
	}

	logger.FromContext(ctx).Info("quote status updated",
		zap.String("quote_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("override", override),
	)
	s.events.Publish(EventStatusChanged, statusEvent(model.DocumentQuote, id, quoteNo, string(from), string(to)))
	return nil
}

func (s *documentService) updateInvoiceStatus(ctx context.Context, id uuid.UUID, to model.InvoiceStatus, override bool) error {
	if !to.IsValid() {
		return &InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown invoice status %q", to)}
	}

	var from model.InvoiceStatus
	var invoiceNo string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, "invoice", id)
		}
		from, invoiceNo = invoice.Status, invoice.InvoiceNo
		if from == to {
			return nil
		}
		if err := reconcile.CheckInvoiceTransition(from, to, override); err != nil {
			return inputError(err)
		}
		// paid is reached through payments; only an administrative edit may mark an
		// invoice paid while a balance remains
		if to == model.InvoiceStatusPaid && !override && !reconcile.IsFullyPaid(invoice.AmountPaid, invoice.TotalAmount) {
			return &InvalidInputError{Field: "status", Reason: "invoice has an outstanding balance of " + invoice.Balance().StringFixed(money.MinorUnits)}
		}

		var paidDate *time.Time
		if to == model.InvoiceStatusPaid && invoice.PaidDate == nil {
			now := s.opts.Now()
			paidDate = &now
		}
		if err := s.invoiceRepo.UpdateStatus(txCtx, id, to, paidDate); err != nil {
			return notFoundOr(err, "invoice", id)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionUpdateStatus, id.String(), invoiceNo, map[string]interface{}{
			"kind":     model.DocumentInvoice,
			"from":     from,
			"to":       to,
			"override": override,
		})
	})
	if err != nil || from == to {
		return err
	}

	logger.FromContext(ctx).Info("invoice status updated",
		zap.String("invoice_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("override", override),
	)
	s.events.Publish(EventStatusChanged, statusEvent(model.DocumentInvoice, id, invoiceNo, string(from), string(to)))
	return nil
}

func statusEvent(kind model.DocumentKind, id uuid.UUID, number, from, to string) map[string]interface{} {
	return map[string]interface{}{
		"kind":   kind,
		"id":     id.String(),
		"number": number,
		"from":   from,
		"to":     to,
	}
}

// MarkOverdue moves every sent invoice whose due date has passed to overdue and
// returns how many were moved.
func (s *documentService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.invoiceRepo.ListPastDue(ctx, reconcile.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list past-due invoices: %w", err)
	}

	moved := 0
	for i := range candidates {
		if !reconcile.IsOverdue(&candidates[i], now) {
			continue
		}
		if err := s.updateInvoiceStatus(ctx, candidates[i].ID, model.InvoiceStatusOverdue, false); err != nil {
			return moved, fmt.Errorf("invoice %s: %w", candidates[i].InvoiceNo, err)
		}
		moved++
	}
	logger.FromContext(ctx).Info("overdue sweep finished", zap.Int("candidates", len(candidates)), zap.Int("moved", moved))
	return moved, nil
}

// ExpireQuotes moves every sent quote whose validity has elapsed to expired.
func (s *documentService) ExpireQuotes(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.quoteRepo.ListExpirable(ctx, reconcile.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable quotes: %w", err)
	}

	moved := 0
	for i := range candidates {
		if !reconcile.IsQuoteExpired(&candidates[i], now) {
			continue
		}
		if err := s.updateQuoteStatus(ctx, candidates[i].ID, model.QuoteStatusExpired, false); err != nil {
			return moved, fmt.Errorf("quote %s: %w", candidates[i].QuoteNo, err)
		}
		moved++
	}
	logger.FromContext(ctx).Info("quote expiry sweep finished", zap.Int("candidates", len(candidates)), zap.Int("moved", moved))
	return moved, nil
}

// --- Deletion and orphan recovery ---

// DeleteQuote removes a quote with its items. It is also the compensating action
// for a quote left without items by a partial write. Accepted quotes are kept as
// the source record of their invoice.
func (s *documentService) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quote, err := s.quoteRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, "quote", id)
		}
		if quote.Status == model.QuoteStatusAccepted {
			return &InvalidInputError{Field: "status", Reason: "quote " + quote.QuoteNo + " is accepted and cannot be deleted"}
		}
		items, err := s.quoteRepo.CountItems(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count quote items: %w", err)
		}
		if err := s.quoteRepo.Delete(txCtx, id); err != nil {
			return notFoundOr(err, "quote", id)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionDeleteQuote, id.String(), quote.QuoteNo, map[string]interface{}{
			"status": quote.Status,
			"items":  items,
		})
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("quote deleted", zap.String("quote_id", id.String()))
	return nil
}

// DeleteInvoice removes an invoice with its items and payments.
func (s *documentService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, "invoice", id)
		}
		if err := s.invoiceRepo.Delete(txCtx, id); err != nil {
			return notFoundOr(err, "invoice", id)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionDeleteInvoice, id.String(), invoice.InvoiceNo, map[string]interface{}{
			"status":      invoice.Status,
			"amount_paid": invoice.AmountPaid.String(),
		})
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

// RetryQuoteItems completes a quote whose item write failed. The quote must have
// no items and the given items must reproduce its stored subtotal.
func (s *documentService) RetryQuoteItems(ctx context.Context, id uuid.UUID, inputs []LineItemInput) (*model.Quote, error) {
	lines, err := buildLines(inputs)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quote, err := s.quoteRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, "quote", id)
		}
		existing, err := s.quoteRepo.CountItems(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count quote items: %w", err)
		}
		if err := checkRetry(existing, lines, quote.Subtotal); err != nil {
			return err
		}
		if err := s.quoteRepo.CreateItems(txCtx, quoteItems(id, lines)); err != nil {
			return s.itemFailure(string(model.DocumentQuote), id, err)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionRetryDocumentItem, id.String(), quote.QuoteNo, map[string]interface{}{
			"kind":  model.DocumentQuote,
			"items": len(lines),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuote(ctx, id)
}

// RetryInvoiceItems is RetryQuoteItems for invoices.
func (s *documentService) RetryInvoiceItems(ctx context.Context, id uuid.UUID, inputs []LineItemInput) (*model.Invoice, error) {
	lines, err := buildLines(inputs)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, "invoice", id)
		}
		existing, err := s.invoiceRepo.CountItems(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count invoice items: %w", err)
		}
		if err := checkRetry(existing, lines, invoice.Amount); err != nil {
			return err
		}
		if err := s.invoiceRepo.CreateItems(txCtx, invoiceItems(id, lines)); err != nil {
			return s.itemFailure(string(model.DocumentInvoice), id, err)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionRetryDocumentItem, id.String(), invoice.InvoiceNo, map[string]interface{}{
			"kind":  model.DocumentInvoice,
			"items": len(lines),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func checkRetry(existing int64, lines []model.LineItem, subtotal decimal.Decimal) error {
	if existing > 0 {
		return &InvalidInputError{Field: "items", Reason: "document already has line items"}
	}
	totals, err := money.Calculate(toCalcLines(lines), decimal.Zero)
	if err != nil {
		return inputError(err)
	}
	if !totals.Subtotal.Equal(subtotal) {
		return &InvalidInputError{
			Field:  "items",
			Reason: fmt.Sprintf("items sum to %s but the document subtotal is %s", totals.Subtotal, subtotal),
		}
	}
	return nil
}

// --- Helpers ---

func buildLines(inputs []LineItemInput) ([]model.LineItem, error) {
	if len(inputs) == 0 {
		return nil, &InvalidInputError{Field: "items", Reason: "at least one line item is required"}
	}
	lines := make([]model.LineItem, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Description) == "" {
			return nil, &InvalidInputError{Field: fmt.Sprintf("items[%d].description", i), Reason: "must not be empty"}
		}
		if !in.Quantity.IsPositive() {
			return nil, &InvalidInputError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be greater than zero"}
		}
		if in.UnitPrice.IsNegative() {
			return nil, &InvalidInputError{Field: fmt.Sprintf("items[%d].unit_price", i), Reason: money.ErrNegative.Error()}
		}
		if !money.FitsScale(in.Quantity) {
			return nil, scaleError(fmt.Sprintf("items[%d].quantity", i))
		}
		if !money.FitsScale(in.UnitPrice) {
			return nil, scaleError(fmt.Sprintf("items[%d].unit_price", i))
		}
		lines = append(lines, model.NewLineItem(strings.TrimSpace(in.Description), in.Quantity, in.UnitPrice))
	}
	return lines, nil
}

func scaleError(field string) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf("at most %d decimal places", money.InputScale)}
}

func toCalcLines(lines []model.LineItem) []money.Line {
	out := make([]money.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Line())
	}
	return out
}

func quoteItems(quoteID uuid.UUID, lines []model.LineItem) []model.QuoteItem {
	items := make([]model.QuoteItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, model.QuoteItem{QuoteID: quoteID, Position: i, LineItem: l})
	}
	return items
}

func invoiceItems(invoiceID uuid.UUID, lines []model.LineItem) []model.InvoiceItem {
	items := make([]model.InvoiceItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, model.InvoiceItem{InvoiceID: invoiceID, Position: i, LineItem: l})
	}
	return items
}

// resolveTax picks the explicit percentage, else the named tax rule, else zero.
func (s *documentService) resolveTax(ctx context.Context, pct *decimal.Decimal, ruleID *uuid.UUID) (decimal.Decimal, error) {
	switch {
	case pct != nil && ruleID != nil:
		return decimal.Zero, &InvalidInputError{Field: "tax_pct", Reason: "give either tax_pct or tax_rule_id, not both"}
	case pct != nil:
		if pct.IsNegative() {
			return decimal.Zero, &InvalidInputError{Field: "tax_pct", Reason: money.ErrNegative.Error()}
		}
		if !money.FitsScale(*pct) {
			return decimal.Zero, scaleError("tax_pct")
		}
		return *pct, nil
	case ruleID != nil:
		rule, err := s.taxRuleRepo.FindByID(ctx, *ruleID)
		if err != nil {
			return decimal.Zero, notFoundOr(err, "tax rule", *ruleID)
		}
		if !rule.ActiveOn(s.opts.Now()) {
			return decimal.Zero, &InvalidInputError{Field: "tax_rule_id", Reason: fmt.Sprintf("tax rule %s is not in effect", rule.Name)}
		}
		return rule.RatePct, nil
	}
	return decimal.Zero, nil
}

// resolveBilling fills the billing snapshot from the customer when one is referenced.
// Walk-in documents must carry at least a billing name.
func (s *documentService) resolveBilling(ctx context.Context, customerID *uuid.UUID, in BillingInfo) (BillingInfo, error) {
	out := BillingInfo{
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
	if customerID == nil {
		if out.Name == "" {
			return out, &InvalidInputError{Field: "billing_name", Reason: "required when no customer is referenced"}
		}
		return out, nil
	}

	customer, err := s.customerRepo.FindByID(ctx, *customerID)
	if err != nil {
		return out, notFoundOr(err, "customer", *customerID)
	}
	if out.Name == "" {
		out.Name = customer.DisplayName()
	}
	if out.Phone == "" {
		out.Phone = customer.Phone
	}
	if out.Address == "" {
		out.Address = customer.BillingAddress()
	}
	return out, nil
}

// nextNumber builds PREFIX-YYYYMMDD-NNNNN, one past the highest number issued today.
// Deleted documents leave gaps; their numbers are never reissued while a later one exists.
func nextNumber(ctx context.Context, now time.Time, kind string, last func(context.Context, string) (string, error)) (string, error) {
	prefix := kind + "-" + now.Format("20060102") + "-"
	prev, err := last(ctx, prefix)
	if err != nil {
		return "", err
	}
	n := 0
	if prev != "" {
		n, err = strconv.Atoi(strings.TrimPrefix(prev, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed document number %q: %w", prev, err)
		}
	}
	return fmt.Sprintf("%s%05d", prefix, n+1), nil
}
