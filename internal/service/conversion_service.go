package service

import (
	"context"
	"fmt"
	"time"

	"billing/internal/logger"
	"billing/internal/model"
	"billing/internal/reconcile"
	"billing/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ConversionService interface {
	ConvertToInvoice(ctx context.Context, quoteID uuid.UUID) (*model.Invoice, error)
}

type conversionService struct {
	quoteRepo   repository.QuoteRepository
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
	opts        DocumentOptions
}

func NewConversionService(
	quoteRepo repository.QuoteRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	opts DocumentOptions,
) ConversionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &conversionService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNop(events),
		opts:        opts,
	}
}

// ConvertToInvoice turns an accepted offer into a draft invoice for the quote's client.
// Totals, notes and the billing snapshot are carried over verbatim, never recomputed,
// and every quote item is copied. The quote ends up accepted.
func (s *conversionService) ConvertToInvoice(ctx context.Context, quoteID uuid.UUID) (*model.Invoice, error) {
	var invoice *model.Invoice
	var quoteNo string

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.quoteRepo.FindByIDForUpdate(txCtx, quoteID); err != nil {
			return notFoundOr(err, "quote", quoteID)
		}
		quote, err := s.quoteRepo.FindByID(txCtx, quoteID)
		if err != nil {
			return notFoundOr(err, "quote", quoteID)
		}
		if err := checkConvertible(quote); err != nil {
			return err
		}
		quoteNo = quote.QuoteNo

		invoice = invoiceFromQuote(quote)
		if s.opts.PaymentTermsDays > 0 {
			due := reconcile.StartOfDay(s.opts.Now()).AddDate(0, 0, s.opts.PaymentTermsDays)
			invoice.DueDate = &due
		}
		invoice.CreatedBy = ActorFrom(txCtx)

		no, err := nextNumber(txCtx, s.opts.Now(), "INV", s.invoiceRepo.LastNumberWithPrefix)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice.InvoiceNo = no

		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		items := make([]model.InvoiceItem, 0, len(quote.Items))
		for _, qi := range quote.Items {
			items = append(items, model.InvoiceItem{
				InvoiceID: invoice.ID,
				Position:  qi.Position,
				LineItem:  qi.LineItem,
			})
		}
		if err := s.invoiceRepo.CreateItems(txCtx, items); err != nil {
			return s.stepFailure(invoice.ID, "items", err)
		}
		invoice.Items = items

		if err := s.quoteRepo.UpdateStatus(txCtx, quote.ID, quote.Status, model.QuoteStatusAccepted); err != nil {
			if s.txManager.Atomic() {
				return statusConflictOr(err, quote.QuoteNo)
			}
			return s.stepFailure(invoice.ID, "quote_status", err)
		}

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionConvertQuote, quote.ID.String(), quote.QuoteNo, map[string]interface{}{
			"invoice_id":   invoice.ID.String(),
			"invoice_no":   invoice.InvoiceNo,
			"from_status":  quote.Status,
			"total_amount": invoice.TotalAmount.String(),
			"items":        len(items),
		})
	})
	if err != nil {
		logger.FromContext(ctx).Error("quote conversion failed", zap.String("quote_id", quoteID.String()), zap.Error(err))
		return nil, err
	}

	logger.FromContext(ctx).Info("quote converted",
		zap.String("quote_id", quoteID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_no", invoice.InvoiceNo),
	)
	s.events.Publish(EventQuoteConverted, map[string]interface{}{
		"quote_id":   quoteID.String(),
		"quote_no":   quoteNo,
		"invoice_id": invoice.ID.String(),
		"invoice_no": invoice.InvoiceNo,
	})
	return invoice, nil
}

func checkConvertible(quote *model.Quote) error {
	if quote.ClientID == nil {
		return &MissingClientError{QuoteID: quote.ID}
	}
	if quote.Status == model.QuoteStatusAccepted {
		return &InvalidInputError{Field: "status", Reason: "quote " + quote.QuoteNo + " is already accepted"}
	}
	if err := reconcile.CheckQuoteTransition(quote.Status, model.QuoteStatusAccepted, false); err != nil {
		return inputError(err)
	}
	if len(quote.Items) == 0 {
		return &InvalidInputError{Field: "items", Reason: "quote " + quote.QuoteNo + " has no line items"}
	}
	return nil
}

func invoiceFromQuote(quote *model.Quote) *model.Invoice {
	quoteID := quote.ID
	return &model.Invoice{
		UserID:         quote.ClientID,
		QuoteID:        &quoteID,
		Amount:         quote.Subtotal,
		TaxAmount:      quote.TaxAmount,
		TotalAmount:    quote.TotalAmount,
		AmountPaid:     decimal.Zero,
		Status:         model.InvoiceStatusDraft,
		BillingName:    quote.BillingName,
		BillingPhone:   quote.BillingPhone,
		BillingAddress: quote.BillingAddress,
		Notes:          quote.Notes,
	}
}

// stepFailure reports a failed write after the invoice row exists, see
// documentService.itemFailure.
func (s *conversionService) stepFailure(invoiceID uuid.UUID, step string, err error) error {
	if s.txManager.Atomic() {
		return fmt.Errorf("failed to convert quote (%s): %w", step, err)
	}
	return &PartialWriteError{Kind: string(model.DocumentInvoice), ParentID: invoiceID, Step: step, Err: err}
}
