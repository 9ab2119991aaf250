package service

import (
	"context"
	"fmt"
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

type AddPaymentRequest struct {
	InvoiceID   uuid.UUID       `json:"-"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"100.00"`
	Method      string          `json:"method" binding:"required" example:"cash"`
	MomoNetwork string          `json:"momo_network" example:"MTN"` // required for mobile_money
	ReceivedAt  *time.Time      `json:"received_at"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
}

// PaymentService is the payment ledger. Every mutation re-derives amount_paid from
// the full set of payment rows instead of adding to the stored value, so a missed
// update heals on the next payment event.
type PaymentService interface {
	AddPayment(ctx context.Context, req AddPaymentRequest) (*model.Payment, error)
	DeletePayment(ctx context.Context, paymentID, invoiceID uuid.UUID) error
	Recompute(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	RecheckStatus(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error)
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error)
}

type paymentService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
	now         func() time.Time
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) PaymentService {
	return &paymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNop(events),
		now:         time.Now,
	}
}

func validatePayment(req *AddPaymentRequest) error {
	if !req.Amount.IsPositive() {
		return &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !money.FitsScale(req.Amount) {
		return scaleError("amount")
	}
	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	if !method.IsValid() {
		return &InvalidInputError{Field: "method", Reason: fmt.Sprintf("unknown payment method %q", req.Method)}
	}
	req.Method = string(method)
	req.MomoNetwork = strings.TrimSpace(req.MomoNetwork)
	if method == model.PaymentMethodMobileMoney && req.MomoNetwork == "" {
		return &InvalidInputError{Field: "momo_network", Reason: "required for mobile money payments"}
	}
	return nil
}

// AddPayment inserts a payment and reconciles the invoice: amount_paid becomes the sum
// of all its payments and the status follows reconcile.InvoiceStatusAfterPayment.
// The invoice row is locked for the duration so concurrent payments serialize.
func (s *paymentService) AddPayment(ctx context.Context, req AddPaymentRequest) (*model.Payment, error) {
	if err := validatePayment(&req); err != nil {
		return nil, err
	}

	payment := &model.Payment{
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Method:      model.PaymentMethod(req.Method),
		CollectedBy: ActorFrom(ctx),
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	if payment.Method == model.PaymentMethodMobileMoney {
		network := req.MomoNetwork
		payment.MomoNetwork = &network
	}
	if req.ReceivedAt != nil {
		payment.ReceivedAt = *req.ReceivedAt
	}

	var before, after *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, req.InvoiceID)
		if err != nil {
			return notFoundOr(err, "invoice", req.InvoiceID)
		}
		before = invoice

		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		after, err = s.reconcileAfterPayment(txCtx, invoice)
		if err != nil {
			return s.reconcileFailure(invoice.ID, err)
		}

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionAddPayment, invoice.ID.String(), invoice.InvoiceNo, map[string]interface{}{
			"payment_id":  payment.ID.String(),
			"amount":      payment.Amount.String(),
			"method":      payment.Method,
			"amount_paid": after.AmountPaid.String(),
			"status":      after.Status,
		})
	})
	if err != nil {
		logger.FromContext(ctx).Error("add payment failed", zap.String("invoice_id", req.InvoiceID.String()), zap.Error(err))
		return nil, err
	}

	logger.FromContext(ctx).Info("payment recorded",
		zap.String("invoice_id", after.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("amount_paid", after.AmountPaid.String()),
		zap.String("status", string(after.Status)),
	)
	s.events.Publish(EventPaymentRecorded, paymentEvent(after, payment.ID, payment.Amount))
	if after.Status == model.InvoiceStatusPaid && before.Status != model.InvoiceStatusPaid {
		s.events.Publish(EventInvoicePaid, paymentEvent(after, payment.ID, payment.Amount))
	}
	return payment, nil
}

// reconcileAfterPayment re-reads every payment row, derives the status and persists
// {amount_paid, status, paid_date}. A paid invoice is never reverted here.
func (s *paymentService) reconcileAfterPayment(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	sum, err := s.paymentRepo.SumByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	updated := *invoice
	updated.AmountPaid = sum
	updated.Status = reconcile.InvoiceStatusAfterPayment(invoice.Status, sum, invoice.TotalAmount)
	if updated.Status == model.InvoiceStatusPaid && updated.PaidDate == nil {
		now := s.now()
		updated.PaidDate = &now
	}

	if err := s.invoiceRepo.UpdatePaymentState(ctx, invoice.ID, repository.PaymentState{
		AmountPaid: updated.AmountPaid,
		Status:     updated.Status,
		PaidDate:   updated.PaidDate,
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// reconcileFailure reports a failed recompute after a payment row was written or removed.
// The failure is reported against the invoice. Without a transaction the payment change
// stays; the next payment event or Recompute on that invoice brings amount_paid back in line.
func (s *paymentService) reconcileFailure(invoiceID uuid.UUID, err error) error {
	if s.txManager.Atomic() {
		return fmt.Errorf("failed to reconcile invoice: %w", err)
	}
	return &PartialWriteError{Kind: string(model.DocumentInvoice), ParentID: invoiceID, Step: "reconcile", Err: err}
}

// DeletePayment removes a payment and rewrites amount_paid from the remaining rows.
// The status is left as is: a paid invoice stays paid even when the deletion leaves
// it underpaid, until RecheckStatus is run.
func (s *paymentService) DeletePayment(ctx context.Context, paymentID, invoiceID uuid.UUID) error {
	var invoice *model.Invoice
	var sum decimal.Decimal
	var removed *model.Payment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFoundOr(err, "invoice", invoiceID)
		}

		removed, err = s.paymentRepo.FindByID(txCtx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment", paymentID)
		}
		if removed.InvoiceID != invoiceID {
			return &NotFoundError{Entity: "payment", ID: paymentID.String()}
		}
		if err := s.paymentRepo.Delete(txCtx, paymentID, invoiceID); err != nil {
			return notFoundOr(err, "payment", paymentID)
		}

		sum, err = s.paymentRepo.SumByInvoice(txCtx, invoiceID)
		if err != nil {
			return s.reconcileFailure(invoiceID, err)
		}
		if err := s.invoiceRepo.UpdateAmountPaid(txCtx, invoiceID, sum); err != nil {
			return s.reconcileFailure(invoiceID, err)
		}

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionDeletePayment, invoiceID.String(), invoice.InvoiceNo, map[string]interface{}{
			"payment_id":  paymentID.String(),
			"amount":      removed.Amount.String(),
			"amount_paid": sum.String(),
			"status":      invoice.Status,
		})
	})
	if err != nil {
		logger.FromContext(ctx).Error("delete payment failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("payment_id", paymentID.String()),
			zap.Error(err),
		)
		return err
	}

	invoice.AmountPaid = sum
	log := logger.FromContext(ctx).With(
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("amount_paid", sum.String()),
	)
	if reconcile.NeedsRecheck(invoice) {
		log.Warn("payment deleted, invoice status needs re-check", zap.String("status", string(invoice.Status)))
	} else {
		log.Info("payment deleted")
	}
	s.events.Publish(EventPaymentDeleted, paymentEvent(invoice, paymentID, removed.Amount))
	return nil
}

// Recompute rewrites amount_paid from the payment rows and returns it. Running it
// twice without new payments yields the same value.
func (s *paymentService) Recompute(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID); err != nil {
			return notFoundOr(err, "invoice", invoiceID)
		}
		var err error
		sum, err = s.paymentRepo.SumByInvoice(txCtx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		return s.invoiceRepo.UpdateAmountPaid(txCtx, invoiceID, sum)
	})
	if err != nil {
		return decimal.Zero, err
	}

	logger.FromContext(ctx).Info("amount paid recomputed", zap.String("invoice_id", invoiceID.String()), zap.String("amount_paid", sum.String()))
	return sum, nil
}

// RecheckStatus is the explicit administrative re-check: it recomputes amount_paid
// and re-derives the status with reconcile.Recheck, which may move paid back to
// sent or overdue.
func (s *paymentService) RecheckStatus(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error) {
	var before model.InvoiceStatus
	var updated model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return notFoundOr(err, "invoice", invoiceID)
		}
		before = invoice.Status

		sum, err := s.paymentRepo.SumByInvoice(txCtx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		updated = *invoice
		updated.AmountPaid = sum
		now := s.now()
		updated.Status = reconcile.Recheck(&updated, now)
		switch {
		case updated.Status != model.InvoiceStatusPaid:
			updated.PaidDate = nil
		case updated.PaidDate == nil:
			updated.PaidDate = &now
		}

		if err := s.invoiceRepo.UpdatePaymentState(txCtx, invoiceID, repository.PaymentState{
			AmountPaid: updated.AmountPaid,
			Status:     updated.Status,
			PaidDate:   updated.PaidDate,
		}); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionRecheckInvoice, invoiceID.String(), invoice.InvoiceNo, map[string]interface{}{
			"from":        before,
			"to":          updated.Status,
			"amount_paid": sum.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("invoice re-checked",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("from", string(before)),
		zap.String("to", string(updated.Status)),
		zap.String("amount_paid", updated.AmountPaid.String()),
	)
	if before != updated.Status {
		s.events.Publish(EventStatusChanged, statusEvent(model.DocumentInvoice, invoiceID, updated.InvoiceNo, string(before), string(updated.Status)))
		if updated.Status == model.InvoiceStatusPaid {
			s.events.Publish(EventInvoicePaid, paymentEvent(&updated, uuid.Nil, decimal.Zero))
		}
	}
	return &updated, nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		return nil, notFoundOr(err, "invoice", invoiceID)
	}
	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return payments, nil
}

func paymentEvent(invoice *model.Invoice, paymentID uuid.UUID, amount decimal.Decimal) map[string]interface{} {
	event := map[string]interface{}{
		"invoice_id":   invoice.ID.String(),
		"invoice_no":   invoice.InvoiceNo,
		"amount_paid":  invoice.AmountPaid.String(),
		"total_amount": invoice.TotalAmount.String(),
		"status":       invoice.Status,
	}
	if paymentID != uuid.Nil {
		event["payment_id"] = paymentID.String()
		event["amount"] = amount.String()
	}
	return event
}
