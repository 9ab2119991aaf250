package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	Delete(ctx context.Context, id, invoiceID uuid.UUID) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error)
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// Delete removes a payment only if it belongs to the given invoice.
func (r *paymentRepository) Delete(ctx context.Context, id, invoiceID uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND invoice_id = ?", id, invoiceID).Delete(&model.Payment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("received_at ASC, created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// SumByInvoice re-reads every payment amount of the invoice and adds them in decimal,
// so the result does not depend on the database's numeric aggregation.
func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := GetDB(ctx, r.db).
		Model(&model.Payment{}).
		Where("invoice_id = ?", invoiceID).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum, nil
}
