package repository

import (
	"context"
	"time"

	"billing/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceListFilter struct {
	Status    string
	UserID    *uuid.UUID
	InvoiceNo string // partial match
	Page      int
	Limit     int
}

// PaymentState is the reconciled {amount_paid, status, paid_date} triple of an invoice.
// A nil PaidDate clears the column.
type PaymentState struct {
	AmountPaid decimal.Decimal
	Status     model.InvoiceStatus
	PaidDate   *time.Time
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	CreateItems(ctx context.Context, items []model.InvoiceItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.InvoiceStatus, paidDate *time.Time) error
	UpdatePaymentState(ctx context.Context, id uuid.UUID, state PaymentState) error
	UpdateAmountPaid(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal) error
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	ListPastDue(ctx context.Context, before time.Time) ([]model.Invoice, error)
	CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create writes the header row only; items go through CreateItems.
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(invoice).Error
}

func (r *invoiceRepository) CreateItems(ctx context.Context, items []model.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

func orderedInvoiceItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedInvoiceItems).
		Preload("User").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate locks the invoice row until the surrounding transaction ends.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.InvoiceStatus, paidDate *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if paidDate != nil {
		updates["paid_date"] = *paidDate
	}
	return r.updates(ctx, id, updates)
}

func (r *invoiceRepository) UpdatePaymentState(ctx context.Context, id uuid.UUID, state PaymentState) error {
	return r.updates(ctx, id, map[string]interface{}{
		"amount_paid": state.AmountPaid,
		"status":      state.Status,
		"paid_date":   state.PaidDate,
	})
}

func (r *invoiceRepository) UpdateAmountPaid(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal) error {
	return r.updates(ctx, id, map[string]interface{}{"amount_paid": amountPaid})
}

func (r *invoiceRepository) updates(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.InvoiceNo != "" {
			q = q.Where("invoice_no LIKE ?", "%"+filter.InvoiceNo+"%")
		}
		return q
	}

	if err := db.Model(&model.Invoice{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).
		Preload("Items", orderedInvoiceItems).
		Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// ListPastDue returns sent invoices whose due_date is before the given day.
func (r *invoiceRepository) ListPastDue(ctx context.Context, before time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := GetDB(ctx, r.db).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", model.InvoiceStatusSent, before).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.InvoiceItem{}).Where("invoice_id = ?", invoiceID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the invoice with its payments and items.
func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
		return err
	}
	if err := db.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LastNumberWithPrefix returns the highest invoice_no starting with prefix, "" when none.
func (r *invoiceRepository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	return lastNumber(GetDB(ctx, r.db).Model(&model.Invoice{}), "invoice_no", prefix)
}
