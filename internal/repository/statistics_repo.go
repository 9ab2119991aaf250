package repository

import (
	"context"
	"fmt"
	"time"

	"billing/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	InvoiceTotalsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error)
	TaxTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	Outstanding(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	PaymentTotalsByMethod(ctx context.Context, start, end time.Time) ([]model.MethodTotal, error)
	TopCustomers(ctx context.Context, start, end time.Time, limit int) ([]model.CustomerRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) invoicesInRange(ctx context.Context, start, end time.Time) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("invoices.created_at >= ? AND invoices.created_at <= ?", start, end)
}

func (r *statisticsRepository) InvoiceTotalsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusTotal, error) {
	var rows []model.StatusTotal
	if err := r.invoicesInRange(ctx, start, end).
		Select("status, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as total").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query invoice totals: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) TaxTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value decimal.Decimal
	}
	if err := r.invoicesInRange(ctx, start, end).
		Select("COALESCE(SUM(tax_amount), 0) as value").
		Where("status <> ?", model.InvoiceStatusDraft).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to query tax total: %w", err)
	}
	return result.Value, nil
}

// Outstanding sums the positive balances of open invoices
func (r *statisticsRepository) Outstanding(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value decimal.Decimal
	}
	if err := r.invoicesInRange(ctx, start, end).
		Select("COALESCE(SUM(total_amount - amount_paid), 0) as value").
		Where("status IN ? AND total_amount > amount_paid", []string{string(model.InvoiceStatusSent), string(model.InvoiceStatusOverdue)}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to query outstanding balance: %w", err)
	}
	return result.Value, nil
}

func (r *statisticsRepository) PaymentTotalsByMethod(ctx context.Context, start, end time.Time) ([]model.MethodTotal, error) {
	var rows []model.MethodTotal
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("method, COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Where("received_at >= ? AND received_at <= ?", start, end).
		Group("method").
		Order("method").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query payment totals: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) TopCustomers(ctx context.Context, start, end time.Time, limit int) ([]model.CustomerRanking, error) {
	var rankings []model.CustomerRanking
	if err := r.invoicesInRange(ctx, start, end).
		Select("customers.id as customer_id, customers.name as customer_name, COUNT(invoices.id) as invoice_count, COALESCE(SUM(invoices.total_amount), 0) as total_invoiced").
		Joins("JOIN customers ON customers.id = invoices.user_id").
		Where("invoices.status <> ?", model.InvoiceStatusDraft).
		Group("customers.id, customers.name").
		Order("total_invoiced DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top customers: %w", err)
	}
	return rankings, nil
}
