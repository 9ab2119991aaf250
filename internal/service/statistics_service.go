package service

import (
	"context"
	"time"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/money"

	"github.com/shopspring/decimal"
)

const topCustomerLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (*model.BillingStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetStatistics aggregates invoices created and payments received between startDate and endDate
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (*model.BillingStatistics, error) {
	if endDate.Before(startDate) {
		return nil, &InvalidInputError{Field: "end_date", Reason: "must not be before start_date"}
	}

	stats := &model.BillingStatistics{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
		TotalInvoiced:      decimal.Zero,
		TotalCollected:     decimal.Zero,
	}

	byStatus, err := s.repo.InvoiceTotalsByStatus(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	for i := range byStatus {
		byStatus[i].Total = money.Round(byStatus[i].Total)
		stats.InvoiceCount += byStatus[i].Count
		if byStatus[i].Status != string(model.InvoiceStatusDraft) {
			stats.TotalInvoiced = stats.TotalInvoiced.Add(byStatus[i].Total)
		}
	}
	stats.ByStatus = byStatus

	if stats.TotalTax, err = s.repo.TaxTotal(ctx, startDate, endDate); err != nil {
		return nil, err
	}
	stats.TotalTax = money.Round(stats.TotalTax)

	if stats.Outstanding, err = s.repo.Outstanding(ctx, startDate, endDate); err != nil {
		return nil, err
	}
	stats.Outstanding = money.Round(stats.Outstanding)

	byMethod, err := s.repo.PaymentTotalsByMethod(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	for i := range byMethod {
		byMethod[i].Total = money.Round(byMethod[i].Total)
		stats.TotalCollected = stats.TotalCollected.Add(byMethod[i].Total)
	}
	stats.ByMethod = byMethod

	if stats.TopCustomers, err = s.repo.TopCustomers(ctx, startDate, endDate, topCustomerLimit); err != nil {
		return nil, err
	}
	for i := range stats.TopCustomers {
		stats.TopCustomers[i].TotalInvoiced = money.Round(stats.TopCustomers[i].TotalInvoiced)
	}
	return stats, nil
}
