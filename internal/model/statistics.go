package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingStatistics aggregates invoicing and collection totals over a time range
type BillingStatistics struct {
	InvoiceCount       int64             `json:"invoice_count"`
	TotalInvoiced      decimal.Decimal   `json:"total_invoiced"` // non-draft invoices
	TotalTax           decimal.Decimal   `json:"total_tax"`
	TotalCollected     decimal.Decimal   `json:"total_collected"` // payments received in range
	Outstanding        decimal.Decimal   `json:"outstanding"`     // open balance of sent and overdue invoices
	ByStatus           []StatusTotal     `json:"by_status"`
	ByMethod           []MethodTotal     `json:"by_method"`
	TopCustomers       []CustomerRanking `json:"top_customers"`
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
}

type StatusTotal struct {
	Status string          `gorm:"column:status" json:"status"`
	Count  int64           `gorm:"column:count" json:"count"`
	Total  decimal.Decimal `gorm:"column:total" json:"total"`
}

type MethodTotal struct {
	Method string          `gorm:"column:method" json:"method"`
	Count  int64           `gorm:"column:count" json:"count"`
	Total  decimal.Decimal `gorm:"column:total" json:"total"`
}

// CustomerRanking ranks registered customers by invoiced value
type CustomerRanking struct {
	CustomerID    string          `gorm:"column:customer_id" json:"customer_id"`
	CustomerName  string          `gorm:"column:customer_name" json:"customer_name"`
	InvoiceCount  int64           `gorm:"column:invoice_count" json:"invoice_count"`
	TotalInvoiced decimal.Decimal `gorm:"column:total_invoiced" json:"total_invoiced"`
}
