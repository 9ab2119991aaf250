// Package app wires repositories and services for the API server and billingctl.
package app

import (
	"billing/internal/config"
	"billing/internal/repository"
	"billing/internal/service"

	"gorm.io/gorm"
)

// Services is the billing service graph over one database
type Services struct {
	Documents  service.DocumentService
	Payments   service.PaymentService
	Conversion service.ConversionService
	Customers  service.CustomerService
	Taxes      service.TaxService
	Audit      service.AuditService
	Statistics service.StatisticsService
}

// NewTxManager picks the write strategy named by billing.store_mode
func NewTxManager(db *gorm.DB, mode string) repository.TransactionManager {
	if mode == "sequential" {
		return repository.NewSequentialTxManager()
	}
	return repository.NewTransactionManager(db)
}

// NewServices sets up Repository -> Service. events may be nil.
func NewServices(db *gorm.DB, cfg config.BillingConfig, events service.EventPublisher) *Services {
	tm := NewTxManager(db, cfg.StoreMode)

	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	opts := service.DocumentOptions{
		PaymentTermsDays: cfg.PaymentTermsDays,
		QuoteValidDays:   cfg.QuoteValidDays,
	}

	return &Services{
		Documents:  service.NewDocumentService(quoteRepo, invoiceRepo, customerRepo, taxRuleRepo, auditRepo, tm, events, opts),
		Payments:   service.NewPaymentService(invoiceRepo, paymentRepo, auditRepo, tm, events),
		Conversion: service.NewConversionService(quoteRepo, invoiceRepo, auditRepo, tm, events, opts),
		Customers:  service.NewCustomerService(customerRepo, auditRepo, tm),
		Taxes:      service.NewTaxService(taxRuleRepo, auditRepo, tm),
		Audit:      service.NewAuditService(auditRepo),
		Statistics: service.NewStatisticsService(repository.NewStatisticsRepository(db)),
	}
}
