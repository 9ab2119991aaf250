package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"billing/internal/database"
	"billing/internal/model"
	"billing/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

var errInjected = errors.New("injected write failure")

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// failureInjector makes creates or updates against one table fail while armed.
type failureInjector struct {
	createTable atomic.Value
	updateTable atomic.Value
}

func newFailureInjector(t *testing.T, db *gorm.DB) *failureInjector {
	f := &failureInjector{}
	f.createTable.Store("")
	f.updateTable.Store("")

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:inject_create", func(tx *gorm.DB) {
		if table := f.createTable.Load().(string); table != "" && tx.Statement.Table == table {
			_ = tx.AddError(errInjected)
		}
	}))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:inject_update", func(tx *gorm.DB) {
		if table := f.updateTable.Load().(string); table != "" && tx.Statement.Table == table {
			_ = tx.AddError(errInjected)
		}
	}))
	return f
}

func (f *failureInjector) failCreate(table string) { f.createTable.Store(table) }
func (f *failureInjector) failUpdate(table string) { f.updateTable.Store(table) }
func (f *failureInjector) clear() {
	f.createTable.Store("")
	f.updateTable.Store("")
}

type testEnv struct {
	db        *gorm.DB
	inject    *failureInjector
	events    *recordingPublisher
	docs      DocumentService
	payments  PaymentService
	convert   ConversionService
	customers CustomerService
	taxes     TaxService
	audit     AuditService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps a single in-memory database and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T, sequential bool) *testEnv {
	t.Helper()
	db := newTestDB(t)

	var tm repository.TransactionManager
	if sequential {
		tm = repository.NewSequentialTxManager()
	} else {
		tm = repository.NewTransactionManager(db)
	}

	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	events := &recordingPublisher{}
	opts := DocumentOptions{PaymentTermsDays: 30, QuoteValidDays: 14, Now: func() time.Time { return testNow }}

	payments := NewPaymentService(invoiceRepo, paymentRepo, auditRepo, tm, events)
	payments.(*paymentService).now = func() time.Time { return testNow }

	return &testEnv{
		db:        db,
		inject:    newFailureInjector(t, db),
		events:    events,
		docs:      NewDocumentService(quoteRepo, invoiceRepo, customerRepo, taxRuleRepo, auditRepo, tm, events, opts),
		payments:  payments,
		convert:   NewConversionService(quoteRepo, invoiceRepo, auditRepo, tm, events, opts),
		customers: NewCustomerService(customerRepo, auditRepo, tm),
		taxes:     NewTaxService(taxRuleRepo, auditRepo, tm),
		audit:     NewAuditService(auditRepo),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// scenarioItems prices to subtotal 125.00; with 5% tax the total is 131.25.
func scenarioItems() []LineItemInput {
	return []LineItemInput{
		{Description: "Widget", Quantity: dec("2"), UnitPrice: dec("50.00")},
		{Description: "Gadget", Quantity: dec("1"), UnitPrice: dec("25.00")},
	}
}

func (e *testEnv) createCustomer(t *testing.T) *model.Customer {
	t.Helper()
	c, err := e.customers.CreateCustomer(context.Background(), CreateCustomerRequest{
		Name:        "Ama Mensah",
		CompanyName: "Mensah Trading",
		Phone:       "+233200000000",
		Email:       "ama@example.com",
		Addresses: []AddressPayload{
			{AddressType: model.AddressTypeShipping, FullAddress: "Warehouse 4, Tema"},
			{AddressType: model.AddressTypeBilling, FullAddress: "12 Ring Road, Accra", IsDefault: true},
		},
	})
	require.NoError(t, err)
	return c
}

// createSentInvoice creates the 131.25 invoice and moves it to sent.
func (e *testEnv) createSentInvoice(t *testing.T) *model.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := e.docs.CreateInvoice(ctx, InvoiceSpec{
		Items:   scenarioItems(),
		TaxPct:  decPtr("5"),
		Billing: BillingInfo{Name: "Walk-in customer", Phone: "0244000000"},
	})
	require.NoError(t, err)
	require.NoError(t, e.docs.UpdateStatus(ctx, DocumentRef{Kind: model.DocumentInvoice, ID: inv.ID}, string(model.InvoiceStatusSent), false))
	inv, err = e.docs.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	return inv
}

func (e *testEnv) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}
