package model

import (
	"billing/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItem holds the priced columns shared by quote and invoice items.
// TotalPrice is always Quantity * UnitPrice; item hooks recompute it before insert.
type LineItem struct {
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"total_price"`
}

// NewLineItem builds a line with its derived total
func NewLineItem(description string, quantity, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  money.LineTotal(quantity, unitPrice),
	}
}

// Line converts the item into calculator input
func (l LineItem) Line() money.Line {
	return money.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
}

func (l *LineItem) syncTotal() {
	l.TotalPrice = money.LineTotal(l.Quantity, l.UnitPrice)
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// QuoteItem is a line of a Quote, ordered by Position
type QuoteItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID  uuid.UUID `gorm:"type:uuid;not null;index" json:"quote_id"`
	Position int       `gorm:"not null" json:"position"`
	LineItem `gorm:"embedded"`
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	i.syncTotal()
	return nil
}

// InvoiceItem is a line of an Invoice, ordered by Position
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position  int       `gorm:"not null" json:"position"`
	LineItem  `gorm:"embedded"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	i.syncTotal()
	return nil
}
