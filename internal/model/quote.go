package model

import (
	"time"

	"billing/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is a priced offer to a client. Immutable once accepted.
// Subtotal = Σ items.total_price, TaxAmount = Subtotal * TaxPct / 100, TotalAmount = Subtotal + TaxAmount.
type Quote struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteNo        string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"quote_no"`
	ClientID       *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"` // nil = walk-in
	Client         *Customer       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items          []QuoteItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"subtotal"`
	TaxPct         decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"tax_pct"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"total_amount"`
	Status         QuoteStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ValidUntil     *time.Time      `gorm:"type:date" json:"valid_until"`
	BillingName    string          `gorm:"type:varchar(255)" json:"billing_name"`
	BillingPhone   string          `gorm:"type:varchar(50)" json:"billing_phone"`
	BillingAddress string          `gorm:"type:text" json:"billing_address"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedBy      string          `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

func (q *Quote) Kind() DocumentKind    { return DocumentQuote }
func (q *Quote) DocumentID() uuid.UUID { return q.ID }
func (q *Quote) Number() string        { return q.QuoteNo }
func (q *Quote) StatusValue() string   { return string(q.Status) }
func (q *Quote) isDocument()           {}

func (q *Quote) Lines() []LineItem {
	lines := make([]LineItem, 0, len(q.Items))
	for _, it := range q.Items {
		lines = append(lines, it.LineItem)
	}
	return lines
}

func (q *Quote) Totals() money.Totals {
	return money.Totals{Subtotal: q.Subtotal, TaxAmount: q.TaxAmount, TotalAmount: q.TotalAmount}
}
