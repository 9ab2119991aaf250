package model

import (
	"time"

	"billing/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a bill to a customer. AmountPaid is derived from the Payment rows and
// Status is paid exactly when AmountPaid >= TotalAmount on the payment path.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNo      string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"` // nil = walk-in, see billing snapshot
	User           *Customer       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	QuoteID        *uuid.UUID      `gorm:"type:uuid;index" json:"quote_id"` // source quote when converted
	Items          []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Payments       []Payment       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	Amount         decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"amount"` // subtotal
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"total_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_paid"`
	DueDate        *time.Time      `gorm:"type:date" json:"due_date"`
	PaidDate       *time.Time      `json:"paid_date"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	BillingName    string          `gorm:"type:varchar(255)" json:"billing_name"`
	BillingPhone   string          `gorm:"type:varchar(50)" json:"billing_phone"`
	BillingAddress string          `gorm:"type:text" json:"billing_address"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedBy      string          `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&inv.ID)
	return nil
}

func (inv *Invoice) Kind() DocumentKind    { return DocumentInvoice }
func (inv *Invoice) DocumentID() uuid.UUID { return inv.ID }
func (inv *Invoice) Number() string        { return inv.InvoiceNo }
func (inv *Invoice) StatusValue() string   { return string(inv.Status) }
func (inv *Invoice) isDocument()           {}

func (inv *Invoice) Lines() []LineItem {
	lines := make([]LineItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		lines = append(lines, it.LineItem)
	}
	return lines
}

func (inv *Invoice) Totals() money.Totals {
	return money.Totals{Subtotal: inv.Amount, TaxAmount: inv.TaxAmount, TotalAmount: inv.TotalAmount}
}

// Balance is the amount still owed; negative when overpaid.
func (inv *Invoice) Balance() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.AmountPaid)
}
