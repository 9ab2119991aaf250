package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one partial payment against an invoice. Rows are append-only in normal
// flow; a delete is a correction.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method      PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	MomoNetwork *string         `gorm:"type:varchar(30)" json:"momo_network"` // mobile money operator
	CollectedBy string          `gorm:"type:varchar(100)" json:"collected_by"`
	ReceivedAt  time.Time       `gorm:"not null;index" json:"received_at"`
	Reference   string          `gorm:"type:varchar(100)" json:"reference"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = time.Now()
	}
	return nil
}
