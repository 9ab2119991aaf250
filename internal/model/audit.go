package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateQuote       = "CREATE_QUOTE"
	ActionCreateInvoice     = "CREATE_INVOICE"
	ActionUpdateStatus      = "UPDATE_STATUS"
	ActionDeleteInvoice     = "DELETE_INVOICE"
	ActionDeleteQuote       = "DELETE_QUOTE"
	ActionConvertQuote      = "CONVERT_QUOTE"
	ActionAddPayment        = "ADD_PAYMENT"
	ActionDeletePayment     = "DELETE_PAYMENT"
	ActionRecheckInvoice    = "RECHECK_INVOICE"
	ActionCreateTaxRule     = "CREATE_TAX_RULE"
	ActionCreateCustomer    = "CREATE_CUSTOMER"
	ActionRetryDocumentItem = "RETRY_DOCUMENT_ITEMS"
)

// AuditLog tracks Who, What, and When for billing changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    string    `gorm:"type:varchar(100);index" json:"actor_id"` // empty for system jobs
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // document number
	Details    string    `gorm:"type:text" json:"details"`                       // serialized JSON payload
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
