package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddressType enum constants
const (
	AddressTypeBilling  = "BILLING"
	AddressTypeShipping = "SHIPPING"
)

// Customer is a registered client that quotes and invoices may reference
type Customer struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string            `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName string            `gorm:"type:varchar(255)" json:"company_name"`
	Phone       string            `gorm:"type:varchar(50)" json:"phone"`
	Email       string            `gorm:"type:varchar(255)" json:"email"`
	IsActive    bool              `gorm:"default:true" json:"is_active"`
	Addresses   []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// DisplayName prefers the company name for business customers
func (c *Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

// BillingAddress returns the default billing address, else the first billing address
func (c *Customer) BillingAddress() string {
	first := ""
	for _, addr := range c.Addresses {
		if addr.AddressType != AddressTypeBilling {
			continue
		}
		if addr.IsDefault {
			return addr.FullAddress
		}
		if first == "" {
			first = addr.FullAddress
		}
	}
	return first
}

// CustomerAddress is a billing or shipping address of a customer
type CustomerAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	AddressType string    `gorm:"type:varchar(20);not null" json:"address_type"` // BILLING, SHIPPING
	FullAddress string    `gorm:"type:text;not null" json:"full_address"`
	IsDefault   bool      `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *CustomerAddress) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
