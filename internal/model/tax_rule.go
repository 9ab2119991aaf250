package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRule stores a named tax percentage with temporal validity
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(50);not null;index" json:"name"` // e.g. VAT, NHIL
	RatePct       decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"rate_pct"`  // e.g. 5 = 5%
	EffectiveFrom time.Time       `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"` // nil = open ended
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (r *TaxRule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ActiveOn reports whether the rule applies on the calendar day containing t.
// Both bounds are inclusive.
func (r *TaxRule) ActiveOn(t time.Time) bool {
	day := CalendarDay(t)
	if day.Before(CalendarDay(r.EffectiveFrom)) {
		return false
	}
	return r.EffectiveTo == nil || !day.After(CalendarDay(*r.EffectiveTo))
}

// CalendarDay truncates t to midnight UTC of its calendar day, the form date columns are stored in.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
