package repository

import (
	"context"
	"errors"
	"time"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStatusConflict means the row no longer had the expected status when the update ran.
var ErrStatusConflict = errors.New("status changed concurrently")

type QuoteListFilter struct {
	Status   string
	ClientID *uuid.UUID
	Page     int
	Limit    int
}

type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) error
	CreateItems(ctx context.Context, items []model.QuoteItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.QuoteStatus) error
	List(ctx context.Context, filter QuoteListFilter) ([]model.Quote, int64, error)
	ListExpirable(ctx context.Context, before time.Time) ([]model.Quote, error)
	CountItems(ctx context.Context, quoteID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

// Create writes the header row only; items go through CreateItems.
func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(quote).Error
}

func (r *quoteRepository) CreateItems(ctx context.Context, items []model.QuoteItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

func orderedQuoteItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *quoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedQuoteItems).
		Preload("Client").
		First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

// FindByIDForUpdate locks the quote row until the surrounding transaction ends.
func (r *quoteRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

// UpdateStatus moves the quote from one status to another. It returns ErrStatusConflict
// when the stored status is no longer from, so two writers cannot both apply a transition.
func (r *quoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.QuoteStatus) error {
	res := GetDB(ctx, r.db).Model(&model.Quote{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *quoteRepository) List(ctx context.Context, filter QuoteListFilter) ([]model.Quote, int64, error) {
	var quotes []model.Quote
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.ClientID != nil {
			q = q.Where("client_id = ?", *filter.ClientID)
		}
		return q
	}

	if err := db.Model(&model.Quote{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).
		Preload("Items", orderedQuoteItems).
		Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&quotes).Error; err != nil {
		return nil, 0, err
	}

	return quotes, total, nil
}

// ListExpirable returns sent quotes whose valid_until is before the given day.
func (r *quoteRepository) ListExpirable(ctx context.Context, before time.Time) ([]model.Quote, error) {
	var quotes []model.Quote
	if err := GetDB(ctx, r.db).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", model.QuoteStatusSent, before).
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *quoteRepository) CountItems(ctx context.Context, quoteID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.QuoteItem{}).Where("quote_id = ?", quoteID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the quote with its items.
func (r *quoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("quote_id = ?", id).Delete(&model.QuoteItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.Quote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LastNumberWithPrefix returns the highest quote_no starting with prefix, "" when none.
func (r *quoteRepository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	return lastNumber(GetDB(ctx, r.db).Model(&model.Quote{}), "quote_no", prefix)
}
