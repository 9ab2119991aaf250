package repository

import (
	"context"

	"billing/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error)
	CreateAddresses(ctx context.Context, addresses []model.CustomerAddress) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Preload("Addresses").First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if search == "" {
			return q
		}
		like := "%" + search + "%"
		return q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(company_name) LIKE LOWER(?) OR phone LIKE ? OR LOWER(email) LIKE LOWER(?)",
			like, like, like, like)
	}

	if err := db.Model(&model.Customer{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(scope).Preload("Addresses").
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) CreateAddresses(ctx context.Context, addresses []model.CustomerAddress) error {
	if len(addresses) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&addresses).Error
}
