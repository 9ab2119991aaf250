package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"billing/internal/model"
	"billing/internal/repository"

	"github.com/google/uuid"
)

type AddressPayload struct {
	AddressType string `json:"address_type" example:"BILLING"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type CreateCustomerRequest struct {
	Name        string           `json:"name" binding:"required"`
	CompanyName string           `json:"company_name"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	Addresses   []AddressPayload `json:"addresses"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*model.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	ListCustomers(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(customerRepo repository.CustomerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{customerRepo: customerRepo, auditRepo: auditRepo, txManager: txManager}
}

var validAddressTypes = map[string]bool{
	model.AddressTypeBilling:  true,
	model.AddressTypeShipping: true,
}

func validateCustomer(req CreateCustomerRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &InvalidInputError{Field: "name", Reason: "must not be empty"}
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return &InvalidInputError{Field: "email", Reason: "invalid email format"}
		}
	}
	for i, addr := range req.Addresses {
		if !validAddressTypes[addr.AddressType] {
			return &InvalidInputError{Field: fmt.Sprintf("addresses[%d].address_type", i), Reason: "must be BILLING or SHIPPING"}
		}
		if strings.TrimSpace(addr.FullAddress) == "" {
			return &InvalidInputError{Field: fmt.Sprintf("addresses[%d].full_address", i), Reason: "is required"}
		}
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*model.Customer, error) {
	if err := validateCustomer(req); err != nil {
		return nil, err
	}

	customer := &model.Customer{
		Name:        strings.TrimSpace(req.Name),
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
		Email:       req.Email,
		IsActive:    true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		addresses := make([]model.CustomerAddress, 0, len(req.Addresses))
		for _, a := range req.Addresses {
			addresses = append(addresses, model.CustomerAddress{
				CustomerID:  customer.ID,
				AddressType: a.AddressType,
				FullAddress: strings.TrimSpace(a.FullAddress),
				IsDefault:   a.IsDefault,
			})
		}
		if err := s.customerRepo.CreateAddresses(txCtx, addresses); err != nil {
			return fmt.Errorf("failed to create customer addresses: %w", err)
		}
		customer.Addresses = addresses

		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionCreateCustomer, customer.ID.String(), customer.DisplayName(), map[string]interface{}{
			"addresses": len(addresses),
		})
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "customer", id)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, strings.TrimSpace(search), page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}
	return customers, total, nil
}
