package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"billing/internal/model"
	"billing/internal/repository"
	"billing/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTaxRuleRequest struct {
	Name          string `json:"name" binding:"required" example:"VAT"`
	RatePct       string `json:"rate_pct" binding:"required" example:"5"` // percentage, "5" = 5%
	EffectiveFrom string `json:"effective_from" binding:"required"`       // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                            // YYYY-MM-DD, nullable
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	RatePct       string  `json:"rate_pct"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

type TaxService interface {
	GetTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id uuid.UUID) error
	ActiveRate(ctx context.Context, name string, on time.Time) (decimal.Decimal, error)
}

type taxService struct {
	taxRuleRepo repository.TaxRuleRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewTaxService(taxRuleRepo repository.TaxRuleRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) TaxService {
	return &taxService{taxRuleRepo: taxRuleRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Implementation ---

func (s *taxService) GetTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error) {
	rules, total, err := s.taxRuleRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest) (TaxRuleResponse, error) {
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	if name == "" {
		return TaxRuleResponse{}, &InvalidInputError{Field: "name", Reason: "must not be empty"}
	}
	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.RatePct, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{
		Name:          name,
		RatePct:       rate,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		overlapping, err := s.taxRuleRepo.FindOverlapping(txCtx, name, effectiveFrom, effectiveTo)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlapping > 0 {
			return &InvalidInputError{Field: "effective_from", Reason: fmt.Sprintf("a %s rule already covers part of this period", name)}
		}

		if err := s.taxRuleRepo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create tax rule: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, s.txManager, model.ActionCreateTaxRule, rule.ID.String(), name+" "+rate.String()+"%", map[string]interface{}{
			"rate_pct":       rate.String(),
			"effective_from": req.EffectiveFrom,
			"effective_to":   req.EffectiveTo,
		})
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(rule), nil
}

func (s *taxService) DeleteTaxRule(ctx context.Context, id uuid.UUID) error {
	if err := s.taxRuleRepo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "tax rule", id)
	}
	return nil
}

// ActiveRate returns the percentage of the named rule in effect on the given day.
func (s *taxService) ActiveRate(ctx context.Context, name string, on time.Time) (decimal.Decimal, error) {
	rule, err := s.taxRuleRepo.FindActiveByName(ctx, strings.ToUpper(name), on)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, &NotFoundError{Entity: "tax rule", ID: name + "@" + on.Format("2006-01-02")}
		}
		return decimal.Zero, fmt.Errorf("failed to query tax rule: %w", err)
	}
	return rule.RatePct, nil
}

// --- Helpers ---

func parseTaxRuleFields(rateStr, fromStr, toStr string) (decimal.Decimal, time.Time, *time.Time, error) {
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, &InvalidInputError{Field: "rate_pct", Reason: "not a decimal number"}
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, time.Time{}, nil, &InvalidInputError{Field: "rate_pct", Reason: "must be between 0 and 100"}
	}
	if !money.FitsScale(rate) {
		return decimal.Zero, time.Time{}, nil, scaleError("rate_pct")
	}

	effectiveFrom, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, &InvalidInputError{Field: "effective_from", Reason: "expected YYYY-MM-DD"}
	}

	var effectiveTo *time.Time
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return decimal.Zero, time.Time{}, nil, &InvalidInputError{Field: "effective_to", Reason: "expected YYYY-MM-DD"}
		}
		if t.Before(effectiveFrom) {
			return decimal.Zero, time.Time{}, nil, &InvalidInputError{Field: "effective_to", Reason: "must not be before effective_from"}
		}
		effectiveTo = &t
	}

	return rate, effectiveFrom, effectiveTo, nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		RatePct:       r.RatePct.String(),
		EffectiveFrom: r.EffectiveFrom.Format("2006-01-02"),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}
