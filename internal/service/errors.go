package service

import (
	"errors"
	"fmt"

	"billing/internal/reconcile"
	"billing/internal/repository"
	"billing/pkg/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvalidInputError is a caller error: bad amount, unknown status, illegal transition.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing quote, invoice, payment or other entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// MissingClientError is returned when a quote without client_id is converted.
type MissingClientError struct {
	QuoteID uuid.UUID
}

func (e *MissingClientError) Error() string {
	return fmt.Sprintf("quote %s has no client to invoice", e.QuoteID)
}

// PartialWriteError reports a parent row that was persisted while a later
// dependent write failed. The parent is left in place; the caller decides
// whether to delete it or retry the failed step.
type PartialWriteError struct {
	Kind     string // quote, invoice
	ParentID uuid.UUID
	Step     string // items, quote_status
	Err      error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s %s persisted but %s write failed: %v", e.Kind, e.ParentID, e.Step, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id.String()}
	}
	return err
}

// statusConflictOr reports a lost status race as a caller error against the current state.
func statusConflictOr(err error, docNo string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return &InvalidInputError{Field: "status", Reason: docNo + " changed status concurrently; reload and retry"}
	}
	return err
}

// inputError converts calculator and reconciler errors into InvalidInputError.
func inputError(err error) error {
	var calcErr *money.InvalidInputError
	if errors.As(err, &calcErr) {
		field := calcErr.Field
		if calcErr.Index >= 0 {
			field = fmt.Sprintf("items[%d].%s", calcErr.Index, calcErr.Field)
		}
		return &InvalidInputError{Field: field, Reason: calcErr.Err.Error()}
	}
	var transErr *reconcile.TransitionError
	if errors.As(err, &transErr) {
		return &InvalidInputError{Field: "status", Reason: transErr.Error()}
	}
	return err
}
