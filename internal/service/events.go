package service

import (
	"context"
	"encoding/json"
	"fmt"

	"billing/internal/logger"
	"billing/internal/model"
	"billing/internal/repository"

	"go.uber.org/zap"
)

// Billing event names pushed to live subscribers
const (
	EventPaymentRecorded = "payment.recorded"
	EventPaymentDeleted  = "payment.deleted"
	EventInvoicePaid     = "invoice.paid"
	EventStatusChanged   = "document.status_changed"
	EventQuoteConverted  = "quote.converted"
)

// EventPublisher pushes billing events to live subscribers. Publishing never blocks
// and never fails the operation that triggered it.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

type actorKey struct{}

// WithActor attaches the acting staff member to ctx for audit and collected_by fields.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the acting staff member, empty for system jobs.
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// recordAudit writes an audit entry through ctx so it joins the caller's transaction.
// A failed write aborts a transactional operation; without a transaction the
// billing rows are already committed, so the failure is only logged.
func recordAudit(ctx context.Context, repo repository.AuditRepository, tm repository.TransactionManager, action, entityID, entityName string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	entry := &model.AuditLog{
		ActorID:    ActorFrom(ctx),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		logger.FromContext(ctx).Error("audit log write failed", zap.String("action", action), zap.String("entity_id", entityID), zap.Error(err))
		if tm.Atomic() {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return nil
}
