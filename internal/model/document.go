package model

import (
	"billing/pkg/money"

	"github.com/google/uuid"
)

// DocumentKind tags the two document variants
type DocumentKind string

const (
	DocumentQuote   DocumentKind = "quote"
	DocumentInvoice DocumentKind = "invoice"
)

func (k DocumentKind) IsValid() bool {
	return k == DocumentQuote || k == DocumentInvoice
}

// Document is the closed set {*Quote, *Invoice}: a header with ordered line items,
// derived totals and a lifecycle status.
type Document interface {
	Kind() DocumentKind
	DocumentID() uuid.UUID
	Number() string
	Lines() []LineItem
	Totals() money.Totals
	StatusValue() string
	isDocument()
}

var (
	_ Document = (*Quote)(nil)
	_ Document = (*Invoice)(nil)
)
