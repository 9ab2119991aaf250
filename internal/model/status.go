package model

// QuoteStatus is the lifecycle state of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// IsValid checks if the status is a known QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// IsTerminal returns true once no normal-flow transition leaves the status
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusRejected || s == QuoteStatusExpired
}

func (s QuoteStatus) String() string { return string(s) }

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue, InvoiceStatusPaid:
		return true
	}
	return false
}

// IsOpen returns true while the invoice still expects payment
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusSent || s == InvoiceStatusOverdue
}

func (s InvoiceStatus) String() string { return string(s) }

// PaymentMethod enum
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}
