package ledger

import (
	"github.com/partnerly/backend/internal/domain/shared"
)

// Event type constants for ledger domain events
const (
	EventTypeCommissionAccrued  = "CommissionAccrued"
	EventTypeCommissionReversed = "CommissionReversed"
)

// Aggregate type constants
const (
	AggregateTypeCommissionEntry = "CommissionEntry"
)

// CommissionAccruedEvent is published when commission is recognized on
// a paid invoice.
type CommissionAccruedEvent struct {
	shared.BaseDomainEvent
	PartnerID        string `json:"partner_id"`
	SourceInvoiceID  string `json:"source_invoice_id"`
	CommissionAmount int64  `json:"commission_amount"`
	Currency         string `json:"currency"`
}

// NewCommissionAccruedEvent creates a new CommissionAccruedEvent
func NewCommissionAccruedEvent(e *CommissionEntry) *CommissionAccruedEvent {
	return &CommissionAccruedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommissionAccrued, AggregateTypeCommissionEntry, e.ID),
		PartnerID:        e.PartnerID.String(),
		SourceInvoiceID:  e.SourceInvoiceID,
		CommissionAmount: e.CommissionAmount.Amount(),
		Currency:         string(e.CommissionAmount.Currency()),
	}
}

// CommissionReversedEvent is published when a reversal entry cancels a
// prior accrual.
type CommissionReversedEvent struct {
	shared.BaseDomainEvent
	PartnerID        string `json:"partner_id"`
	SourceInvoiceID  string `json:"source_invoice_id"`
	CommissionAmount int64  `json:"commission_amount"`
	Currency         string `json:"currency"`
}

// NewCommissionReversedEvent creates a new CommissionReversedEvent
func NewCommissionReversedEvent(e *CommissionEntry) *CommissionReversedEvent {
	return &CommissionReversedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommissionReversed, AggregateTypeCommissionEntry, e.ID),
		PartnerID:        e.PartnerID.String(),
		SourceInvoiceID:  e.SourceInvoiceID,
		CommissionAmount: e.CommissionAmount.Amount(),
		Currency:         string(e.CommissionAmount.Currency()),
	}
}
