package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// EntryStatus represents the status of a commission ledger entry
type EntryStatus string

const (
	// EntryStatusPending indicates an entry awaiting confirmation
	EntryStatusPending EntryStatus = "pending"
	// EntryStatusAccrued indicates commission recognized on a paid invoice
	EntryStatusAccrued EntryStatus = "accrued"
	// EntryStatusReversed indicates a reversal entry canceling a prior accrual
	EntryStatusReversed EntryStatus = "reversed"
	// EntryStatusPaid indicates the commission has been paid out
	EntryStatusPaid EntryStatus = "paid"
)

// IsValid checks if the status is a valid EntryStatus
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusAccrued, EntryStatusReversed, EntryStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the lifecycle transition is allowed.
// Per (invoice, partner) pair the lifecycle is
// (none) -> accrued -> {reversed | paid}; nothing else. Events implying
// any other transition are logged and skipped, never fatal.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	switch s {
	case EntryStatusAccrued:
		return next == EntryStatusReversed || next == EntryStatusPaid
	default:
		return false
	}
}

// entryNamespace is the UUIDv5 namespace for deterministic ledger entry
// IDs. Never change it: IDs derived from it are persisted.
var entryNamespace = uuid.MustParse("9d4a7c21-5e0b-4f6d-8c3e-2b1f0a6d4e97")

// EntryID derives the deterministic accrual entry ID for an
// (invoice, partner) pair, so redelivery of the same invoice.paid event
// naturally targets the same document.
func EntryID(invoiceID string, partnerID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(entryNamespace, []byte(invoiceID+"|"+partnerID.String()))
}

// ReversalEntryID derives the deterministic reversal entry ID for an
// (invoice, partner) pair.
func ReversalEntryID(invoiceID string, partnerID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(entryNamespace, []byte(invoiceID+"|"+partnerID.String()+"|reversal"))
}

// CommissionEntry is one row of the commission ledger: an accrual or a
// reversal for an (invoice, partner) pair. The ledger is append-mostly;
// a reversal is a separate document with the negated amount, never an
// in-place mutation of the original.
type CommissionEntry struct {
	shared.BaseAggregateRoot

	PartnerID        uuid.UUID         `json:"partner_id"`
	ReferralID       uuid.UUID         `json:"referral_id"`
	SourceInvoiceID  string            `json:"source_invoice_id"`
	SubscriptionID   *string           `json:"subscription_id,omitempty"`
	AmountGross      valueobject.Money `json:"amount_gross"`
	CommissionRate   decimal.Decimal   `json:"commission_rate"`
	CommissionAmount valueobject.Money `json:"commission_amount"`
	PeriodStart      *time.Time        `json:"period_start,omitempty"`
	PeriodEnd        *time.Time        `json:"period_end,omitempty"`
	Status           EntryStatus       `json:"status"`
	ProcessedEvents  shared.EventIDSet `json:"processed_event_ids"`
}

// NewAccrual creates an accrued commission entry for a paid invoice.
// The commission is computed from the gross amount in integer minor
// units (see valueobject.Money.ApplyRate for the rounding rule).
func NewAccrual(
	invoiceID string,
	partnerID uuid.UUID,
	referralID uuid.UUID,
	subscriptionID *string,
	amountGross valueobject.Money,
	rate decimal.Decimal,
	periodStart, periodEnd *time.Time,
) (*CommissionEntry, error) {
	if invoiceID == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if !amountGross.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Gross amount must be positive")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0.0 and 1.0")
	}

	e := &CommissionEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRootWithID(EntryID(invoiceID, partnerID)),
		PartnerID:         partnerID,
		ReferralID:        referralID,
		SourceInvoiceID:   invoiceID,
		SubscriptionID:    subscriptionID,
		AmountGross:       amountGross,
		CommissionRate:    rate,
		CommissionAmount:  amountGross.ApplyRate(rate),
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		Status:            EntryStatusAccrued,
		ProcessedEvents:   shared.EventIDSet{},
	}
	e.AddDomainEvent(NewCommissionAccruedEvent(e))
	return e, nil
}

// Reversal creates the reversal document for this accrual: identical
// fields with the commission amount negated and status reversed. The
// original entry is left untouched (audit trail).
func (e *CommissionEntry) Reversal() (*CommissionEntry, error) {
	if !e.Status.CanTransitionTo(EntryStatusReversed) {
		return nil, shared.ErrInvalidState
	}

	r := &CommissionEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRootWithID(ReversalEntryID(e.SourceInvoiceID, e.PartnerID)),
		PartnerID:         e.PartnerID,
		ReferralID:        e.ReferralID,
		SourceInvoiceID:   e.SourceInvoiceID,
		SubscriptionID:    e.SubscriptionID,
		AmountGross:       e.AmountGross,
		CommissionRate:    e.CommissionRate,
		CommissionAmount:  e.CommissionAmount.Negate(),
		PeriodStart:       e.PeriodStart,
		PeriodEnd:         e.PeriodEnd,
		Status:            EntryStatusReversed,
		ProcessedEvents:   shared.EventIDSet{},
	}
	r.AddDomainEvent(NewCommissionReversedEvent(r))
	return r, nil
}

// MarkPaid transitions an accrued entry to paid. Only the payout job
// calls this.
func (e *CommissionEntry) MarkPaid() error {
	if !e.Status.CanTransitionTo(EntryStatusPaid) {
		return shared.ErrInvalidState
	}
	e.Status = EntryStatusPaid
	e.UpdatedAt = time.Now()
	return nil
}

// HasProcessed reports whether an upstream event has already been
// applied to this entry.
func (e *CommissionEntry) HasProcessed(eventID string) bool {
	return e.ProcessedEvents.Contains(eventID)
}

// MarkProcessed records an upstream event ID. Must be persisted in the
// same transaction as the effect it guards.
func (e *CommissionEntry) MarkProcessed(eventID string) {
	if e.ProcessedEvents.Add(eventID) {
		e.UpdatedAt = time.Now()
	}
}

// IsReversal reports whether this entry is a reversal document
func (e *CommissionEntry) IsReversal() bool {
	return e.Status == EntryStatusReversed
}
