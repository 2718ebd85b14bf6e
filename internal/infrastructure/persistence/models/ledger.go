package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CommissionEntryModel is the persistence model for the CommissionEntry
// aggregate root. Amounts are stored in integer minor units; the
// deterministic primary key doubles as the uniqueness constraint for an
// (invoice, partner) pair.
type CommissionEntryModel struct {
	AggregateModel
	PartnerID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	ReferralID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	SourceInvoiceID  string            `gorm:"type:varchar(255);not null;index"`
	SubscriptionID   *string           `gorm:"type:varchar(255);index"`
	AmountGross      int64             `gorm:"not null"`
	Currency         string            `gorm:"type:varchar(3);not null"`
	CommissionRate   decimal.Decimal   `gorm:"type:decimal(8,6);not null"`
	CommissionAmount int64             `gorm:"not null"`
	PeriodStart      *time.Time        ``
	PeriodEnd        *time.Time        ``
	Status           string            `gorm:"type:varchar(10);not null;index"`
	ProcessedEvents  shared.EventIDSet `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (CommissionEntryModel) TableName() string {
	return "commission_entries"
}

// ToDomain converts the persistence model to a domain CommissionEntry.
func (m *CommissionEntryModel) ToDomain() *ledger.CommissionEntry {
	currency := valueobject.Currency(m.Currency)
	entry := &ledger.CommissionEntry{
		PartnerID:        m.PartnerID,
		ReferralID:       m.ReferralID,
		SourceInvoiceID:  m.SourceInvoiceID,
		SubscriptionID:   m.SubscriptionID,
		AmountGross:      valueobject.MustMoney(m.AmountGross, currency),
		CommissionRate:   m.CommissionRate,
		CommissionAmount: valueobject.MustMoney(m.CommissionAmount, currency),
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		Status:           ledger.EntryStatus(m.Status),
		ProcessedEvents:  m.ProcessedEvents,
	}
	m.PopulateAggregateRoot(&entry.BaseAggregateRoot)
	return entry
}

// FromDomain populates the persistence model from a domain CommissionEntry.
func (m *CommissionEntryModel) FromDomain(e *ledger.CommissionEntry) {
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	m.PartnerID = e.PartnerID
	m.ReferralID = e.ReferralID
	m.SourceInvoiceID = e.SourceInvoiceID
	m.SubscriptionID = e.SubscriptionID
	m.AmountGross = e.AmountGross.Amount()
	m.Currency = string(e.CommissionAmount.Currency())
	m.CommissionRate = e.CommissionRate
	m.CommissionAmount = e.CommissionAmount.Amount()
	m.PeriodStart = e.PeriodStart
	m.PeriodEnd = e.PeriodEnd
	m.Status = string(e.Status)
	m.ProcessedEvents = e.ProcessedEvents
}

// CommissionEntryModelFromDomain creates a new persistence model from a domain CommissionEntry.
func CommissionEntryModelFromDomain(e *ledger.CommissionEntry) *CommissionEntryModel {
	m := &CommissionEntryModel{}
	m.FromDomain(e)
	return m
}
