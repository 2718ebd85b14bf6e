package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReferralCodeModel is the persistence model for the ReferralCode aggregate root.
type ReferralCodeModel struct {
	AggregateModel
	Code                 string           `gorm:"type:varchar(20);not null;uniqueIndex"`
	PartnerID            uuid.UUID        `gorm:"type:uuid;not null;index"`
	Active               bool             `gorm:"not null;default:true"`
	ExpiresAt            *time.Time       `gorm:"index"`
	MaxUses              *int             ``
	Uses                 int              `gorm:"not null;default:0"`
	CustomCommissionRate *decimal.Decimal `gorm:"type:decimal(8,6)"`
}

// TableName returns the table name for GORM
func (ReferralCodeModel) TableName() string {
	return "referral_codes"
}

// ToDomain converts the persistence model to a domain ReferralCode.
func (m *ReferralCodeModel) ToDomain() *referral.ReferralCode {
	code := &referral.ReferralCode{
		Code:                 m.Code,
		PartnerID:            m.PartnerID,
		Active:               m.Active,
		ExpiresAt:            m.ExpiresAt,
		MaxUses:              m.MaxUses,
		Uses:                 m.Uses,
		CustomCommissionRate: m.CustomCommissionRate,
	}
	m.PopulateAggregateRoot(&code.BaseAggregateRoot)
	return code
}

// FromDomain populates the persistence model from a domain ReferralCode.
func (m *ReferralCodeModel) FromDomain(c *referral.ReferralCode) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.PartnerID = c.PartnerID
	m.Active = c.Active
	m.ExpiresAt = c.ExpiresAt
	m.MaxUses = c.MaxUses
	m.Uses = c.Uses
	m.CustomCommissionRate = c.CustomCommissionRate
}

// ReferralCodeModelFromDomain creates a new persistence model from a domain ReferralCode.
func ReferralCodeModelFromDomain(c *referral.ReferralCode) *ReferralCodeModel {
	m := &ReferralCodeModel{}
	m.FromDomain(c)
	return m
}

// PartnerModel is the persistence model for the Partner aggregate root.
// Partner statistics are flattened into columns; they are derived data
// and can be rebuilt from the commission ledger.
type PartnerModel struct {
	AggregateModel
	Name                  string          `gorm:"type:varchar(255);not null"`
	Email                 string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	CommissionRate        decimal.Decimal `gorm:"type:decimal(8,6);not null;default:0"`
	Status                string          `gorm:"type:varchar(20);not null;index"`
	TotalReferrals        int             `gorm:"not null;default:0"`
	TotalConversions      int             `gorm:"not null;default:0"`
	TotalCommissionEarned int64           `gorm:"not null;default:0"`
	TotalCommissionPaid   int64           `gorm:"not null;default:0"`
	StatsCalculatedAt     *time.Time      ``
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// ToDomain converts the persistence model to a domain Partner.
func (m *PartnerModel) ToDomain() *referral.Partner {
	partner := &referral.Partner{
		Name:           m.Name,
		Email:          m.Email,
		CommissionRate: m.CommissionRate,
		Status:         referral.PartnerStatus(m.Status),
		Stats: referral.PartnerStats{
			TotalReferrals:        m.TotalReferrals,
			TotalConversions:      m.TotalConversions,
			TotalCommissionEarned: m.TotalCommissionEarned,
			TotalCommissionPaid:   m.TotalCommissionPaid,
			LastCalculated:        m.StatsCalculatedAt,
		},
	}
	m.PopulateAggregateRoot(&partner.BaseAggregateRoot)
	return partner
}

// FromDomain populates the persistence model from a domain Partner.
func (m *PartnerModel) FromDomain(p *referral.Partner) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Email = p.Email
	m.CommissionRate = p.CommissionRate
	m.Status = string(p.Status)
	m.TotalReferrals = p.Stats.TotalReferrals
	m.TotalConversions = p.Stats.TotalConversions
	m.TotalCommissionEarned = p.Stats.TotalCommissionEarned
	m.TotalCommissionPaid = p.Stats.TotalCommissionPaid
	m.StatsCalculatedAt = p.Stats.LastCalculated
}

// PartnerModelFromDomain creates a new persistence model from a domain Partner.
func PartnerModelFromDomain(p *referral.Partner) *PartnerModel {
	m := &PartnerModel{}
	m.FromDomain(p)
	return m
}

// ReferralAttributionModel is the persistence model for the
// ReferralAttribution aggregate root. The primary key is deterministic
// per (code, customer) pair, so the unique constraint is the key itself.
type ReferralAttributionModel struct {
	AggregateModel
	PartnerID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	ReferralCode       string            `gorm:"type:varchar(20);not null;index"`
	CustomerID         string            `gorm:"type:varchar(255);not null;index"`
	SubscriptionID     *string           `gorm:"type:varchar(255);index"`
	SubscriptionStatus *string           `gorm:"type:varchar(50)"`
	PlanID             *string           `gorm:"type:varchar(255)"`
	Currency           string            `gorm:"type:varchar(3);not null"`
	ProcessedEvents    shared.EventIDSet `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (ReferralAttributionModel) TableName() string {
	return "referral_attributions"
}

// ToDomain converts the persistence model to a domain ReferralAttribution.
func (m *ReferralAttributionModel) ToDomain() *referral.ReferralAttribution {
	attribution := &referral.ReferralAttribution{
		PartnerID:          m.PartnerID,
		ReferralCode:       m.ReferralCode,
		CustomerID:         m.CustomerID,
		SubscriptionID:     m.SubscriptionID,
		SubscriptionStatus: m.SubscriptionStatus,
		PlanID:             m.PlanID,
		Currency:           valueobject.Currency(m.Currency),
		ProcessedEvents:    m.ProcessedEvents,
	}
	m.PopulateAggregateRoot(&attribution.BaseAggregateRoot)
	return attribution
}

// FromDomain populates the persistence model from a domain ReferralAttribution.
func (m *ReferralAttributionModel) FromDomain(a *referral.ReferralAttribution) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.PartnerID = a.PartnerID
	m.ReferralCode = a.ReferralCode
	m.CustomerID = a.CustomerID
	m.SubscriptionID = a.SubscriptionID
	m.SubscriptionStatus = a.SubscriptionStatus
	m.PlanID = a.PlanID
	m.Currency = string(a.Currency)
	m.ProcessedEvents = a.ProcessedEvents
}

// ReferralAttributionModelFromDomain creates a new persistence model from a domain ReferralAttribution.
func ReferralAttributionModelFromDomain(a *referral.ReferralAttribution) *ReferralAttributionModel {
	m := &ReferralAttributionModel{}
	m.FromDomain(a)
	return m
}
