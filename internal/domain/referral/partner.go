package referral

import (
	"time"

	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PartnerStatus represents the lifecycle status of a partner account
type PartnerStatus string

const (
	// PartnerStatusPending indicates the partner has applied but is not yet approved
	PartnerStatusPending PartnerStatus = "pending"
	// PartnerStatusActive indicates the partner may accrue attributions and commission
	PartnerStatusActive PartnerStatus = "active"
	// PartnerStatusRejected indicates the application was rejected
	PartnerStatusRejected PartnerStatus = "rejected"
)

// IsValid checks if the status is a valid PartnerStatus
func (s PartnerStatus) IsValid() bool {
	switch s {
	case PartnerStatusPending, PartnerStatusActive, PartnerStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PartnerStatus
func (s PartnerStatus) String() string {
	return string(s)
}

// PartnerStats is an eventually-consistent aggregate derived from the
// commission ledger, recomputed additively on each accrual/reversal.
// It can be rebuilt from the ledger if the incremental path is ever
// suspected (see CommissionEntryRepository.SumByPartner).
type PartnerStats struct {
	TotalReferrals        int        `json:"total_referrals"`
	TotalConversions      int        `json:"total_conversions"`
	TotalCommissionEarned int64      `json:"total_commission_earned"` // minor units
	TotalCommissionPaid   int64      `json:"total_commission_paid"`   // minor units
	LastCalculated        *time.Time `json:"last_calculated,omitempty"`
}

// Partner is a referring partner who earns commission on attributed
// purchases. Only active partners accrue new attributions.
type Partner struct {
	shared.BaseAggregateRoot

	Name           string          `json:"name"`
	Email          string          `json:"email"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Status         PartnerStatus   `json:"status"`
	Stats          PartnerStats    `json:"stats"`
}

// NewPartner creates a partner in pending status with the given default
// commission rate. Rate must be in [0.0, 1.0].
func NewPartner(name, email string, commissionRate decimal.Decimal) (*Partner, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Partner name cannot be empty")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0.0 and 1.0")
	}

	return &Partner{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		CommissionRate:    commissionRate,
		Status:            PartnerStatusPending,
	}, nil
}

// IsActive reports whether the partner may accrue new attributions
func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

// Approve activates a pending partner
func (p *Partner) Approve() error {
	if p.Status != PartnerStatusPending {
		return shared.ErrInvalidState
	}
	p.Status = PartnerStatusActive
	p.UpdatedAt = time.Now()
	return nil
}

// Reject rejects a pending partner
func (p *Partner) Reject() error {
	if p.Status != PartnerStatusPending {
		return shared.ErrInvalidState
	}
	p.Status = PartnerStatusRejected
	p.UpdatedAt = time.Now()
	return nil
}

// EffectiveRate resolves the commission rate for a conversion: a
// per-code custom override wins, then the partner's own rate, then the
// system default (a partner with an unset/zero rate falls back).
func (p *Partner) EffectiveRate(customRate *decimal.Decimal, systemDefault decimal.Decimal) decimal.Decimal {
	if customRate != nil {
		return *customRate
	}
	if p.CommissionRate.IsPositive() {
		return p.CommissionRate
	}
	return systemDefault
}

// RecordReferral increments the referral counter when a new attribution
// is created for this partner. Bumps the version so concurrent stat
// updates are detected at save time.
func (p *Partner) RecordReferral() {
	p.Stats.TotalReferrals++
	p.touchStats()
}

// ApplyAccrual folds an accrued commission into the partner statistics
func (p *Partner) ApplyAccrual(commission valueobject.Money) {
	p.Stats.TotalConversions++
	p.Stats.TotalCommissionEarned += commission.Amount()
	p.touchStats()
}

// ApplyReversal folds a reversed commission into the partner statistics.
// The commission amount of a reversal entry is negative, so this is a
// plain addition as well.
func (p *Partner) ApplyReversal(commission valueobject.Money) {
	p.Stats.TotalCommissionEarned += commission.Amount()
	p.touchStats()
}

// ReconcileEarned replaces the earned total with a value recomputed
// from the commission ledger.
func (p *Partner) ReconcileEarned(total int64) {
	p.Stats.TotalCommissionEarned = total
	p.touchStats()
}

func (p *Partner) touchStats() {
	now := time.Now()
	p.Stats.LastCalculated = &now
	p.UpdatedAt = now
	p.IncrementVersion()
}
