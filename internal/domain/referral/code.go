package referral

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rejection reasons for a code lookup, in the order they are checked.
// Resolution short-circuits on the first failure.
var (
	ErrCodeNotFound          = shared.NewDomainError("CODE_NOT_FOUND", "Referral code not found")
	ErrCodeInactive          = shared.NewDomainError("CODE_INACTIVE", "Referral code is not active")
	ErrCodeExpired           = shared.NewDomainError("CODE_EXPIRED", "Referral code has expired")
	ErrCodeUsageLimitReached = shared.NewDomainError("CODE_USAGE_LIMIT_REACHED", "Referral code usage limit reached")
	ErrPartnerNotActive      = shared.NewDomainError("PARTNER_NOT_ACTIVE", "Owning partner is not active")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// NormalizeCode canonicalizes a referral code: trimmed and upper-cased.
// All storage and lookups go through this form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferralCode is a promo/referral code bound to a partner.
// The use count is incremented only when an attribution is actually
// recorded, never on validation, so repeated failed checkout attempts
// cannot starve legitimate uses.
type ReferralCode struct {
	shared.BaseAggregateRoot

	Code                 string           `json:"code"`
	PartnerID            uuid.UUID        `json:"partner_id"`
	Active               bool             `json:"active"`
	ExpiresAt            *time.Time       `json:"expires_at,omitempty"`
	MaxUses              *int             `json:"max_uses,omitempty"`
	Uses                 int              `json:"uses"`
	CustomCommissionRate *decimal.Decimal `json:"custom_commission_rate,omitempty"`
}

// NewReferralCode creates a referral code for a partner. The code is
// normalized and must be 3-20 alphanumeric characters after
// normalization.
func NewReferralCode(code string, partnerID uuid.UUID) (*ReferralCode, error) {
	normalized := NormalizeCode(code)
	if !codePattern.MatchString(normalized) {
		return nil, shared.NewDomainError("INVALID_CODE", "Code must be 3-20 alphanumeric characters")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}

	return &ReferralCode{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              normalized,
		PartnerID:         partnerID,
		Active:            true,
	}, nil
}

// SetCustomCommissionRate sets a per-code rate override that takes
// precedence over the partner's default rate.
func (c *ReferralCode) SetCustomCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0.0 and 1.0")
	}
	c.CustomCommissionRate = &rate
	return nil
}

// SetExpiration sets the expiration time of the code
func (c *ReferralCode) SetExpiration(expiresAt time.Time) {
	c.ExpiresAt = &expiresAt
}

// SetMaxUses caps how many attributions the code may produce
func (c *ReferralCode) SetMaxUses(maxUses int) error {
	if maxUses <= 0 {
		return shared.NewDomainError("INVALID_MAX_USES", "Max uses must be positive")
	}
	c.MaxUses = &maxUses
	return nil
}

// Deactivate disables the code
func (c *ReferralCode) Deactivate() {
	c.Active = false
}

// CheckUsable reports whether the code is usable right now.
// Checks are ordered: inactive, expired, usage limit. Whether the
// owning partner is active is checked by the directory, which holds
// both aggregates.
func (c *ReferralCode) CheckUsable(now time.Time) error {
	if !c.Active {
		return ErrCodeInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCodeExpired
	}
	if c.MaxUses != nil && c.Uses >= *c.MaxUses {
		return ErrCodeUsageLimitReached
	}
	return nil
}

// RecordUse increments the use count. Called only when an attribution
// is recorded.
func (c *ReferralCode) RecordUse() {
	c.Uses++
	c.UpdatedAt = time.Now()
}
