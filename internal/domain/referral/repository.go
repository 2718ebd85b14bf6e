package referral

import (
	"context"

	"github.com/google/uuid"
)

// ReferralCodeRepository persists referral codes
type ReferralCodeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReferralCode, error)
	// FindByCode looks up a code by its normalized form
	FindByCode(ctx context.Context, code string) (*ReferralCode, error)
	Save(ctx context.Context, code *ReferralCode) error
}

// PartnerRepository persists partners
type PartnerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Partner, error)
	Save(ctx context.Context, partner *Partner) error
	// SaveWithLock updates an existing partner guarded by its version:
	// the write only lands when the stored row still carries the version
	// the partner was loaded with. Returns shared.ErrConcurrencyConflict
	// when another transaction got there first, so the caller's
	// transaction rolls back and the delivery is retried against fresh
	// state.
	SaveWithLock(ctx context.Context, partner *Partner) error
}

// AttributionRepository persists referral attributions
type AttributionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReferralAttribution, error)
	// FindByCustomer returns all attributions for a customer, newest
	// first, capped at limit. A customer attributed through several
	// codes historically has several records.
	FindByCustomer(ctx context.Context, customerID string, limit int) ([]*ReferralAttribution, error)
	// FindBySubscription returns the attribution linked to a
	// subscription, or shared.ErrNotFound.
	FindBySubscription(ctx context.Context, subscriptionID string) (*ReferralAttribution, error)
	Save(ctx context.Context, attribution *ReferralAttribution) error
}
