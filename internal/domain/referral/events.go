package referral

import (
	"github.com/partnerly/backend/internal/domain/shared"
)

// Event type constants for referral domain events
const (
	EventTypeAttributionCreated = "AttributionCreated"
	EventTypeSubscriptionLinked = "SubscriptionLinked"
)

// Aggregate type constants
const (
	AggregateTypeAttribution = "ReferralAttribution"
)

// AttributionCreatedEvent is published when a checkout completes with
// referral metadata and a new attribution record is created.
type AttributionCreatedEvent struct {
	shared.BaseDomainEvent
	PartnerID    string `json:"partner_id"`
	ReferralCode string `json:"referral_code"`
	CustomerID   string `json:"customer_id"`
}

// NewAttributionCreatedEvent creates a new AttributionCreatedEvent
func NewAttributionCreatedEvent(a *ReferralAttribution) *AttributionCreatedEvent {
	return &AttributionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAttributionCreated, AggregateTypeAttribution, a.ID),
		PartnerID:       a.PartnerID.String(),
		ReferralCode:    a.ReferralCode,
		CustomerID:      a.CustomerID,
	}
}

// SubscriptionLinkedEvent is published when a subscription ID is
// attached to an existing attribution.
type SubscriptionLinkedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
}

// NewSubscriptionLinkedEvent creates a new SubscriptionLinkedEvent
func NewSubscriptionLinkedEvent(a *ReferralAttribution, subscriptionID string) *SubscriptionLinkedEvent {
	return &SubscriptionLinkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionLinked, AggregateTypeAttribution, a.ID),
		SubscriptionID:  subscriptionID,
		CustomerID:      a.CustomerID,
	}
}
