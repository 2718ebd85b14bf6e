package referral

import (
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
)

// attributionNamespace is the UUIDv5 namespace for deterministic
// attribution IDs. Never change it: IDs derived from it are persisted.
var attributionNamespace = uuid.MustParse("6f1c2b4e-8a3d-4b3f-9a52-0e7c1d9b2a10")

// AttributionID derives the deterministic document ID for a
// (code, customer) pair. Repeated attribution attempts for the same
// pair converge to one record because they target the same ID.
func AttributionID(code, customerID string) uuid.UUID {
	return uuid.NewSHA1(attributionNamespace, []byte(NormalizeCode(code)+"|"+customerID))
}

// ReferralAttribution is the durable link between a referral code, its
// partner, and a purchasing customer. Created on the first successful
// checkout-completion event carrying referral metadata; the
// subscription ID is attached later, exactly once, by the correlation
// step. Never deleted.
type ReferralAttribution struct {
	shared.BaseAggregateRoot

	PartnerID          uuid.UUID            `json:"partner_id"`
	ReferralCode       string               `json:"referral_code"`
	CustomerID         string               `json:"customer_id"`
	SubscriptionID     *string              `json:"subscription_id,omitempty"`
	SubscriptionStatus *string              `json:"subscription_status,omitempty"`
	PlanID             *string              `json:"plan_id,omitempty"`
	Currency           valueobject.Currency `json:"currency"`
	ProcessedEvents    shared.EventIDSet    `json:"processed_event_ids"`
}

// NewReferralAttribution creates an attribution for a (code, customer)
// pair. Its ID is deterministic so concurrent creation attempts for
// the same pair collide on the primary key instead of duplicating.
func NewReferralAttribution(code string, partnerID uuid.UUID, customerID string, currency valueobject.Currency) (*ReferralAttribution, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Referral code cannot be empty")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if customerID == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	a := &ReferralAttribution{
		BaseAggregateRoot: shared.NewBaseAggregateRootWithID(AttributionID(normalized, customerID)),
		PartnerID:         partnerID,
		ReferralCode:      normalized,
		CustomerID:        customerID,
		Currency:          currency,
		ProcessedEvents:   shared.EventIDSet{},
	}
	a.AddDomainEvent(NewAttributionCreatedEvent(a))
	return a, nil
}

// HasProcessed reports whether an upstream event has already been
// applied to this attribution.
func (a *ReferralAttribution) HasProcessed(eventID string) bool {
	return a.ProcessedEvents.Contains(eventID)
}

// MarkProcessed records an upstream event ID. Must be persisted in the
// same transaction as the effect it guards.
func (a *ReferralAttribution) MarkProcessed(eventID string) {
	if a.ProcessedEvents.Add(eventID) {
		a.UpdatedAt = time.Now()
	}
}

// AttachSubscription links a subscription to the attribution.
// A subscription ID is attached exactly once: a present value is never
// overwritten, so out-of-order or duplicate deliveries cannot clear or
// replace it. Lifecycle metadata (status, plan) follows the same
// fill-in-only discipline. Returns true if anything changed.
func (a *ReferralAttribution) AttachSubscription(subscriptionID string, status, planID *string) bool {
	changed := false
	if subscriptionID != "" && (a.SubscriptionID == nil || *a.SubscriptionID == "") {
		a.SubscriptionID = &subscriptionID
		a.AddDomainEvent(NewSubscriptionLinkedEvent(a, subscriptionID))
		changed = true
	}
	if status != nil && *status != "" && a.SubscriptionStatus == nil {
		a.SubscriptionStatus = status
		changed = true
	}
	if planID != nil && *planID != "" && a.PlanID == nil {
		a.PlanID = planID
		changed = true
	}
	if changed {
		a.UpdatedAt = time.Now()
	}
	return changed
}
