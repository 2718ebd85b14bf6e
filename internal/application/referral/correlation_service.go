package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// maxAttributionScan caps how many attribution records a single
// subscription.created event may touch for one customer.
const maxAttributionScan = 50

// CorrelationService correlates payment provider events with referral
// attributions. It owns the two correlation steps of the pipeline:
// checkout completion (creates or converges the attribution record) and
// subscription creation (links the subscription ID to open
// attributions).
type CorrelationService struct {
	scope    TransactionScope
	eventBus shared.EventBus
	logger   *zap.Logger
}

// CorrelationServiceConfig contains configuration for CorrelationService
type CorrelationServiceConfig struct {
	Scope    TransactionScope
	EventBus shared.EventBus
	Logger   *zap.Logger
}

// NewCorrelationService creates a new CorrelationService
func NewCorrelationService(cfg CorrelationServiceConfig) *CorrelationService {
	return &CorrelationService{
		scope:    cfg.Scope,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
	}
}

// CheckoutCompletedInput carries the referral-relevant fields of a
// checkout completion event.
type CheckoutCompletedInput struct {
	EventID        string
	ReferralCode   string
	CustomerID     string
	SubscriptionID string // optional, present when checkout created a subscription
	Currency       string
}

// HandleCheckoutCompleted processes a completed checkout carrying
// referral metadata. The attribution document ID is derived from the
// (code, customer) pair, so a redelivered or concurrent event converges
// on the same record instead of duplicating it. Code usage and partner
// referral counters move only when the record is first created.
//
// Business rejections (unknown code, inactive partner, and so on) are
// logged and acknowledged: the sender's retries cannot fix them.
func (s *CorrelationService) HandleCheckoutCompleted(ctx context.Context, input CheckoutCompletedInput) error {
	if input.ReferralCode == "" || input.CustomerID == "" {
		s.logger.Debug("Checkout completed without referral metadata, skipping",
			zap.String("event_id", input.EventID))
		return nil
	}

	var pending []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		code, partner, err := resolveCode(ctx, repos.CodeRepo(), repos.PartnerRepo(), input.ReferralCode)
		if err != nil {
			if IsRejection(err) {
				s.logger.Warn("Referral code rejected at checkout",
					zap.String("event_id", input.EventID),
					zap.String("code", referral.NormalizeCode(input.ReferralCode)),
					zap.String("customer_id", input.CustomerID),
					zap.Error(err))
				return nil
			}
			return fmt.Errorf("failed to resolve referral code: %w", err)
		}

		id := referral.AttributionID(input.ReferralCode, input.CustomerID)
		attribution, err := repos.AttributionRepo().FindByID(ctx, id)
		switch {
		case err == nil:
			if attribution.HasProcessed(input.EventID) {
				s.logger.Debug("Checkout event already processed, skipping",
					zap.String("event_id", input.EventID),
					zap.String("attribution_id", id.String()))
				return nil
			}
			// Duplicate delivery with a fresh event ID, or a retried
			// checkout for the same pair. Fill in anything we learned,
			// never count a second referral.
			attribution.AttachSubscription(input.SubscriptionID, nil, nil)
			attribution.MarkProcessed(input.EventID)
			if err := repos.AttributionRepo().Save(ctx, attribution); err != nil {
				return fmt.Errorf("failed to save attribution: %w", err)
			}

		case errors.Is(err, shared.ErrNotFound):
			attribution, err = referral.NewReferralAttribution(
				input.ReferralCode, partner.ID, input.CustomerID, currencyOrDefault(input.Currency))
			if err != nil {
				return fmt.Errorf("failed to create attribution: %w", err)
			}
			attribution.AttachSubscription(input.SubscriptionID, nil, nil)
			attribution.MarkProcessed(input.EventID)
			if err := repos.AttributionRepo().Save(ctx, attribution); err != nil {
				return fmt.Errorf("failed to save attribution: %w", err)
			}

			code.RecordUse()
			if err := repos.CodeRepo().Save(ctx, code); err != nil {
				return fmt.Errorf("failed to save referral code: %w", err)
			}

			partner.RecordReferral()
			if err := repos.PartnerRepo().SaveWithLock(ctx, partner); err != nil {
				return fmt.Errorf("failed to save partner: %w", err)
			}

		default:
			return fmt.Errorf("failed to load attribution: %w", err)
		}

		pending = collectEvents(attribution)
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, pending)
	return nil
}

// SubscriptionCreatedInput carries the referral-relevant fields of a
// subscription creation event.
type SubscriptionCreatedInput struct {
	EventID        string
	SubscriptionID string
	CustomerID     string
	Status         string
	PlanID         string
}

// HandleSubscriptionCreated links a new subscription to the customer's
// open attributions. Every attribution without a subscription ID gets
// this one; records that already carry a subscription ID are left
// alone, so duplicate and out-of-order deliveries are no-ops.
//
// If the subscription arrives before the checkout event, there is no
// attribution yet. The event is acknowledged: the checkout handler
// carries the subscription ID itself when the session exposes one.
func (s *CorrelationService) HandleSubscriptionCreated(ctx context.Context, input SubscriptionCreatedInput) error {
	if input.SubscriptionID == "" || input.CustomerID == "" {
		s.logger.Warn("Subscription created without subscription or customer ID, skipping",
			zap.String("event_id", input.EventID))
		return nil
	}

	var pending []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		attributions, err := repos.AttributionRepo().FindByCustomer(ctx, input.CustomerID, maxAttributionScan)
		if err != nil {
			return fmt.Errorf("failed to load attributions: %w", err)
		}
		if len(attributions) == 0 {
			s.logger.Warn("No attribution found for subscription customer",
				zap.String("event_id", input.EventID),
				zap.String("customer_id", input.CustomerID),
				zap.String("subscription_id", input.SubscriptionID))
			return nil
		}

		var status, plan *string
		if input.Status != "" {
			status = &input.Status
		}
		if input.PlanID != "" {
			plan = &input.PlanID
		}

		for _, attribution := range attributions {
			if attribution.HasProcessed(input.EventID) {
				continue
			}
			changed := attribution.AttachSubscription(input.SubscriptionID, status, plan)
			attribution.MarkProcessed(input.EventID)
			if err := repos.AttributionRepo().Save(ctx, attribution); err != nil {
				return fmt.Errorf("failed to save attribution: %w", err)
			}
			if changed {
				pending = append(pending, collectEvents(attribution)...)
			} else {
				attribution.ClearDomainEvents()
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, pending)
	return nil
}

func currencyOrDefault(currency string) valueobject.Currency {
	if currency == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(currency)
}

// collectEvents drains the pending domain events of an aggregate
func collectEvents(root shared.AggregateRoot) []shared.DomainEvent {
	events := root.GetDomainEvents()
	root.ClearDomainEvents()
	return events
}

func (s *CorrelationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err))
	}
}
