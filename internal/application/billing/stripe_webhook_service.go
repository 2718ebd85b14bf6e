package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/infrastructure/billing"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// ErrSignatureVerification marks a webhook whose signature did not
// verify. The HTTP layer maps it to 401.
var ErrSignatureVerification = shared.NewDomainError("SIGNATURE_VERIFICATION_FAILED", "Webhook signature verification failed")

// StripeWebhookService verifies and dispatches Stripe webhook events to
// the correlation and commission services.
//
// Delivery is at least once and unordered. Three layers keep the
// financial effects exactly once: the deterministic document IDs, the
// per-document processed-event sets checked inside the write
// transaction, and an advisory fast-path store consulted here. The
// fast path is marked only after a handler succeeds, so a transient
// failure leaves the event eligible for the sender's retry.
type StripeWebhookService struct {
	config      *billing.StripeConfig
	correlation *appreferral.CorrelationService
	commission  *CommissionService
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	logger      *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Config             *billing.StripeConfig
	CorrelationService *appreferral.CorrelationService
	CommissionService  *CommissionService
	IdempotencyStore   shared.IdempotencyStore
	IdempotencyConfig  shared.IdempotencyConfig
	Logger             *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	idemCfg := cfg.IdempotencyConfig
	if idemCfg.TTL <= 0 {
		idemCfg = shared.DefaultIdempotencyConfig()
	}
	return &StripeWebhookService{
		config:      cfg.Config,
		correlation: cfg.CorrelationService,
		commission:  cfg.CommissionService,
		idempotency: cfg.IdempotencyStore,
		idemCfg:     idemCfg,
		logger:      cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies a Stripe webhook payload and dispatches the
// event. A returned error means the effect may not have been applied
// and the caller must answer non-2xx so the sender retries.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	if s.alreadyProcessed(ctx, event.ID) {
		result.Message = "Event already processed"
		s.logger.Debug("Webhook event already processed, skipping",
			zap.String("event_id", event.ID))
		return result, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created":
		err = s.handleSubscriptionCreated(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.voided":
		err = s.handleInvoiceVoided(ctx, event)
	case "invoice.payment_action_required":
		err = s.handleInvoicePaymentActionRequired(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
		return result, nil
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	s.markProcessed(ctx, event.ID)
	return result, nil
}

func (s *StripeWebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	input := appreferral.CheckoutCompletedInput{
		EventID:      event.ID,
		ReferralCode: referralCodeFromSession(&session),
		Currency:     string(session.Currency),
	}
	if session.Customer != nil {
		input.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		input.SubscriptionID = session.Subscription.ID
	}

	return s.correlation.HandleCheckoutCompleted(ctx, input)
}

func (s *StripeWebhookService) handleSubscriptionCreated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	input := appreferral.SubscriptionCreatedInput{
		EventID:        event.ID,
		SubscriptionID: subscription.ID,
		Status:         string(subscription.Status),
		PlanID:         planIDFromSubscription(&subscription),
	}
	if subscription.Customer != nil {
		input.CustomerID = subscription.Customer.ID
	}

	return s.correlation.HandleSubscriptionCreated(ctx, input)
}

func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	input := InvoicePaidInput{
		EventID:    event.ID,
		InvoiceID:  invoice.ID,
		AmountPaid: invoice.AmountPaid,
		Currency:   string(invoice.Currency),
	}
	if invoice.Customer != nil {
		input.CustomerID = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		input.SubscriptionID = invoice.Subscription.ID
	}
	if invoice.PeriodStart > 0 {
		start := time.Unix(invoice.PeriodStart, 0).UTC()
		input.PeriodStart = &start
	}
	if invoice.PeriodEnd > 0 {
		end := time.Unix(invoice.PeriodEnd, 0).UTC()
		input.PeriodEnd = &end
	}

	return s.commission.HandleInvoicePaid(ctx, input)
}

func (s *StripeWebhookService) handleInvoiceVoided(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	return s.commission.HandleInvoiceVoided(ctx, InvoiceVoidedInput{
		EventID:   event.ID,
		InvoiceID: invoice.ID,
	})
}

func (s *StripeWebhookService) handleInvoicePaymentActionRequired(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	return s.commission.HandleInvoicePaymentActionRequired(ctx, event.ID, invoice.ID, customerID)
}

// referralCodeFromSession extracts the referral code a checkout session
// carries: session metadata first, the client reference ID as fallback.
func referralCodeFromSession(session *stripe.CheckoutSession) string {
	if code, ok := session.Metadata["referral_code"]; ok && code != "" {
		return code
	}
	return session.ClientReferenceID
}

// planIDFromSubscription extracts a plan identifier: explicit metadata
// first, then the price of the first subscription item.
func planIDFromSubscription(subscription *stripe.Subscription) string {
	if planID, ok := subscription.Metadata["plan_id"]; ok && planID != "" {
		return planID
	}
	if subscription.Items != nil && len(subscription.Items.Data) > 0 {
		if price := subscription.Items.Data[0].Price; price != nil {
			return price.ID
		}
	}
	return ""
}

// alreadyProcessed consults the advisory fast path. Store failures are
// logged and treated as "not processed": the per-document guard makes
// the extra pass harmless.
func (s *StripeWebhookService) alreadyProcessed(ctx context.Context, eventID string) bool {
	if s.idempotency == nil || !s.idemCfg.Enabled {
		return false
	}
	processed, err := s.idempotency.IsProcessed(ctx, eventID)
	if err != nil {
		s.logger.Warn("Idempotency store check failed",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false
	}
	return processed
}

func (s *StripeWebhookService) markProcessed(ctx context.Context, eventID string) {
	if s.idempotency == nil || !s.idemCfg.Enabled {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, eventID, s.idemCfg.TTL); err != nil {
		s.logger.Warn("Idempotency store mark failed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}
