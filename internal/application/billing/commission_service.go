package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionService applies invoice lifecycle events to the commission
// ledger. Accruals and reversals are written together with the partner
// statistics and the processed-event marker in one transaction, so a
// crash mid-handling leaves either the full effect or none of it.
type CommissionService struct {
	scope       appreferral.TransactionScope
	eventBus    shared.EventBus
	defaultRate decimal.Decimal
	logger      *zap.Logger
}

// CommissionServiceConfig contains configuration for CommissionService
type CommissionServiceConfig struct {
	Scope appreferral.TransactionScope
	// DefaultRate is the system-wide commission rate used when neither
	// the code nor the partner carries one.
	DefaultRate decimal.Decimal
	EventBus    shared.EventBus
	Logger      *zap.Logger
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(cfg CommissionServiceConfig) *CommissionService {
	return &CommissionService{
		scope:       cfg.Scope,
		eventBus:    cfg.EventBus,
		defaultRate: cfg.DefaultRate,
		logger:      cfg.Logger,
	}
}

// InvoicePaidInput carries the commission-relevant fields of a paid
// invoice. AmountPaid is in integer minor units.
type InvoicePaidInput struct {
	EventID        string
	InvoiceID      string
	CustomerID     string
	SubscriptionID string // optional
	AmountPaid     int64
	Currency       string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
}

// HandleInvoicePaid accrues commission for a paid invoice attributed to
// a partner. The ledger entry ID is derived from the (invoice, partner)
// pair: a redelivered invoice.paid event targets the same entry and
// becomes a no-op. Invoices with a zero or negative paid amount never
// accrue.
func (s *CommissionService) HandleInvoicePaid(ctx context.Context, input InvoicePaidInput) error {
	if input.InvoiceID == "" {
		s.logger.Warn("Invoice paid event without invoice ID, skipping",
			zap.String("event_id", input.EventID))
		return nil
	}
	if input.AmountPaid <= 0 {
		s.logger.Info("Invoice paid with non-positive amount, no commission",
			zap.String("event_id", input.EventID),
			zap.String("invoice_id", input.InvoiceID),
			zap.Int64("amount_paid", input.AmountPaid))
		return nil
	}

	var pending []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		attribution, err := s.findAttribution(ctx, repos, input.SubscriptionID, input.CustomerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("No attribution for paid invoice, skipping",
					zap.String("event_id", input.EventID),
					zap.String("invoice_id", input.InvoiceID),
					zap.String("customer_id", input.CustomerID))
				return nil
			}
			return fmt.Errorf("failed to find attribution: %w", err)
		}

		entryID := ledger.EntryID(input.InvoiceID, attribution.PartnerID)
		existing, err := repos.EntryRepo().FindByID(ctx, entryID)
		switch {
		case err == nil:
			if !existing.HasProcessed(input.EventID) {
				existing.MarkProcessed(input.EventID)
				if err := repos.EntryRepo().Save(ctx, existing); err != nil {
					return fmt.Errorf("failed to save ledger entry: %w", err)
				}
			}
			s.logger.Debug("Commission already accrued for invoice, skipping",
				zap.String("event_id", input.EventID),
				zap.String("entry_id", entryID.String()))
			return nil
		case errors.Is(err, shared.ErrNotFound):
			// First delivery for this (invoice, partner) pair
		default:
			return fmt.Errorf("failed to load ledger entry: %w", err)
		}

		partner, err := repos.PartnerRepo().FindByID(ctx, attribution.PartnerID)
		if err != nil {
			return fmt.Errorf("failed to load partner: %w", err)
		}

		rate, err := s.resolveRate(ctx, repos, attribution, partner)
		if err != nil {
			return err
		}

		gross, err := valueobject.NewMoney(input.AmountPaid, currencyOrAttributed(input.Currency, attribution))
		if err != nil {
			return fmt.Errorf("invalid invoice amount: %w", err)
		}

		var subscriptionID *string
		if input.SubscriptionID != "" {
			subscriptionID = &input.SubscriptionID
		} else if attribution.SubscriptionID != nil {
			subscriptionID = attribution.SubscriptionID
		}

		entry, err := ledger.NewAccrual(
			input.InvoiceID, partner.ID, attribution.ID, subscriptionID,
			gross, rate, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			return fmt.Errorf("failed to create accrual: %w", err)
		}
		entry.MarkProcessed(input.EventID)
		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save ledger entry: %w", err)
		}

		partner.ApplyAccrual(entry.CommissionAmount)
		if err := repos.PartnerRepo().SaveWithLock(ctx, partner); err != nil {
			return fmt.Errorf("failed to save partner: %w", err)
		}

		s.logger.Info("Commission accrued",
			zap.String("event_id", input.EventID),
			zap.String("invoice_id", input.InvoiceID),
			zap.String("partner_id", partner.ID.String()),
			zap.Int64("commission", entry.CommissionAmount.Amount()),
			zap.String("rate", rate.String()))

		pending = collectEvents(entry)
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, pending)
	return nil
}

// InvoiceVoidedInput carries the fields of a voided invoice event
type InvoiceVoidedInput struct {
	EventID   string
	InvoiceID string
}

// HandleInvoiceVoided reverses every accrued commission for the
// invoice. A reversal is a separate ledger document with the negated
// amount; entries already reversed are skipped, so redelivery cannot
// double-reverse. Paid-out entries are flagged for manual review
// instead of being silently negated.
func (s *CommissionService) HandleInvoiceVoided(ctx context.Context, input InvoiceVoidedInput) error {
	if input.InvoiceID == "" {
		s.logger.Warn("Invoice voided event without invoice ID, skipping",
			zap.String("event_id", input.EventID))
		return nil
	}

	var pending []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		entries, err := repos.EntryRepo().FindBySourceInvoice(ctx, input.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to load ledger entries: %w", err)
		}
		if len(entries) == 0 {
			s.logger.Warn("No ledger entries for voided invoice, skipping",
				zap.String("event_id", input.EventID),
				zap.String("invoice_id", input.InvoiceID))
			return nil
		}

		for _, entry := range entries {
			switch entry.Status {
			case ledger.EntryStatusReversed:
				continue
			case ledger.EntryStatusPaid:
				s.logger.Error("Voided invoice has a paid-out commission, manual review required",
					zap.String("event_id", input.EventID),
					zap.String("invoice_id", input.InvoiceID),
					zap.String("entry_id", entry.ID.String()),
					zap.String("partner_id", entry.PartnerID.String()))
				continue
			case ledger.EntryStatusAccrued:
				// fall through to reversal
			default:
				s.logger.Warn("Voided invoice has an entry in unexpected status, skipping",
					zap.String("event_id", input.EventID),
					zap.String("invoice_id", input.InvoiceID),
					zap.String("entry_id", entry.ID.String()),
					zap.String("status", entry.Status.String()))
				continue
			}

			reversalID := ledger.ReversalEntryID(entry.SourceInvoiceID, entry.PartnerID)
			exists, err := repos.EntryRepo().ExistsByID(ctx, reversalID)
			if err != nil {
				return fmt.Errorf("failed to check reversal entry: %w", err)
			}
			if exists {
				continue
			}

			reversal, err := entry.Reversal()
			if err != nil {
				return fmt.Errorf("failed to create reversal: %w", err)
			}
			reversal.MarkProcessed(input.EventID)
			if err := repos.EntryRepo().Save(ctx, reversal); err != nil {
				return fmt.Errorf("failed to save reversal entry: %w", err)
			}

			partner, err := repos.PartnerRepo().FindByID(ctx, entry.PartnerID)
			if err != nil {
				return fmt.Errorf("failed to load partner: %w", err)
			}
			partner.ApplyReversal(reversal.CommissionAmount)
			if err := repos.PartnerRepo().SaveWithLock(ctx, partner); err != nil {
				return fmt.Errorf("failed to save partner: %w", err)
			}

			s.logger.Info("Commission reversed",
				zap.String("event_id", input.EventID),
				zap.String("invoice_id", input.InvoiceID),
				zap.String("partner_id", entry.PartnerID.String()),
				zap.Int64("amount", reversal.CommissionAmount.Amount()))

			pending = append(pending, collectEvents(reversal)...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, pending)
	return nil
}

// HandleInvoicePaymentActionRequired records that an invoice is stuck
// waiting on customer action. No ledger effect: commission only moves
// on paid or voided.
func (s *CommissionService) HandleInvoicePaymentActionRequired(ctx context.Context, eventID, invoiceID, customerID string) error {
	s.logger.Info("Invoice requires payment action, no ledger effect",
		zap.String("event_id", eventID),
		zap.String("invoice_id", invoiceID),
		zap.String("customer_id", customerID))
	return nil
}

// findAttribution resolves the attribution for an invoice: by
// subscription ID when the invoice carries one, otherwise the
// customer's most recent attribution.
func (s *CommissionService) findAttribution(
	ctx context.Context,
	repos appreferral.TransactionalRepositories,
	subscriptionID, customerID string,
) (*referral.ReferralAttribution, error) {
	if subscriptionID != "" {
		attribution, err := repos.AttributionRepo().FindBySubscription(ctx, subscriptionID)
		if err == nil {
			return attribution, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	attributions, err := repos.AttributionRepo().FindByCustomer(ctx, customerID, 1)
	if err != nil {
		return nil, err
	}
	if len(attributions) == 0 {
		return nil, shared.ErrNotFound
	}
	return attributions[0], nil
}

// resolveRate resolves the effective commission rate: per-code custom
// override, then the partner's rate, then the system default.
func (s *CommissionService) resolveRate(
	ctx context.Context,
	repos appreferral.TransactionalRepositories,
	attribution *referral.ReferralAttribution,
	partner *referral.Partner,
) (decimal.Decimal, error) {
	var customRate *decimal.Decimal
	code, err := repos.CodeRepo().FindByCode(ctx, attribution.ReferralCode)
	switch {
	case err == nil:
		customRate = code.CustomCommissionRate
	case errors.Is(err, shared.ErrNotFound):
		// A deleted code does not block the accrual
	default:
		return decimal.Decimal{}, fmt.Errorf("failed to load referral code: %w", err)
	}
	return partner.EffectiveRate(customRate, s.defaultRate), nil
}

// currencyOrAttributed picks the invoice currency, falling back to the
// currency captured at attribution time.
func currencyOrAttributed(currency string, attribution *referral.ReferralAttribution) valueobject.Currency {
	if currency != "" {
		return valueobject.Currency(currency)
	}
	if attribution.Currency != "" {
		return attribution.Currency
	}
	return valueobject.DefaultCurrency
}

// collectEvents drains the pending domain events of an aggregate
func collectEvents(root shared.AggregateRoot) []shared.DomainEvent {
	events := root.GetDomainEvents()
	root.ClearDomainEvents()
	return events
}

func (s *CommissionService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err))
	}
}
