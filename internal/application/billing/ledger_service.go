package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/referral"
	"go.uber.org/zap"
)

const (
	defaultLedgerPageSize = 50
	maxLedgerPageSize     = 200
)

// LedgerQueryService serves read access to the commission ledger and
// the stats reconciliation path.
type LedgerQueryService struct {
	scope  appreferral.TransactionScope
	logger *zap.Logger
}

// LedgerQueryServiceConfig contains configuration for LedgerQueryService
type LedgerQueryServiceConfig struct {
	Scope  appreferral.TransactionScope
	Logger *zap.Logger
}

// NewLedgerQueryService creates a new LedgerQueryService
func NewLedgerQueryService(cfg LedgerQueryServiceConfig) *LedgerQueryService {
	return &LedgerQueryService{
		scope:  cfg.Scope,
		logger: cfg.Logger,
	}
}

// LedgerEntryView is the public projection of a ledger entry
type LedgerEntryView struct {
	EntryID          string     `json:"entry_id"`
	SourceInvoiceID  string     `json:"source_invoice_id"`
	SubscriptionID   *string    `json:"subscription_id,omitempty"`
	AmountGross      int64      `json:"amount_gross"`
	CommissionRate   string     `json:"commission_rate"`
	CommissionAmount int64      `json:"commission_amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PeriodStart      *time.Time `json:"period_start,omitempty"`
	PeriodEnd        *time.Time `json:"period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// PartnerLedgerPage is one page of a partner's ledger plus the signed
// running total across all of the partner's entries.
type PartnerLedgerPage struct {
	PartnerID string            `json:"partner_id"`
	Entries   []LedgerEntryView `json:"entries"`
	Total     int64             `json:"total"` // minor units, accruals minus reversals
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// GetPartnerLedger returns a page of a partner's ledger, newest first
func (s *LedgerQueryService) GetPartnerLedger(ctx context.Context, partnerID uuid.UUID, limit, offset int) (*PartnerLedgerPage, error) {
	if limit <= 0 {
		limit = defaultLedgerPageSize
	}
	if limit > maxLedgerPageSize {
		limit = maxLedgerPageSize
	}
	if offset < 0 {
		offset = 0
	}

	page := &PartnerLedgerPage{
		PartnerID: partnerID.String(),
		Limit:     limit,
		Offset:    offset,
	}

	err := s.scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		entries, err := repos.EntryRepo().FindByPartner(ctx, partnerID, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to load ledger entries: %w", err)
		}
		total, err := repos.EntryRepo().SumByPartner(ctx, partnerID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger entries: %w", err)
		}

		page.Total = total
		page.Entries = make([]LedgerEntryView, 0, len(entries))
		for _, entry := range entries {
			page.Entries = append(page.Entries, toEntryView(entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// RecomputePartnerStats rebuilds a partner's earned-commission total
// from the ledger. The incremental stats path is correct under the
// transactional guards; this is the recovery tool when they are ever
// suspected, and it logs loudly when it finds a drift. Returns the
// corrected stats.
func (s *LedgerQueryService) RecomputePartnerStats(ctx context.Context, partnerID uuid.UUID) (*referral.PartnerStats, error) {
	var stats referral.PartnerStats

	err := s.scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		partner, err := repos.PartnerRepo().FindByID(ctx, partnerID)
		if err != nil {
			return fmt.Errorf("failed to load partner: %w", err)
		}

		total, err := repos.EntryRepo().SumByPartner(ctx, partnerID)
		if err != nil {
			return fmt.Errorf("failed to sum ledger entries: %w", err)
		}

		if partner.Stats.TotalCommissionEarned != total {
			s.logger.Warn("Partner stats drifted from ledger, correcting",
				zap.String("partner_id", partnerID.String()),
				zap.Int64("stats_total", partner.Stats.TotalCommissionEarned),
				zap.Int64("ledger_total", total))
		}

		partner.ReconcileEarned(total)
		if err := repos.PartnerRepo().SaveWithLock(ctx, partner); err != nil {
			return fmt.Errorf("failed to save partner: %w", err)
		}
		stats = partner.Stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func toEntryView(entry *ledger.CommissionEntry) LedgerEntryView {
	return LedgerEntryView{
		EntryID:          entry.ID.String(),
		SourceInvoiceID:  entry.SourceInvoiceID,
		SubscriptionID:   entry.SubscriptionID,
		AmountGross:      entry.AmountGross.Amount(),
		CommissionRate:   entry.CommissionRate.String(),
		CommissionAmount: entry.CommissionAmount.Amount(),
		Currency:         string(entry.CommissionAmount.Currency()),
		Status:           entry.Status.String(),
		PeriodStart:      entry.PeriodStart,
		PeriodEnd:        entry.PeriodEnd,
		CreatedAt:        entry.CreatedAt,
	}
}
