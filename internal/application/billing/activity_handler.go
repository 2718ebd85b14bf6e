package billing

import (
	"context"

	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LedgerActivityHandler subscribes to commission ledger events and
// writes an audit trail of accruals and reversals. The ledger itself is
// the source of truth; this handler only surfaces activity in the logs
// for operators and reconciliation tooling.
type LedgerActivityHandler struct {
	logger *zap.Logger
}

// NewLedgerActivityHandler creates a new LedgerActivityHandler
func NewLedgerActivityHandler(logger *zap.Logger) *LedgerActivityHandler {
	return &LedgerActivityHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LedgerActivityHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeCommissionAccrued,
		ledger.EventTypeCommissionReversed,
	}
}

// Handle logs the ledger movement carried by the event.
func (h *LedgerActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.CommissionAccruedEvent:
		h.logger.Info("Commission accrued",
			zap.String("entry_id", e.AggregateID().String()),
			zap.String("partner_id", e.PartnerID),
			zap.String("source_invoice_id", e.SourceInvoiceID),
			zap.Int64("commission_amount", e.CommissionAmount),
			zap.String("currency", e.Currency),
		)
	case *ledger.CommissionReversedEvent:
		h.logger.Info("Commission reversed",
			zap.String("entry_id", e.AggregateID().String()),
			zap.String("partner_id", e.PartnerID),
			zap.String("source_invoice_id", e.SourceInvoiceID),
			zap.Int64("commission_amount", e.CommissionAmount),
			zap.String("currency", e.Currency),
		)
	default:
		h.logger.Debug("Ignoring unexpected event type",
			zap.String("event_type", event.EventType()))
	}
	return nil
}
