package ledger

import (
	"context"

	"github.com/google/uuid"
)

// CommissionEntryRepository defines the interface for commission ledger persistence
type CommissionEntryRepository interface {
	// FindByID retrieves an entry by its deterministic ID
	FindByID(ctx context.Context, id uuid.UUID) (*CommissionEntry, error)

	// ExistsByID reports whether an entry with the given ID exists.
	// Used to detect already-written reversals without loading them.
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	// FindBySourceInvoice retrieves all entries for an invoice,
	// accruals and reversals alike
	FindBySourceInvoice(ctx context.Context, invoiceID string) ([]*CommissionEntry, error)

	// FindByPartner retrieves entries for a partner, newest first
	FindByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*CommissionEntry, error)

	// SumBySourceInvoice returns the signed sum of commission amounts
	// for an invoice in minor units. A fully reversed invoice sums to
	// zero.
	SumBySourceInvoice(ctx context.Context, invoiceID string) (int64, error)

	// SumByPartner returns the signed sum of commission amounts for a
	// partner in minor units. Used by stats reconciliation.
	SumByPartner(ctx context.Context, partnerID uuid.UUID) (int64, error)

	// Save persists an entry (insert or update)
	Save(ctx context.Context, entry *CommissionEntry) error
}
