package persistence

import (
	"context"

	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/referral"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM
// transactions. Every webhook handler runs its document lookups and
// writes through one scope so the per-document event ID check commits
// atomically with the effect it guards.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreferral.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// CodeRepo returns the referral code repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CodeRepo() referral.ReferralCodeRepository {
	return NewGormReferralCodeRepository(r.tx)
}

// PartnerRepo returns the partner repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PartnerRepo() referral.PartnerRepository {
	return NewGormPartnerRepository(r.tx)
}

// AttributionRepo returns the attribution repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AttributionRepo() referral.AttributionRepository {
	return NewGormAttributionRepository(r.tx)
}

// EntryRepo returns the commission entry repository scoped to the current transaction.
func (r *gormTransactionalRepositories) EntryRepo() ledger.CommissionEntryRepository {
	return NewGormCommissionEntryRepository(r.tx)
}

var _ appreferral.TransactionScope = (*GormTransactionScope)(nil)
var _ appreferral.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
