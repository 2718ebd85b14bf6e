package referral

import (
	"context"

	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/referral"
)

// TransactionScope provides transactional access to the referral and
// ledger repositories. When a function is executed within a transaction
// scope, all repository operations are part of the same database
// transaction and commit or roll back atomically. Every financial
// effect of a webhook event (attribution write, ledger entry, partner
// stats, processed-event marker) must go through one Execute call.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within
// a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// CodeRepo returns the referral code repository scoped to the current transaction
	CodeRepo() referral.ReferralCodeRepository
	// PartnerRepo returns the partner repository scoped to the current transaction
	PartnerRepo() referral.PartnerRepository
	// AttributionRepo returns the attribution repository scoped to the current transaction
	AttributionRepo() referral.AttributionRepository
	// EntryRepo returns the commission ledger repository scoped to the current transaction
	EntryRepo() ledger.CommissionEntryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	codeRepo        referral.ReferralCodeRepository
	partnerRepo     referral.PartnerRepository
	attributionRepo referral.AttributionRepository
	entryRepo       ledger.CommissionEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	codeRepo referral.ReferralCodeRepository,
	partnerRepo referral.PartnerRepository,
	attributionRepo referral.AttributionRepository,
	entryRepo ledger.CommissionEntryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		codeRepo:        codeRepo,
		partnerRepo:     partnerRepo,
		attributionRepo: attributionRepo,
		entryRepo:       entryRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// CodeRepo returns the referral code repository.
func (s *NoOpTransactionScope) CodeRepo() referral.ReferralCodeRepository {
	return s.codeRepo
}

// PartnerRepo returns the partner repository.
func (s *NoOpTransactionScope) PartnerRepo() referral.PartnerRepository {
	return s.partnerRepo
}

// AttributionRepo returns the attribution repository.
func (s *NoOpTransactionScope) AttributionRepo() referral.AttributionRepository {
	return s.attributionRepo
}

// EntryRepo returns the commission ledger repository.
func (s *NoOpTransactionScope) EntryRepo() ledger.CommissionEntryRepository {
	return s.entryRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
