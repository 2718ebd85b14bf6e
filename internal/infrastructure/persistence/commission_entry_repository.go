package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCommissionEntryRepository implements CommissionEntryRepository using GORM
type GormCommissionEntryRepository struct {
	db *gorm.DB
}

// NewGormCommissionEntryRepository creates a new GormCommissionEntryRepository
func NewGormCommissionEntryRepository(db *gorm.DB) *GormCommissionEntryRepository {
	return &GormCommissionEntryRepository{db: db}
}

// FindByID finds a commission entry by its deterministic ID
func (r *GormCommissionEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CommissionEntry, error) {
	var model models.CommissionEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByID reports whether an entry with the given ID exists
func (r *GormCommissionEntryRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionEntryModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindBySourceInvoice finds all entries for an invoice, oldest first so
// accruals come before their reversals
func (r *GormCommissionEntryRepository) FindBySourceInvoice(ctx context.Context, invoiceID string) ([]*ledger.CommissionEntry, error) {
	var entryModels []models.CommissionEntryModel
	if err := r.db.WithContext(ctx).
		Where("source_invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

// FindByPartner finds entries for a partner, newest first
func (r *GormCommissionEntryRepository) FindByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*ledger.CommissionEntry, error) {
	var entryModels []models.CommissionEntryModel
	query := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

// SumBySourceInvoice returns the signed sum of commission amounts for
// an invoice in minor units
func (r *GormCommissionEntryRepository) SumBySourceInvoice(ctx context.Context, invoiceID string) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionEntryModel{}).
		Where("source_invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// SumByPartner returns the signed sum of commission amounts for a
// partner in minor units
func (r *GormCommissionEntryRepository) SumByPartner(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionEntryModel{}).
		Where("partner_id = ?", partnerID).
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// Save persists an entry (insert or update). Entry IDs are
// deterministic per (invoice, partner) pair, so concurrent writes of
// the same accrual converge through the upsert.
func (r *GormCommissionEntryRepository) Save(ctx context.Context, entry *ledger.CommissionEntry) error {
	model := models.CommissionEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

func toDomainEntries(entryModels []models.CommissionEntryModel) []*ledger.CommissionEntry {
	entries := make([]*ledger.CommissionEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries
}

var _ ledger.CommissionEntryRepository = (*GormCommissionEntryRepository)(nil)
