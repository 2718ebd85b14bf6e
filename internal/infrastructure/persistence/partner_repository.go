package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPartnerRepository implements PartnerRepository using GORM
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewGormPartnerRepository creates a new GormPartnerRepository
func NewGormPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// FindByID finds a partner by its ID
func (r *GormPartnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.Partner, error) {
	var model models.PartnerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a partner (insert or update)
func (r *GormPartnerRepository) Save(ctx context.Context, partner *referral.Partner) error {
	model := models.PartnerModelFromDomain(partner)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// SaveWithLock updates a partner with optimistic locking. The WHERE
// clause matches the version the partner was loaded with; zero rows
// affected means a concurrent writer bumped it first.
func (r *GormPartnerRepository) SaveWithLock(ctx context.Context, partner *referral.Partner) error {
	model := models.PartnerModelFromDomain(partner)
	result := r.db.WithContext(ctx).
		Model(&models.PartnerModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"name":                    model.Name,
			"email":                   model.Email,
			"commission_rate":         model.CommissionRate,
			"status":                  model.Status,
			"total_referrals":         model.TotalReferrals,
			"total_conversions":       model.TotalConversions,
			"total_commission_earned": model.TotalCommissionEarned,
			"total_commission_paid":   model.TotalCommissionPaid,
			"stats_calculated_at":     model.StatsCalculatedAt,
			"version":                 model.Version,
			"updated_at":              model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ referral.PartnerRepository = (*GormPartnerRepository)(nil)
