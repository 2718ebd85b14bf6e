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

// GormAttributionRepository implements AttributionRepository using GORM
type GormAttributionRepository struct {
	db *gorm.DB
}

// NewGormAttributionRepository creates a new GormAttributionRepository
func NewGormAttributionRepository(db *gorm.DB) *GormAttributionRepository {
	return &GormAttributionRepository{db: db}
}

// FindByID finds an attribution by its deterministic ID
func (r *GormAttributionRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.ReferralAttribution, error) {
	var model models.ReferralAttributionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds attributions for a customer, newest first
func (r *GormAttributionRepository) FindByCustomer(ctx context.Context, customerID string, limit int) ([]*referral.ReferralAttribution, error) {
	var attributionModels []models.ReferralAttributionModel
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attributionModels).Error; err != nil {
		return nil, err
	}

	attributions := make([]*referral.ReferralAttribution, len(attributionModels))
	for i := range attributionModels {
		attributions[i] = attributionModels[i].ToDomain()
	}
	return attributions, nil
}

// FindBySubscription finds the attribution linked to a subscription
func (r *GormAttributionRepository) FindBySubscription(ctx context.Context, subscriptionID string) (*referral.ReferralAttribution, error) {
	var model models.ReferralAttributionModel
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists an attribution (insert or update). Concurrent creation
// attempts for the same (code, customer) pair target the same primary
// key and converge through the upsert.
func (r *GormAttributionRepository) Save(ctx context.Context, attribution *referral.ReferralAttribution) error {
	model := models.ReferralAttributionModelFromDomain(attribution)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

var _ referral.AttributionRepository = (*GormAttributionRepository)(nil)
