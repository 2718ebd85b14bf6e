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

// GormReferralCodeRepository implements ReferralCodeRepository using GORM
type GormReferralCodeRepository struct {
	db *gorm.DB
}

// NewGormReferralCodeRepository creates a new GormReferralCodeRepository
func NewGormReferralCodeRepository(db *gorm.DB) *GormReferralCodeRepository {
	return &GormReferralCodeRepository{db: db}
}

// FindByID finds a referral code by its ID
func (r *GormReferralCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.ReferralCode, error) {
	var model models.ReferralCodeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a referral code by its normalized form
func (r *GormReferralCodeRepository) FindByCode(ctx context.Context, code string) (*referral.ReferralCode, error) {
	var model models.ReferralCodeModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", referral.NormalizeCode(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a referral code (insert or update)
func (r *GormReferralCodeRepository) Save(ctx context.Context, code *referral.ReferralCode) error {
	model := models.ReferralCodeModelFromDomain(code)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

var _ referral.ReferralCodeRepository = (*GormReferralCodeRepository)(nil)
