package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupScopeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ReferralCodeModel{},
		&models.PartnerModel{},
		&models.ReferralAttributionModel{},
		&models.CommissionEntryModel{},
	)
	require.NoError(t, err)

	return db
}

func TestGormTransactionScope_CommitsOnSuccess(t *testing.T) {
	db := setupScopeTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	attribution, err := referral.NewReferralAttribution("SUMMER20", uuid.New(), "cus_123", valueobject.USD)
	require.NoError(t, err)

	err = scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		return repos.AttributionRepo().Save(ctx, attribution)
	})
	require.NoError(t, err)

	found, err := NewGormAttributionRepository(db).FindByID(ctx, attribution.ID)
	require.NoError(t, err)
	assert.Equal(t, attribution.ID, found.ID)
}

func TestGormTransactionScope_RollsBackOnError(t *testing.T) {
	db := setupScopeTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	attribution, err := referral.NewReferralAttribution("SUMMER20", uuid.New(), "cus_123", valueobject.USD)
	require.NoError(t, err)

	boom := errors.New("handler failed after write")
	err = scope.Execute(ctx, func(repos appreferral.TransactionalRepositories) error {
		if err := repos.AttributionRepo().Save(ctx, attribution); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.ReferralAttributionModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
