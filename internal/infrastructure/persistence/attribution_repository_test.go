package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReferralTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ReferralCodeModel{},
		&models.PartnerModel{},
		&models.ReferralAttributionModel{},
	)
	require.NoError(t, err)

	return db
}

func TestGormAttributionRepository_SaveAndFindByID(t *testing.T) {
	db := setupReferralTestDB(t)
	repo := NewGormAttributionRepository(db)
	ctx := context.Background()

	partnerID := uuid.New()
	attribution, err := referral.NewReferralAttribution("SUMMER20", partnerID, "cus_123", valueobject.USD)
	require.NoError(t, err)
	attribution.MarkProcessed("evt_1")

	require.NoError(t, repo.Save(ctx, attribution))

	found, err := repo.FindByID(ctx, attribution.ID)
	require.NoError(t, err)
	assert.Equal(t, attribution.ID, found.ID)
	assert.Equal(t, partnerID, found.PartnerID)
	assert.Equal(t, "SUMMER20", found.ReferralCode)
	assert.Equal(t, "cus_123", found.CustomerID)
	assert.Equal(t, valueobject.USD, found.Currency)
	assert.Nil(t, found.SubscriptionID)
	assert.True(t, found.HasProcessed("evt_1"))
}

func TestGormAttributionRepository_FindByID_NotFound(t *testing.T) {
	db := setupReferralTestDB(t)
	repo := NewGormAttributionRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormAttributionRepository_SaveConvergesOnDeterministicID(t *testing.T) {
	db := setupReferralTestDB(t)
	repo := NewGormAttributionRepository(db)
	ctx := context.Background()

	partnerID := uuid.New()
	first, err := referral.NewReferralAttribution("SUMMER20", partnerID, "cus_123", valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	// Same (code, customer) pair targets the same primary key
	second, err := referral.NewReferralAttribution("summer20 ", partnerID, "cus_123", valueobject.USD)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	subID := "sub_456"
	second.AttachSubscription(subID, nil, nil)
	require.NoError(t, repo.Save(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.ReferralAttributionModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, found.SubscriptionID)
	assert.Equal(t, subID, *found.SubscriptionID)
}

func TestGormAttributionRepository_FindByCustomer(t *testing.T) {
	db := setupReferralTestDB(t)
	repo := NewGormAttributionRepository(db)
	ctx := context.Background()

	partnerID := uuid.New()
	older, err := referral.NewReferralAttribution("FIRST1", partnerID, "cus_123", valueobject.USD)
	require.NoError(t, err)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, older))

	newer, err := referral.NewReferralAttribution("SECOND2", partnerID, "cus_123", valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, newer))

	other, err := referral.NewReferralAttribution("THIRD3", partnerID, "cus_other", valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	found, err := repo.FindByCustomer(ctx, "cus_123", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "SECOND2", found[0].ReferralCode)
	assert.Equal(t, "FIRST1", found[1].ReferralCode)

	limited, err := repo.FindByCustomer(ctx, "cus_123", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "SECOND2", limited[0].ReferralCode)
}

func TestGormAttributionRepository_FindBySubscription(t *testing.T) {
	db := setupReferralTestDB(t)
	repo := NewGormAttributionRepository(db)
	ctx := context.Background()

	attribution, err := referral.NewReferralAttribution("SUMMER20", uuid.New(), "cus_123", valueobject.USD)
	require.NoError(t, err)
	attribution.AttachSubscription("sub_789", nil, nil)
	require.NoError(t, repo.Save(ctx, attribution))

	found, err := repo.FindBySubscription(ctx, "sub_789")
	require.NoError(t, err)
	assert.Equal(t, attribution.ID, found.ID)

	_, err = repo.FindBySubscription(ctx, "sub_missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
