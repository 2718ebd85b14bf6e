package referral

import (
	"context"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/stretchr/testify/mock"
)

// MockCodeRepository is a mock implementation of referral.ReferralCodeRepository
type MockCodeRepository struct {
	mock.Mock
}

func (m *MockCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.ReferralCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.ReferralCode), args.Error(1)
}

func (m *MockCodeRepository) FindByCode(ctx context.Context, code string) (*referral.ReferralCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.ReferralCode), args.Error(1)
}

func (m *MockCodeRepository) Save(ctx context.Context, code *referral.ReferralCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// MockPartnerRepository is a mock implementation of referral.PartnerRepository
type MockPartnerRepository struct {
	mock.Mock
}

func (m *MockPartnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.Partner), args.Error(1)
}

func (m *MockPartnerRepository) Save(ctx context.Context, partner *referral.Partner) error {
	args := m.Called(ctx, partner)
	return args.Error(0)
}

func (m *MockPartnerRepository) SaveWithLock(ctx context.Context, partner *referral.Partner) error {
	args := m.Called(ctx, partner)
	return args.Error(0)
}

// MockAttributionRepository is a mock implementation of referral.AttributionRepository
type MockAttributionRepository struct {
	mock.Mock
}

func (m *MockAttributionRepository) FindByID(ctx context.Context, id uuid.UUID) (*referral.ReferralAttribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.ReferralAttribution), args.Error(1)
}

func (m *MockAttributionRepository) FindByCustomer(ctx context.Context, customerID string, limit int) ([]*referral.ReferralAttribution, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*referral.ReferralAttribution), args.Error(1)
}

func (m *MockAttributionRepository) FindBySubscription(ctx context.Context, subscriptionID string) (*referral.ReferralAttribution, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.ReferralAttribution), args.Error(1)
}

func (m *MockAttributionRepository) Save(ctx context.Context, attribution *referral.ReferralAttribution) error {
	args := m.Called(ctx, attribution)
	return args.Error(0)
}
