package customer

import (
	"context"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mocks
// =============================================================================

// MockStore is a mock implementation of customer.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Add(ctx context.Context, record customer.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStore) Edit(ctx context.Context, record customer.Record) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, taxID string) (int, error) {
	args := m.Called(ctx, taxID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]customer.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]customer.Record), args.Error(1)
}

func (m *MockStore) FindByTaxID(ctx context.Context, taxID string) (*customer.Record, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Record), args.Error(1)
}

// MockTaxIDVerifier is a mock implementation of customer.TaxIDVerifier
type MockTaxIDVerifier struct {
	mock.Mock
}

func (m *MockTaxIDVerifier) VerifyTaxID(ctx context.Context, taxID string) (*customer.TaxIDVerification, error) {
	args := m.Called(ctx, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.TaxIDVerification), args.Error(1)
}

// MockPostcodeLookup is a mock implementation of customer.PostcodeLookup
type MockPostcodeLookup struct {
	mock.Mock
}

func (m *MockPostcodeLookup) LookupPostcode(ctx context.Context, postcode string) (*customer.PostcodeDetails, error) {
	args := m.Called(ctx, postcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.PostcodeDetails), args.Error(1)
}
