package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// MockReferenceData implements referencedata.Client for testing.
type MockReferenceData struct {
	mock.Mock
}

var _ referencedata.Client = (*MockReferenceData)(nil)

func (m *MockReferenceData) FindOrderable(ctx context.Context, id uuid.UUID) (*referencedata.Orderable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Orderable), args.Error(1)
}

func (m *MockReferenceData) FindOrderablesByCodeAndName(ctx context.Context, code, name string) ([]referencedata.Orderable, error) {
	args := m.Called(ctx, code, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]referencedata.Orderable), args.Error(1)
}

func (m *MockReferenceData) CreateOrUpdateOrderable(ctx context.Context, orderable *referencedata.Orderable) (*referencedata.Orderable, error) {
	args := m.Called(ctx, orderable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Orderable), args.Error(1)
}

func (m *MockReferenceData) FindLot(ctx context.Context, id uuid.UUID) (*referencedata.Lot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Lot), args.Error(1)
}

func (m *MockReferenceData) FindLotMatching(ctx context.Context, tradeItemID uuid.UUID, lotCode string) (*referencedata.Lot, error) {
	args := m.Called(ctx, tradeItemID, lotCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Lot), args.Error(1)
}

func (m *MockReferenceData) CreateLot(ctx context.Context, lot *referencedata.Lot) (*referencedata.Lot, error) {
	args := m.Called(ctx, lot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Lot), args.Error(1)
}

func (m *MockReferenceData) CreateTradeItem(ctx context.Context, tradeItem *referencedata.TradeItem) (*referencedata.TradeItem, error) {
	args := m.Called(ctx, tradeItem)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.TradeItem), args.Error(1)
}

func (m *MockReferenceData) FindFacility(ctx context.Context, id uuid.UUID) (*referencedata.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Facility), args.Error(1)
}

func (m *MockReferenceData) FindFacilityType(ctx context.Context, facilityID uuid.UUID) (*referencedata.FacilityType, error) {
	args := m.Called(ctx, facilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.FacilityType), args.Error(1)
}

func (m *MockReferenceData) FindProgram(ctx context.Context, id uuid.UUID) (*referencedata.Program, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.Program), args.Error(1)
}

func (m *MockReferenceData) FindApprovedProducts(ctx context.Context, facilityTypeCode, programCode string, orderableIDs ...uuid.UUID) ([]referencedata.ApprovedProduct, error) {
	args := m.Called(ctx, facilityTypeCode, programCode, orderableIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]referencedata.ApprovedProduct), args.Error(1)
}

func (m *MockReferenceData) CreateApprovedProduct(ctx context.Context, product *referencedata.ApprovedProduct) (*referencedata.ApprovedProduct, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.ApprovedProduct), args.Error(1)
}

func (m *MockReferenceData) FindUser(ctx context.Context, id uuid.UUID) (*referencedata.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referencedata.User), args.Error(1)
}

// MockStockLedger implements stockledger.Client for testing.
type MockStockLedger struct {
	mock.Mock
}

var _ stockledger.Client = (*MockStockLedger)(nil)

func (m *MockStockLedger) SearchStockCardSummaries(ctx context.Context, query stockledger.SummaryQuery) ([]stockledger.StockCardSummary, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockledger.StockCardSummary), args.Error(1)
}

func (m *MockStockLedger) SubmitStockEvent(ctx context.Context, event *stockledger.Event) (uuid.UUID, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockStockLedger) FindReason(ctx context.Context, id uuid.UUID) (*stockledger.Reason, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stockledger.Reason), args.Error(1)
}

func (m *MockStockLedger) FindValidReasons(ctx context.Context, programID, facilityTypeID uuid.UUID) ([]stockledger.ValidReasonAssignment, error) {
	args := m.Called(ctx, programID, facilityTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockledger.ValidReasonAssignment), args.Error(1)
}

func (m *MockStockLedger) FindValidSources(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]stockledger.ValidSourceDestination, error) {
	args := m.Called(ctx, programID, facilityTypeID, facilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockledger.ValidSourceDestination), args.Error(1)
}

func (m *MockStockLedger) FindValidDestinations(ctx context.Context, programID, facilityTypeID uuid.UUID, facilityID *uuid.UUID) ([]stockledger.ValidSourceDestination, error) {
	args := m.Called(ctx, programID, facilityTypeID, facilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockledger.ValidSourceDestination), args.Error(1)
}
