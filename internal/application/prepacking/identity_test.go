package prepacking

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/tests/testutil"
)

func TestDerivedCodes(t *testing.T) {
	assert.Equal(t, "C100-10", PrepackCode("C100", 10))
	assert.Equal(t, "Paracetamol-10", PrepackName("Paracetamol", 10))
	assert.Equal(t, "Tabs-10", PrepackDescription("Tabs", 10))
	assert.Equal(t, "L1-10", PrepackLotCode("L1", 10))
}

func TestIdentityResolver_CreatesMissingIdentity(t *testing.T) {
	f := newFixture(t)

	var createdOrderable *referencedata.Orderable
	var createdLot *referencedata.Lot
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{}, nil)
	f.refData.On("CreateTradeItem", mock.Anything, mock.MatchedBy(func(ti *referencedata.TradeItem) bool {
		return ti.ManufacturerOfTradeItem == "Local Manufacturer"
	})).Return(f.tradeItem, nil)
	f.refData.On("CreateOrUpdateOrderable", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdOrderable = args.Get(1).(*referencedata.Orderable) }).
		Return(f.derived, nil)
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(nil, nil)
	f.refData.On("CreateLot", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdLot = args.Get(1).(*referencedata.Lot) }).
		Return(f.derivedLot, nil)

	resolver := NewIdentityResolver(f.refData, f.locker, nil)
	identity, err := resolver.Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	require.NoError(t, err)

	assert.Equal(t, f.derived.ID, identity.Orderable.ID)
	assert.Equal(t, f.derivedLot.ID, identity.Lot.ID)

	require.NotNil(t, createdOrderable)
	assert.Equal(t, "C100-10", createdOrderable.ProductCode)
	assert.Equal(t, "Paracetamol-10", createdOrderable.FullProductName)
	assert.Equal(t, "Paracetamol 500mg-10", createdOrderable.Description)
	assert.Equal(t, int64(10), createdOrderable.NetContent)
	assert.Equal(t, int64(5), createdOrderable.PackRoundingThreshold)
	assert.True(t, createdOrderable.RoundToZero)
	assert.Equal(t, f.bulk.Dispensable, createdOrderable.Dispensable)
	assert.Equal(t, f.bulk.Programs, createdOrderable.Programs)
	assert.Equal(t, f.tradeItem.ID.String(), createdOrderable.Identifiers[referencedata.TradeItemIdentifier])
	assert.Equal(t, int64(1), createdOrderable.Meta.VersionNumber)

	require.NotNil(t, createdLot)
	assert.Equal(t, "L1-10", createdLot.LotCode)
	assert.Equal(t, f.tradeItem.ID, createdLot.TradeItemID)
	assert.Equal(t, f.bulkLot.ExpirationDate, createdLot.ExpirationDate)
	assert.Equal(t, f.bulkLot.ManufactureDate, createdLot.ManufactureDate)
	assert.True(t, createdLot.Active)

	assert.Equal(t, []string{"prepack:C100-10"}, f.locker.keys)
	assert.Equal(t, 1, f.locker.released)
}

func TestIdentityResolver_ReusesExistingIdentity(t *testing.T) {
	f := newFixture(t)
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{*f.derived, {ProductCode: "C100-10"}}, nil)
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(f.derivedLot, nil)

	identity, err := NewIdentityResolver(f.refData, f.locker, nil).Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	require.NoError(t, err)

	assert.Equal(t, f.derived.ID, identity.Orderable.ID, "first match wins")
	assert.Equal(t, f.derivedLot.ID, identity.Lot.ID)
	f.refData.AssertNotCalled(t, "CreateTradeItem", mock.Anything, mock.Anything)
	f.refData.AssertNotCalled(t, "CreateOrUpdateOrderable", mock.Anything, mock.Anything)
	f.refData.AssertNotCalled(t, "CreateLot", mock.Anything, mock.Anything)
}

func TestIdentityResolver_IdempotentAcrossCalls(t *testing.T) {
	f := newFixture(t)
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{}, nil).Once()
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{*f.derived}, nil)
	f.refData.On("CreateTradeItem", mock.Anything, mock.Anything).Return(f.tradeItem, nil).Once()
	f.refData.On("CreateOrUpdateOrderable", mock.Anything, mock.Anything).Return(f.derived, nil).Once()
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(nil, nil).Once()
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(f.derivedLot, nil)
	f.refData.On("CreateLot", mock.Anything, mock.Anything).Return(f.derivedLot, nil).Once()

	resolver := NewIdentityResolver(f.refData, f.locker, nil)
	first, err := resolver.Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	require.NoError(t, err)
	second, err := resolver.Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	require.NoError(t, err)

	assert.Equal(t, first.Orderable.ID, second.Orderable.ID)
	assert.Equal(t, first.Lot.ID, second.Lot.ID)
	f.refData.AssertNumberOfCalls(t, "CreateOrUpdateOrderable", 1)
	f.refData.AssertNumberOfCalls(t, "CreateLot", 1)
	f.refData.AssertNumberOfCalls(t, "CreateTradeItem", 1)
}

func TestIdentityResolver_ConflictLooksUpAgain(t *testing.T) {
	f := newFixture(t)
	conflict := shared.NewExternalServiceError("referencedata", "create orderable", http.StatusConflict, false, errors.New("duplicate"))

	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{}, nil).Once()
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{*f.derived}, nil)
	unused := &referencedata.TradeItem{ID: testutil.NewTestUUID("unused-trade-item"), ManufacturerOfTradeItem: LocalManufacturer}
	f.refData.On("CreateTradeItem", mock.Anything, mock.Anything).Return(unused, nil)
	f.refData.On("CreateOrUpdateOrderable", mock.Anything, mock.Anything).Return(nil, conflict)
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(nil, nil).Once()
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(f.derivedLot, nil)
	f.refData.On("CreateLot", mock.Anything, mock.Anything).Return(nil, shared.ErrAlreadyExists)
	core, recorded := observer.New(zapcore.DebugLevel)

	identity, err := NewIdentityResolver(f.refData, f.locker, zap.New(core)).Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	require.NoError(t, err)

	assert.Equal(t, f.derived.ID, identity.Orderable.ID)
	assert.Equal(t, f.derivedLot.ID, identity.Lot.ID)

	entries := recorded.FilterMessage("prepack trade item left unused").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, unused.ID.String(), entries[0].ContextMap()["trade_item_id"])
	assert.Equal(t, f.derived.ID.String(), entries[0].ContextMap()["orderable_id"])
}

func TestIdentityResolver_ConflictWithoutMatchFails(t *testing.T) {
	f := newFixture(t)
	conflict := shared.NewExternalServiceError("referencedata", "create orderable", http.StatusConflict, false, nil)

	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{}, nil)
	f.refData.On("CreateTradeItem", mock.Anything, mock.Anything).Return(f.tradeItem, nil)
	f.refData.On("CreateOrUpdateOrderable", mock.Anything, mock.Anything).Return(nil, conflict)

	_, err := NewIdentityResolver(f.refData, f.locker, nil).Resolve(f.ctx(), f.bulk, f.bulkLot, 10)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.Equal(t, 1, f.locker.released)
}

func TestIdentityResolver_WithoutBulkLot(t *testing.T) {
	f := newFixture(t)
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{*f.derived}, nil)

	identity, err := NewIdentityResolver(f.refData, f.locker, nil).Resolve(f.ctx(), f.bulk, nil, 10)
	require.NoError(t, err)

	assert.Equal(t, f.derived.ID, identity.Orderable.ID)
	assert.Nil(t, identity.Lot)
	f.refData.AssertNotCalled(t, "FindLotMatching", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdentityResolver_LockNotObtained(t *testing.T) {
	f := newFixture(t)
	f.locker.err = shared.ErrLockNotObtained

	_, err := NewIdentityResolver(f.refData, f.locker, nil).Resolve(f.ctx(), f.bulk, f.bulkLot, 10)

	assert.ErrorIs(t, err, shared.ErrLockNotObtained)
	f.refData.AssertNotCalled(t, "FindOrderablesByCodeAndName", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdentityResolver_DerivedOrderableWithoutTradeItem(t *testing.T) {
	f := newFixture(t)
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{{ID: f.derived.ID, ProductCode: "C100-10"}}, nil)

	_, err := NewIdentityResolver(f.refData, f.locker, nil).Resolve(f.ctx(), f.bulk, f.bulkLot, 10)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PREPACK_TRADE_ITEM_MISSING", domainErr.Code)
}
