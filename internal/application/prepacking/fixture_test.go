package prepacking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
	"github.com/prepacking/backend/tests/testutil"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// countingLocker is an in-process shared.Locker that records its use
type countingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *countingLocker) Acquire(_ context.Context, key string) (shared.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return &countingLock{owner: l}, nil
}

type countingLock struct {
	owner *countingLocker
}

func (l *countingLock) Release(context.Context) error {
	l.owner.mu.Lock()
	l.owner.released++
	l.owner.mu.Unlock()
	return nil
}

// MockRepository is a mock implementation of prepacking.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*prepacking.PrepackingEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prepacking.PrepackingEvent), args.Error(1)
}

func (m *MockRepository) Find(ctx context.Context, filter prepacking.Filter) ([]prepacking.PrepackingEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]prepacking.PrepackingEvent), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, event *prepacking.PrepackingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// fixture wires the workflow and service against mocked collaborators.
// The bulk product C100 "Paracetamol" with lot L1 is stocked at the test facility.
type fixture struct {
	refData *testutil.MockReferenceData
	ledger  *testutil.MockStockLedger
	locker  *countingLocker
	repo    *MockRepository

	reasons     Reasons
	facility    *referencedata.Facility
	program     *referencedata.Program
	user        *referencedata.User
	bulk        *referencedata.Orderable
	bulkLot     *referencedata.Lot
	tradeItem   *referencedata.TradeItem
	derived     *referencedata.Orderable
	derivedLot  *referencedata.Lot
	submitted   []*stockledger.Event
	submittedMu sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	expiry := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	manufactured := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tradeItemID := testutil.NewTestUUID("prepack-trade-item")

	f := &fixture{
		refData: &testutil.MockReferenceData{},
		ledger:  &testutil.MockStockLedger{},
		locker:  &countingLocker{},
		repo:    &MockRepository{},
		reasons: Reasons{
			Debit:  testutil.NewTestUUID("reason-debit"),
			Credit: testutil.NewTestUUID("reason-credit"),
		},
		facility: &referencedata.Facility{
			ID:   testutil.TestFacilityID(),
			Code: "HC01",
			Name: "Comfort Health Clinic",
			Type: referencedata.FacilityType{ID: testutil.NewTestUUID("facility-type"), Code: "health_center"},
		},
		program: &referencedata.Program{ID: testutil.TestProgramID(), Code: "PRG001", Name: "Family Planning"},
		user:    &referencedata.User{ID: testutil.TestUserID(), FirstName: "Jane", LastName: "Doe"},
		bulk: &referencedata.Orderable{
			ID:              testutil.NewTestUUID("bulk-orderable"),
			ProductCode:     "C100",
			FullProductName: "Paracetamol",
			Description:     "Paracetamol 500mg",
			NetContent:      1000,
			RoundToZero:     true,
			Dispensable:     referencedata.Dispensable{DispensingUnit: "tablet"},
			Programs: []referencedata.ProgramOrderable{
				{ProgramID: testutil.TestProgramID(), Active: true, FullSupply: true},
			},
		},
		bulkLot: &referencedata.Lot{
			ID:              testutil.NewTestUUID("bulk-lot"),
			LotCode:         "L1",
			TradeItemID:     testutil.NewTestUUID("bulk-trade-item"),
			ExpirationDate:  &expiry,
			ManufactureDate: &manufactured,
			Active:          true,
		},
		tradeItem: &referencedata.TradeItem{ID: tradeItemID, ManufacturerOfTradeItem: LocalManufacturer},
		derived: &referencedata.Orderable{
			ID:              testutil.NewTestUUID("derived-orderable"),
			ProductCode:     "C100-10",
			FullProductName: "Paracetamol-10",
			Identifiers:     map[string]string{referencedata.TradeItemIdentifier: tradeItemID.String()},
		},
		derivedLot: &referencedata.Lot{
			ID:          testutil.NewTestUUID("derived-lot"),
			LotCode:     "L1-10",
			TradeItemID: tradeItemID,
		},
	}
	return f
}

func (f *fixture) ctx() context.Context {
	return WithActor(context.Background(), Actor{UserID: f.user.ID})
}

func (f *fixture) workflow() *AuthorizationWorkflow {
	w := NewAuthorizationWorkflow(f.refData, f.ledger, NewIdentityResolver(f.refData, f.locker, nil), f.reasons, nil)
	w.now = func() time.Time { return fixedNow }
	return w
}

func (f *fixture) service(pipeline stockledger.Validator, bus shared.EventPublisher) *Service {
	s := NewService(f.repo, pipeline, NewContextBuilder(f.refData), f.workflow(), bus, f.reasons, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func (f *fixture) processContext(t *testing.T, event *prepacking.PrepackingEvent) *ProcessContext {
	t.Helper()
	pc, err := NewContextBuilder(f.refData).BuildContext(f.ctx(), DraftOf(event))
	require.NoError(t, err)
	return pc
}

// draftEvent builds a DRAFT event with one line item per size/count pair
func (f *fixture) draftEvent(t *testing.T, lotID *uuid.UUID, sizesAndCounts ...int64) *prepacking.PrepackingEvent {
	t.Helper()
	require.Zero(t, len(sizesAndCounts)%2)

	var items []prepacking.LineItem
	for i := 0; i < len(sizesAndCounts); i += 2 {
		item, err := prepacking.NewLineItem(f.bulk.ID, lotID, sizesAndCounts[i], sizesAndCounts[i+1])
		require.NoError(t, err)
		items = append(items, item)
	}
	event, err := prepacking.NewPrepackingEvent(f.facility.ID, f.program.ID,
		prepacking.Author{UserID: f.user.ID, UserNames: "Jane, Doe"}, "", items)
	require.NoError(t, err)
	event.ClearDomainEvents()
	return event
}

func (f *fixture) lotID() *uuid.UUID {
	id := f.bulkLot.ID
	return &id
}

// expectStock makes the bulk lot and its stock card resolvable
func (f *fixture) expectStock(stockOnHand int64) {
	lotID := f.bulkLot.ID
	f.refData.On("FindLot", mock.Anything, f.bulkLot.ID).Return(f.bulkLot, nil)
	f.ledger.On("SearchStockCardSummaries", mock.Anything, mock.MatchedBy(func(q stockledger.SummaryQuery) bool {
		return q.LotCode == "L1" && q.AsOfDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	})).Return([]stockledger.StockCardSummary{
		{OrderableID: f.bulk.ID, LotID: &lotID, LotCode: "L1", StockOnHand: stockOnHand},
	}, nil)
}

// expectNewIdentity makes the resolver create the derived orderable and lot
func (f *fixture) expectNewIdentity() {
	f.refData.On("FindOrderable", mock.Anything, f.bulk.ID).Return(f.bulk, nil)
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, "C100-10", "Paracetamol-10").
		Return([]referencedata.Orderable{}, nil)
	f.refData.On("CreateTradeItem", mock.Anything, mock.Anything).Return(f.tradeItem, nil)
	f.refData.On("CreateOrUpdateOrderable", mock.Anything, mock.Anything).Return(f.derived, nil)
	f.refData.On("FindLotMatching", mock.Anything, f.tradeItem.ID, "L1-10").Return(nil, nil)
	f.refData.On("CreateLot", mock.Anything, mock.Anything).Return(f.derivedLot, nil)
}

// expectExistingPrepack makes the prepack product, lot and approval of the given size already exist
func (f *fixture) expectExistingPrepack(size int64) *referencedata.Orderable {
	tradeItemID := testutil.NewTestUUID(fmt.Sprintf("prepack-trade-item-%d", size))
	derived := &referencedata.Orderable{
		ID:              testutil.NewTestUUID(fmt.Sprintf("derived-orderable-%d", size)),
		ProductCode:     PrepackCode(f.bulk.ProductCode, size),
		FullProductName: PrepackName(f.bulk.FullProductName, size),
		Identifiers:     map[string]string{referencedata.TradeItemIdentifier: tradeItemID.String()},
	}
	lot := &referencedata.Lot{
		ID:          testutil.NewTestUUID(fmt.Sprintf("derived-lot-%d", size)),
		LotCode:     PrepackLotCode(f.bulkLot.LotCode, size),
		TradeItemID: tradeItemID,
	}
	f.refData.On("FindOrderablesByCodeAndName", mock.Anything, derived.ProductCode, derived.FullProductName).
		Return([]referencedata.Orderable{*derived}, nil)
	f.refData.On("FindLotMatching", mock.Anything, tradeItemID, lot.LotCode).Return(lot, nil)
	f.refData.On("FindApprovedProducts", mock.Anything, "health_center", "PRG001", []uuid.UUID{derived.ID}).
		Return([]referencedata.ApprovedProduct{{ID: uuid.New()}}, nil)
	return derived
}

// expectApproval makes the approved product lookup come back empty and accept a create
func (f *fixture) expectApproval() {
	f.refData.On("FindFacility", mock.Anything, f.facility.ID).Return(f.facility, nil)
	f.refData.On("FindProgram", mock.Anything, f.program.ID).Return(f.program, nil)
	f.refData.On("FindApprovedProducts", mock.Anything, "health_center", "PRG001", []uuid.UUID{f.derived.ID}).
		Return([]referencedata.ApprovedProduct{}, nil)
	f.refData.On("CreateApprovedProduct", mock.Anything, mock.Anything).
		Return(&referencedata.ApprovedProduct{ID: uuid.New()}, nil)
}

// expectSubmissions records every stock event sent to the ledger
func (f *fixture) expectSubmissions() {
	f.ledger.On("SubmitStockEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.submittedMu.Lock()
			f.submitted = append(f.submitted, args.Get(1).(*stockledger.Event))
			f.submittedMu.Unlock()
		}).
		Return(uuid.New(), nil)
}
