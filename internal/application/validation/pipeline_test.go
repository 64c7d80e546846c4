package validation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) validator(name string, err error) stockledger.Validator {
	return stockledger.ValidatorFunc(func(context.Context, *stockledger.Event) error {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return err
	})
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(point stockledger.ExtensionPointID) (stockledger.Validator, error) {
	args := m.Called(point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(stockledger.Validator), args.Error(1)
}

func sampleEvent() *stockledger.Event {
	return &stockledger.Event{
		FacilityID: uuid.New(),
		ProgramID:  uuid.New(),
		LineItems:  []stockledger.LineItem{{OrderableID: uuid.New(), Quantity: 1}},
	}
}

func TestPipeline_RunsStepsInOrder(t *testing.T) {
	rec := &recorder{}
	p := NewPipeline(nil, nil,
		Fixed("first", rec.validator("first", nil)),
		Fixed("second", rec.validator("second", nil)),
		Fixed("third", rec.validator("third", nil)),
	)

	err := p.Validate(context.Background(), sampleEvent())

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, rec.calls)
	assert.Equal(t, []string{"first", "second", "third"}, p.Names())
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	rec := &recorder{}
	failure := NewValidationError(CodeNegativeQuantity, "lineItems[0].quantity", "negative")
	p := NewPipeline(nil, nil,
		Fixed("first", rec.validator("first", nil)),
		Fixed("second", rec.validator("second", failure)),
		Fixed("third", rec.validator("third", nil)),
	)

	err := p.Validate(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Same(t, failure, err)
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))
	assert.Equal(t, []string{"first", "second"}, rec.calls)
}

func TestPipeline_ExternalFailurePassesThrough(t *testing.T) {
	rec := &recorder{}
	extErr := shared.NewExternalServiceError("stockledger", "FindReason", 503, true, errors.New("unavailable"))
	p := NewPipeline(nil, nil,
		Fixed("first", rec.validator("first", extErr)),
		Fixed("second", rec.validator("second", nil)),
	)

	err := p.Validate(context.Background(), sampleEvent())

	assert.Same(t, extErr, err)
	assert.True(t, errors.Is(err, shared.ErrExternalService))
	assert.False(t, errors.Is(err, shared.ErrValidationFailed))
	assert.Equal(t, []string{"first"}, rec.calls)
}

func TestPipeline_ResolvesExtensionOnEveryCall(t *testing.T) {
	rec := &recorder{}
	resolver := new(mockResolver)
	resolver.On("Resolve", stockledger.FreeTextPointID).Return(rec.validator("v1", nil), nil).Once()
	resolver.On("Resolve", stockledger.FreeTextPointID).Return(rec.validator("v2", nil), nil).Once()

	p := NewPipeline(resolver, nil,
		Fixed("fixed", rec.validator("fixed", nil)),
		Extension(stockledger.FreeTextPointID),
	)

	require.NoError(t, p.Validate(context.Background(), sampleEvent()))
	require.NoError(t, p.Validate(context.Background(), sampleEvent()))

	assert.Equal(t, []string{"fixed", "v1", "fixed", "v2"}, rec.calls)
	resolver.AssertExpectations(t)
}

func TestPipeline_ResolverFailure(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("Resolve", stockledger.UnpackKitPointID).Return(nil, shared.ErrNotFound)

	p := NewPipeline(resolver, nil, Extension(stockledger.UnpackKitPointID))

	err := p.Validate(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestPipeline_MissingResolver(t *testing.T) {
	p := NewPipeline(nil, nil, Extension(stockledger.UnpackKitPointID))

	err := p.Validate(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestPipeline_NilEvent(t *testing.T) {
	rec := &recorder{}
	p := NewPipeline(nil, nil, Fixed("first", rec.validator("first", nil)))

	err := p.Validate(context.Background(), nil)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, CodeMandatoryFieldMissing, vErr.Code)
	assert.Empty(t, rec.calls)
}

func TestDefaultPipeline_Order(t *testing.T) {
	p := NewDefaultPipeline(Dependencies{}, new(mockResolver), nil)

	assert.Equal(t, []string{
		"MandatoryFields",
		"ApprovedOrderable",
		"SourceDestinationAssignment",
		"GeoLevelAffinity",
		"ReasonExistence",
		"ReceiveIssueReason",
		string(stockledger.AdjustmentReasonPointID),
		string(stockledger.FreeTextPointID),
		"Quantity",
		"Lot",
		"OrderableLotDuplication",
		"PhysicalInventoryReason",
		"VVM",
		string(stockledger.UnpackKitPointID),
	}, p.Names())
}

type recordingRegistrar struct {
	points []stockledger.ExtensionPointID
}

func (r *recordingRegistrar) RegisterDefault(point stockledger.ExtensionPointID, _ stockledger.Validator) error {
	r.points = append(r.points, point)
	return nil
}

func TestRegisterDefaultExtensions(t *testing.T) {
	reg := &recordingRegistrar{}

	require.NoError(t, RegisterDefaultExtensions(reg, Dependencies{}))

	assert.ElementsMatch(t, []stockledger.ExtensionPointID{
		stockledger.AdjustmentReasonPointID,
		stockledger.FreeTextPointID,
		stockledger.UnpackKitPointID,
	}, reg.points)
}
