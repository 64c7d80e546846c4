package prepacking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/shared"
)

func TestBuildContext_NoLookupsUntilRead(t *testing.T) {
	f := newFixture(t)

	pc, err := NewContextBuilder(f.refData).BuildContext(f.ctx(), Draft{FacilityID: f.facility.ID, ProgramID: f.program.ID})
	require.NoError(t, err)

	assert.Equal(t, f.user.ID, pc.UserID())
	f.refData.AssertNotCalled(t, "FindUser", mock.Anything, mock.Anything)
	f.refData.AssertNotCalled(t, "FindFacility", mock.Anything, mock.Anything)
	f.refData.AssertNotCalled(t, "FindProgram", mock.Anything, mock.Anything)
}

func TestBuildContext_EachValueFetchedOnce(t *testing.T) {
	f := newFixture(t)
	f.refData.On("FindUser", mock.Anything, f.user.ID).Return(f.user, nil).Once()
	f.refData.On("FindFacility", mock.Anything, f.facility.ID).Return(f.facility, nil).Once()
	f.refData.On("FindProgram", mock.Anything, f.program.ID).Return(f.program, nil).Once()

	pc, err := NewContextBuilder(f.refData).BuildContext(f.ctx(), Draft{FacilityID: f.facility.ID, ProgramID: f.program.ID})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		names, err := pc.UserNames()
		require.NoError(t, err)
		assert.Equal(t, "Jane, Doe", names)

		facility, err := pc.Facility()
		require.NoError(t, err)
		assert.Equal(t, "HC01", facility.Code)

		program, err := pc.Program()
		require.NoError(t, err)
		assert.Equal(t, "PRG001", program.Code)
	}

	f.refData.AssertNumberOfCalls(t, "FindUser", 1)
	f.refData.AssertNumberOfCalls(t, "FindFacility", 1)
	f.refData.AssertNumberOfCalls(t, "FindProgram", 1)
}

func TestBuildContext_FetchErrorIsMemoized(t *testing.T) {
	f := newFixture(t)
	unavailable := shared.NewExternalServiceError("referencedata", "find facility", 503, true, errors.New("down"))
	f.refData.On("FindFacility", mock.Anything, f.facility.ID).Return(nil, unavailable).Once()

	pc, err := NewContextBuilder(f.refData).BuildContext(f.ctx(), Draft{FacilityID: f.facility.ID})
	require.NoError(t, err)

	_, first := pc.Facility()
	_, second := pc.Facility()

	assert.ErrorIs(t, first, shared.ErrExternalService)
	assert.Equal(t, first, second)
	f.refData.AssertNumberOfCalls(t, "FindFacility", 1)
}

func TestBuildContext_MachineClientUsesDeclaredAuthor(t *testing.T) {
	f := newFixture(t)
	author := prepacking.Author{UserID: uuid.New(), UserNames: "Smith, Sam"}
	ctx := WithActor(context.Background(), Actor{MachineClient: true})

	pc, err := NewContextBuilder(f.refData).BuildContext(ctx, Draft{FacilityID: f.facility.ID, Author: author})
	require.NoError(t, err)

	names, err := pc.UserNames()
	require.NoError(t, err)
	assert.Equal(t, author.UserID, pc.UserID())
	assert.Equal(t, "Smith, Sam", names)
	f.refData.AssertNotCalled(t, "FindUser", mock.Anything, mock.Anything)
}

func TestBuildContext_MachineClientWithoutAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := WithActor(context.Background(), Actor{MachineClient: true})

	_, err := NewContextBuilder(f.refData).BuildContext(ctx, Draft{FacilityID: f.facility.ID})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "AUTHOR_REQUIRED", domainErr.Code)
}

func TestBuildContext_RequiresCaller(t *testing.T) {
	f := newFixture(t)

	_, err := NewContextBuilder(f.refData).BuildContext(context.Background(), Draft{FacilityID: f.facility.ID})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = NewContextBuilder(f.refData).BuildContext(WithActor(context.Background(), Actor{}), Draft{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestBuildContext_DoesNotModifyDraft(t *testing.T) {
	f := newFixture(t)
	event := f.draftEvent(t, nil, 10, 5)
	before := *event

	_ = f.processContext(t, event)

	assert.Equal(t, before.UserID, event.UserID)
	assert.Equal(t, before.UserNames, event.UserNames)
	assert.Equal(t, before.Version, event.Version)
	assert.Len(t, event.StatusChanges, 1)
}
