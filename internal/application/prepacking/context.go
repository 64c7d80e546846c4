// Package prepacking coordinates submission, authorization and rejection of
// prepacking events against the reference data and stock ledger services.
package prepacking

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
)

// Actor is the authenticated caller of an operation.
// A machine client is a trusted service token that carries no user.
type Actor struct {
	UserID        uuid.UUID
	MachineClient bool
}

type actorKey struct{}

// WithActor stores the authenticated caller in the context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller stored by WithActor
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Draft is the part of a prepacking event a ProcessContext is built from
type Draft struct {
	FacilityID uuid.UUID
	ProgramID  uuid.UUID
	Author     prepacking.Author
}

// DraftOf returns the Draft view of a stored event
func DraftOf(e *prepacking.PrepackingEvent) Draft {
	return Draft{
		FacilityID: e.FacilityID,
		ProgramID:  e.ProgramID,
		Author:     prepacking.Author{UserID: e.UserID, UserNames: e.UserNames},
	}
}

// once is a compute-once cell; the fetch result, error included, is kept for every later read
type once[T any] struct {
	o     sync.Once
	fetch func() (T, error)
	val   T
	err   error
}

func newOnce[T any](fetch func() (T, error)) *once[T] {
	return &once[T]{fetch: fetch}
}

func (c *once[T]) get() (T, error) {
	c.o.Do(func() {
		c.val, c.err = c.fetch()
	})
	return c.val, c.err
}

// ProcessContext holds the values one workflow invocation needs about who acts
// and where. Each value is fetched on first read and at most once.
type ProcessContext struct {
	userID    uuid.UUID
	userNames *once[string]
	facility  *once[*referencedata.Facility]
	program   *once[*referencedata.Program]
}

// UserID returns the acting user
func (pc *ProcessContext) UserID() uuid.UUID {
	return pc.userID
}

// UserNames returns the acting user's display name
func (pc *ProcessContext) UserNames() (string, error) {
	return pc.userNames.get()
}

// Facility returns the facility the event belongs to
func (pc *ProcessContext) Facility() (*referencedata.Facility, error) {
	return pc.facility.get()
}

// Program returns the program the event belongs to
func (pc *ProcessContext) Program() (*referencedata.Program, error) {
	return pc.program.get()
}

// ContextBuilder creates ProcessContexts from the caller and a draft
type ContextBuilder struct {
	refData referencedata.Client
}

// NewContextBuilder creates a ContextBuilder
func NewContextBuilder(refData referencedata.Client) *ContextBuilder {
	return &ContextBuilder{refData: refData}
}

// BuildContext binds the lookups to ctx without performing any of them.
// The draft is not modified.
func (b *ContextBuilder) BuildContext(ctx context.Context, draft Draft) (*ProcessContext, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no authenticated caller", shared.ErrUnauthorized)
	}

	pc := &ProcessContext{}
	if actor.MachineClient {
		if draft.Author.UserID == uuid.Nil {
			return nil, shared.NewDomainError("AUTHOR_REQUIRED", "Machine clients must declare the author user ID")
		}
		pc.userID = draft.Author.UserID
		names := draft.Author.UserNames
		pc.userNames = newOnce(func() (string, error) { return names, nil })
	} else {
		if actor.UserID == uuid.Nil {
			return nil, fmt.Errorf("%w: session carries no user", shared.ErrUnauthorized)
		}
		pc.userID = actor.UserID
		pc.userNames = newOnce(func() (string, error) {
			user, err := b.refData.FindUser(ctx, actor.UserID)
			if err != nil {
				return "", fmt.Errorf("find user %s: %w", actor.UserID, err)
			}
			return user.DisplayName(), nil
		})
	}

	facilityID := draft.FacilityID
	pc.facility = newOnce(func() (*referencedata.Facility, error) {
		facility, err := b.refData.FindFacility(ctx, facilityID)
		if err != nil {
			return nil, fmt.Errorf("find facility %s: %w", facilityID, err)
		}
		return facility, nil
	})

	programID := draft.ProgramID
	pc.program = newOnce(func() (*referencedata.Program, error) {
		program, err := b.refData.FindProgram(ctx, programID)
		if err != nil {
			return nil, fmt.Errorf("find program %s: %w", programID, err)
		}
		return program, nil
	})

	return pc, nil
}
