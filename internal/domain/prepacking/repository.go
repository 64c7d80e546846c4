package prepacking

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows listings of prepacking events; nil fields are not applied
type Filter struct {
	FacilityID *uuid.UUID
	ProgramID  *uuid.UUID
	Status     *Status
}

// Repository persists prepacking events with their line items and status history
type Repository interface {
	// FindByID returns shared.ErrNotFound when the event does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*PrepackingEvent, error)
	// Find lists events newest first
	Find(ctx context.Context, filter Filter) ([]PrepackingEvent, error)
	// Save inserts or updates the event; a stale version yields shared.ErrConcurrencyConflict
	Save(ctx context.Context, event *PrepackingEvent) error
	// Delete removes the event; shared.ErrNotFound when absent
	Delete(ctx context.Context, id uuid.UUID) error
}
