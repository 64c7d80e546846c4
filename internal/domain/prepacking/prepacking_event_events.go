package prepacking

import (
	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/shared"
)

// PrepackingEvent domain event type constants
const (
	EventTypePrepackingEventCreated    = "PrepackingEventCreated"
	EventTypePrepackingEventAuthorized = "PrepackingEventAuthorized"
	EventTypePrepackingEventRejected   = "PrepackingEventRejected"
)

// PrepackingEventCreatedEvent is raised when a prepacking event is submitted
type PrepackingEventCreatedEvent struct {
	shared.BaseDomainEvent
	PrepackingEventID uuid.UUID `json:"prepacking_event_id"`
	FacilityID        uuid.UUID `json:"facility_id"`
	ProgramID         uuid.UUID `json:"program_id"`
	UserID            uuid.UUID `json:"user_id"`
	LineItemCount     int       `json:"line_item_count"`
}

// NewPrepackingEventCreatedEvent creates a new PrepackingEventCreatedEvent
func NewPrepackingEventCreatedEvent(e *PrepackingEvent) *PrepackingEventCreatedEvent {
	return &PrepackingEventCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePrepackingEventCreated, AggregateTypePrepackingEvent, e.ID),
		PrepackingEventID: e.ID,
		FacilityID:        e.FacilityID,
		ProgramID:         e.ProgramID,
		UserID:            e.UserID,
		LineItemCount:     len(e.LineItems),
	}
}

// PrepackingEventAuthorizedEvent is raised after authorization processed every line item
type PrepackingEventAuthorizedEvent struct {
	shared.BaseDomainEvent
	PrepackingEventID uuid.UUID `json:"prepacking_event_id"`
	FacilityID        uuid.UUID `json:"facility_id"`
	ProgramID         uuid.UUID `json:"program_id"`
	Successful        int       `json:"successful"`
	InadequateStock   int       `json:"inadequate_stock"`
	OrderableNotFound int       `json:"orderable_not_found"`
}

// NewPrepackingEventAuthorizedEvent creates a new PrepackingEventAuthorizedEvent
func NewPrepackingEventAuthorizedEvent(e *PrepackingEvent) *PrepackingEventAuthorizedEvent {
	counts := e.CountByStatus()
	return &PrepackingEventAuthorizedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePrepackingEventAuthorized, AggregateTypePrepackingEvent, e.ID),
		PrepackingEventID: e.ID,
		FacilityID:        e.FacilityID,
		ProgramID:         e.ProgramID,
		Successful:        counts[LineItemStatusSuccessful],
		InadequateStock:   counts[LineItemStatusInadequateStock],
		OrderableNotFound: counts[LineItemStatusOrderableNotFound],
	}
}

// PrepackingEventRejectedEvent is raised when a prepacking event is rejected
type PrepackingEventRejectedEvent struct {
	shared.BaseDomainEvent
	PrepackingEventID uuid.UUID `json:"prepacking_event_id"`
	FacilityID        uuid.UUID `json:"facility_id"`
	Reason            string    `json:"reason,omitempty"`
}

// NewPrepackingEventRejectedEvent creates a new PrepackingEventRejectedEvent
func NewPrepackingEventRejectedEvent(e *PrepackingEvent, reason string) *PrepackingEventRejectedEvent {
	return &PrepackingEventRejectedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePrepackingEventRejected, AggregateTypePrepackingEvent, e.ID),
		PrepackingEventID: e.ID,
		FacilityID:        e.FacilityID,
		Reason:            reason,
	}
}
