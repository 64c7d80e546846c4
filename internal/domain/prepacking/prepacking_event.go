package prepacking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/shared"
)

// AggregateTypePrepackingEvent is the aggregate type name for prepacking events
const AggregateTypePrepackingEvent = "PrepackingEvent"

// Author identifies who submitted a prepacking event
type Author struct {
	UserID    uuid.UUID
	UserNames string
}

// PrepackingEvent is the aggregate root for splitting bulk lots into prepacks
type PrepackingEvent struct {
	shared.BaseAggregateRoot
	DateCreated       time.Time
	DateAuthorised    *time.Time
	FacilityID        uuid.UUID
	ProgramID         uuid.UUID
	SupervisoryNodeID *uuid.UUID
	Comments          string
	UserID            uuid.UUID
	UserNames         string
	Status            Status
	LineItems         []LineItem
	StatusChanges     []StatusChange
}

// NewPrepackingEvent creates a DRAFT prepacking event
func NewPrepackingEvent(facilityID, programID uuid.UUID, author Author, comments string, lineItems []LineItem) (*PrepackingEvent, error) {
	if facilityID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FACILITY", "Facility ID cannot be empty")
	}
	if programID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROGRAM", "Program ID cannot be empty")
	}
	if author.UserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AUTHOR", "Author user ID cannot be empty")
	}
	if len(lineItems) == 0 {
		return nil, shared.NewDomainError("NO_LINE_ITEMS", "Prepacking event must have at least one line item")
	}

	event := &PrepackingEvent{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FacilityID:        facilityID,
		ProgramID:         programID,
		Comments:          comments,
		UserID:            author.UserID,
		UserNames:         author.UserNames,
		Status:            StatusDraft,
		LineItems:         lineItems,
	}
	event.DateCreated = event.CreatedAt
	event.StatusChanges = []StatusChange{newStatusChange(author.UserID, StatusDraft, "")}

	event.AddDomainEvent(NewPrepackingEventCreatedEvent(event))
	return event, nil
}

// IsDraft reports whether the event still accepts changes
func (e *PrepackingEvent) IsDraft() bool {
	return e.Status == StatusDraft
}

// Update replaces the editable parts of a DRAFT event
func (e *PrepackingEvent) Update(comments string, supervisoryNodeID *uuid.UUID, lineItems []LineItem) error {
	if !e.IsDraft() {
		return fmt.Errorf("%w: cannot update prepacking event in %s status", shared.ErrInvalidState, e.Status)
	}
	if err := e.ensureNoStockMoved("update"); err != nil {
		return err
	}
	if len(lineItems) == 0 {
		return shared.NewDomainError("NO_LINE_ITEMS", "Prepacking event must have at least one line item")
	}
	e.Comments = comments
	e.SupervisoryNodeID = supervisoryNodeID
	e.LineItems = lineItems
	e.IncrementVersion()
	return nil
}

// Authorize moves the event to AUTHORIZED once its line items have been processed
func (e *PrepackingEvent) Authorize(authorID uuid.UUID, message string) error {
	if err := e.transitionTo(StatusAuthorized, authorID, message); err != nil {
		return err
	}
	now := time.Now()
	e.DateAuthorised = &now
	e.AddDomainEvent(NewPrepackingEventAuthorizedEvent(e))
	return nil
}

// Reject moves the event to REJECTED; line items are left untouched
func (e *PrepackingEvent) Reject(authorID uuid.UUID, message string) error {
	if err := e.ensureNoStockMoved("reject"); err != nil {
		return err
	}
	if err := e.transitionTo(StatusRejected, authorID, message); err != nil {
		return err
	}
	e.AddDomainEvent(NewPrepackingEventRejectedEvent(e, message))
	return nil
}

// EnsureDeletable returns an error unless the event is still a DRAFT
func (e *PrepackingEvent) EnsureDeletable() error {
	if !e.IsDraft() {
		return fmt.Errorf("%w: cannot delete prepacking event in %s status", shared.ErrInvalidState, e.Status)
	}
	return e.ensureNoStockMoved("delete")
}

// HasMovedStock reports whether an interrupted authorization already moved
// stock for some line items
func (e *PrepackingEvent) HasMovedStock() bool {
	for i := range e.LineItems {
		if e.LineItems[i].MovedStock() {
			return true
		}
	}
	return false
}

// KeepProgress marks the line item outcomes of an interrupted authorization
// for saving. The event stays DRAFT so authorization can be retried.
func (e *PrepackingEvent) KeepProgress() error {
	if !e.IsDraft() {
		return fmt.Errorf("%w: prepacking event is %s", shared.ErrInvalidState, e.Status)
	}
	e.IncrementVersion()
	return nil
}

// ensureNoStockMoved keeps a partly authorized DRAFT from being edited or
// discarded; only authorization can complete it
func (e *PrepackingEvent) ensureNoStockMoved(action string) error {
	if e.HasMovedStock() {
		return fmt.Errorf("%w: cannot %s prepacking event %s, stock was already moved for some line items",
			shared.ErrInvalidState, action, e.ID)
	}
	return nil
}

// CountByStatus tallies line item outcomes
func (e *PrepackingEvent) CountByStatus() map[LineItemStatus]int {
	counts := make(map[LineItemStatus]int)
	for i := range e.LineItems {
		counts[e.LineItems[i].Status]++
	}
	return counts
}

func (e *PrepackingEvent) transitionTo(target Status, authorID uuid.UUID, message string) error {
	if !e.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move prepacking event from %s to %s", shared.ErrInvalidState, e.Status, target)
	}
	e.Status = target
	e.StatusChanges = append(e.StatusChanges, newStatusChange(authorID, target, message))
	e.IncrementVersion()
	return nil
}
