package prepacking

import (
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
)

// LineItemRequest asks for prepacks to be cut from a bulk orderable/lot
type LineItemRequest struct {
	OrderableID      uuid.UUID  `json:"orderableId" binding:"required"`
	LotID            *uuid.UUID `json:"lotId"`
	PrepackSize      int64      `json:"prepackSize" binding:"required,gt=0"`
	NumberOfPrepacks int64      `json:"numberOfPrepacks" binding:"required,gt=0"`
}

// CreatePrepackingEventRequest submits a new prepacking event.
// UserID and UserNames are only read for machine clients.
type CreatePrepackingEventRequest struct {
	FacilityID        uuid.UUID         `json:"facilityId" binding:"required"`
	ProgramID         uuid.UUID         `json:"programId" binding:"required"`
	SupervisoryNodeID *uuid.UUID        `json:"supervisoryNodeId"`
	Comments          string            `json:"comments" binding:"max=2000"`
	UserID            uuid.UUID         `json:"userId"`
	UserNames         string            `json:"userNames"`
	LineItems         []LineItemRequest `json:"lineItems" binding:"required,min=1,dive"`
}

// UpdatePrepackingEventRequest replaces the editable parts of a DRAFT event
type UpdatePrepackingEventRequest struct {
	SupervisoryNodeID *uuid.UUID        `json:"supervisoryNodeId"`
	Comments          string            `json:"comments" binding:"max=2000"`
	LineItems         []LineItemRequest `json:"lineItems" binding:"required,min=1,dive"`
}

// StatusChangeRequest carries the optional message of an authorize or reject
type StatusChangeRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

// ListFilter selects prepacking events; FacilityID is required
type ListFilter struct {
	FacilityID *uuid.UUID
	ProgramID  *uuid.UUID
	Status     string
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderableID       uuid.UUID  `json:"orderableId"`
	LotID             *uuid.UUID `json:"lotId,omitempty"`
	PrepackSize       int64      `json:"prepackSize"`
	NumberOfPrepacks  int64      `json:"numberOfPrepacks"`
	QuantityToPrepack int64      `json:"quantityToPrepack"`
	Remarks           string     `json:"remarks,omitempty"`
	StockOnHand       *int64     `json:"stockOnHand,omitempty"`
	Status            string     `json:"status,omitempty"`
}

// StatusChangeResponse represents one audit entry in API responses
type StatusChangeResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredDate"`
	Message    string    `json:"message,omitempty"`
}

// PrepackingEventResponse represents a prepacking event in API responses
type PrepackingEventResponse struct {
	ID                uuid.UUID              `json:"id"`
	FacilityID        uuid.UUID              `json:"facilityId"`
	ProgramID         uuid.UUID              `json:"programId"`
	SupervisoryNodeID *uuid.UUID             `json:"supervisoryNodeId,omitempty"`
	Comments          string                 `json:"comments,omitempty"`
	UserID            uuid.UUID              `json:"userId"`
	UserNames         string                 `json:"userNames"`
	Status            string                 `json:"status"`
	DateCreated       time.Time              `json:"dateCreated"`
	DateAuthorised    *time.Time             `json:"dateAuthorised,omitempty"`
	LineItems         []LineItemResponse     `json:"lineItems"`
	StatusChanges     []StatusChangeResponse `json:"statusChanges"`
	Version           int                    `json:"version"`
}

// ToPrepackingEventResponse converts the aggregate to its API representation
func ToPrepackingEventResponse(e *prepacking.PrepackingEvent) PrepackingEventResponse {
	items := make([]LineItemResponse, len(e.LineItems))
	for i := range e.LineItems {
		li := &e.LineItems[i]
		items[i] = LineItemResponse{
			ID:                li.ID,
			OrderableID:       li.OrderableID,
			LotID:             li.LotID,
			PrepackSize:       li.PrepackSize,
			NumberOfPrepacks:  li.NumberOfPrepacks,
			QuantityToPrepack: li.QuantityToPrepack(),
			Remarks:           li.Remarks,
			StockOnHand:       li.StockOnHand,
			Status:            string(li.Status),
		}
	}

	changes := make([]StatusChangeResponse, len(e.StatusChanges))
	for i, sc := range e.StatusChanges {
		changes[i] = StatusChangeResponse{
			ID:         sc.ID,
			AuthorID:   sc.AuthorID,
			Status:     string(sc.Status),
			OccurredAt: sc.OccurredAt,
			Message:    sc.Message,
		}
	}

	return PrepackingEventResponse{
		ID:                e.ID,
		FacilityID:        e.FacilityID,
		ProgramID:         e.ProgramID,
		SupervisoryNodeID: e.SupervisoryNodeID,
		Comments:          e.Comments,
		UserID:            e.UserID,
		UserNames:         e.UserNames,
		Status:            e.Status.String(),
		DateCreated:       e.DateCreated,
		DateAuthorised:    e.DateAuthorised,
		LineItems:         items,
		StatusChanges:     changes,
		Version:           e.Version,
	}
}

// ToPrepackingEventResponses converts a list of aggregates
func ToPrepackingEventResponses(events []prepacking.PrepackingEvent) []PrepackingEventResponse {
	responses := make([]PrepackingEventResponse, len(events))
	for i := range events {
		responses[i] = ToPrepackingEventResponse(&events[i])
	}
	return responses
}

func toLineItems(reqs []LineItemRequest) ([]prepacking.LineItem, error) {
	items := make([]prepacking.LineItem, 0, len(reqs))
	for _, r := range reqs {
		item, err := prepacking.NewLineItem(r.OrderableID, r.LotID, r.PrepackSize, r.NumberOfPrepacks)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
