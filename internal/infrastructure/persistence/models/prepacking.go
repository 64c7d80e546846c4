package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
)

// PrepackingEventModel is the persistence model of the PrepackingEvent aggregate
type PrepackingEventModel struct {
	AggregateModel
	DateCreated       time.Time                     `gorm:"not null"`
	DateAuthorised    *time.Time                    `gorm:"column:date_authorised"`
	FacilityID        uuid.UUID                     `gorm:"type:uuid;not null;index:idx_prepacking_events_facility_program,priority:1"`
	ProgramID         uuid.UUID                     `gorm:"type:uuid;not null;index:idx_prepacking_events_facility_program,priority:2"`
	SupervisoryNodeID *uuid.UUID                    `gorm:"type:uuid"`
	Comments          string                        `gorm:"type:text"`
	UserID            uuid.UUID                     `gorm:"type:uuid;not null"`
	UserNames         string                        `gorm:"type:varchar(255)"`
	Status            string                        `gorm:"type:varchar(20);not null;index"`
	LineItems         []PrepackingLineItemModel     `gorm:"foreignKey:PrepackingEventID"`
	StatusChanges     []PrepackingStatusChangeModel `gorm:"foreignKey:PrepackingEventID"`
}

// TableName returns the table name for GORM
func (PrepackingEventModel) TableName() string {
	return "prepacking_events"
}

// PrepackingLineItemModel is the persistence model of a prepacking line item
type PrepackingLineItemModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PrepackingEventID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position          int        `gorm:"not null"`
	OrderableID       uuid.UUID  `gorm:"type:uuid;not null"`
	LotID             *uuid.UUID `gorm:"type:uuid"`
	PrepackSize       int64      `gorm:"not null"`
	NumberOfPrepacks  int64      `gorm:"not null"`
	Remarks           string     `gorm:"type:varchar(255)"`
	StockOnHand       *int64
	Status            string `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (PrepackingLineItemModel) TableName() string {
	return "prepacking_line_items"
}

// PrepackingStatusChangeModel is one row of the status history of an event
type PrepackingStatusChangeModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PrepackingEventID uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID          uuid.UUID `gorm:"type:uuid;not null"`
	Status            string    `gorm:"type:varchar(20);not null"`
	OccurredAt        time.Time `gorm:"not null"`
	Message           string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PrepackingStatusChangeModel) TableName() string {
	return "prepacking_event_status_changes"
}

// PrepackingEventModelFromDomain converts the aggregate and its children to models
func PrepackingEventModelFromDomain(e *prepacking.PrepackingEvent) *PrepackingEventModel {
	m := &PrepackingEventModel{
		DateCreated:       e.DateCreated,
		DateAuthorised:    e.DateAuthorised,
		FacilityID:        e.FacilityID,
		ProgramID:         e.ProgramID,
		SupervisoryNodeID: e.SupervisoryNodeID,
		Comments:          e.Comments,
		UserID:            e.UserID,
		UserNames:         e.UserNames,
		Status:            string(e.Status),
		LineItems:         make([]PrepackingLineItemModel, len(e.LineItems)),
		StatusChanges:     make([]PrepackingStatusChangeModel, len(e.StatusChanges)),
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)

	for i, li := range e.LineItems {
		m.LineItems[i] = PrepackingLineItemModel{
			ID:                li.ID,
			PrepackingEventID: e.ID,
			Position:          i,
			OrderableID:       li.OrderableID,
			LotID:             li.LotID,
			PrepackSize:       li.PrepackSize,
			NumberOfPrepacks:  li.NumberOfPrepacks,
			Remarks:           li.Remarks,
			StockOnHand:       li.StockOnHand,
			Status:            string(li.Status),
		}
	}
	for i, sc := range e.StatusChanges {
		m.StatusChanges[i] = PrepackingStatusChangeModel{
			ID:                sc.ID,
			PrepackingEventID: e.ID,
			AuthorID:          sc.AuthorID,
			Status:            string(sc.Status),
			OccurredAt:        sc.OccurredAt,
			Message:           sc.Message,
		}
	}
	return m
}

// ToDomain converts the model back to the aggregate.
// Line items and status changes must already be ordered.
func (m *PrepackingEventModel) ToDomain() *prepacking.PrepackingEvent {
	e := &prepacking.PrepackingEvent{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		DateCreated:       m.DateCreated,
		DateAuthorised:    m.DateAuthorised,
		FacilityID:        m.FacilityID,
		ProgramID:         m.ProgramID,
		SupervisoryNodeID: m.SupervisoryNodeID,
		Comments:          m.Comments,
		UserID:            m.UserID,
		UserNames:         m.UserNames,
		Status:            prepacking.Status(m.Status),
		LineItems:         make([]prepacking.LineItem, len(m.LineItems)),
		StatusChanges:     make([]prepacking.StatusChange, len(m.StatusChanges)),
	}
	for i, li := range m.LineItems {
		e.LineItems[i] = prepacking.LineItem{
			ID:               li.ID,
			OrderableID:      li.OrderableID,
			LotID:            li.LotID,
			PrepackSize:      li.PrepackSize,
			NumberOfPrepacks: li.NumberOfPrepacks,
			Remarks:          li.Remarks,
			StockOnHand:      li.StockOnHand,
			Status:           prepacking.LineItemStatus(li.Status),
		}
	}
	for i, sc := range m.StatusChanges {
		e.StatusChanges[i] = prepacking.StatusChange{
			ID:         sc.ID,
			AuthorID:   sc.AuthorID,
			Status:     prepacking.Status(sc.Status),
			OccurredAt: sc.OccurredAt,
			Message:    sc.Message,
		}
	}
	return e
}
