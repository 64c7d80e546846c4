// Package stockledger describes the stock events, reasons and stock card
// summaries exchanged with the stock management service.
package stockledger

import (
	"time"

	"github.com/google/uuid"
)

// ExtraDataVVMStatus is the line item extra data key holding the VVM stage
const ExtraDataVVMStatus = "vvmStatus"

// Event is a batch of signed stock adjustments for one facility and program
type Event struct {
	FacilityID     uuid.UUID  `json:"facilityId" validate:"required"`
	ProgramID      uuid.UUID  `json:"programId" validate:"required"`
	UserID         uuid.UUID  `json:"userId"`
	DocumentNumber string     `json:"documentNumber,omitempty"`
	Signature      string     `json:"signature,omitempty"`
	LineItems      []LineItem `json:"lineItems" validate:"required,min=1,dive"`
}

// LineItem is a single stock movement inside an Event
type LineItem struct {
	OrderableID         uuid.UUID         `json:"orderableId" validate:"required"`
	LotID               *uuid.UUID        `json:"lotId,omitempty"`
	Quantity            int64             `json:"quantity"`
	OccurredDate        time.Time         `json:"occurredDate" validate:"required"`
	ReasonID            *uuid.UUID        `json:"reasonId,omitempty"`
	ReasonFreeText      string            `json:"reasonFreeText,omitempty"`
	SourceID            *uuid.UUID        `json:"sourceId,omitempty"`
	SourceFreeText      string            `json:"sourceFreeText,omitempty"`
	DestinationID       *uuid.UUID        `json:"destinationId,omitempty"`
	DestinationFreeText string            `json:"destinationFreeText,omitempty"`
	ExtraData           map[string]string `json:"extraData,omitempty"`
	StockAdjustments    []StockAdjustment `json:"stockAdjustments,omitempty"`
}

// StockAdjustment explains part of a physical inventory discrepancy
type StockAdjustment struct {
	ReasonID uuid.UUID `json:"reasonId"`
	Quantity int64     `json:"quantity"`
}

// HasSource reports whether the line receives stock from a node
func (li *LineItem) HasSource() bool {
	return li.SourceID != nil
}

// HasDestination reports whether the line issues stock to a node
func (li *LineItem) HasDestination() bool {
	return li.DestinationID != nil
}

// HasReason reports whether the line carries a reason
func (li *LineItem) HasReason() bool {
	return li.ReasonID != nil
}

// IsAdjustment reports whether the line is a reasoned adjustment rather than a transfer
func (li *LineItem) IsAdjustment() bool {
	return li.HasReason() && !li.HasSource() && !li.HasDestination()
}

// IsPhysicalInventory reports whether the line records a counted quantity
func (li *LineItem) IsPhysicalInventory() bool {
	return !li.HasReason() && !li.HasSource() && !li.HasDestination()
}

// LotKey returns the orderable/lot identity of the line
func (li *LineItem) LotKey() OrderableLot {
	key := OrderableLot{OrderableID: li.OrderableID}
	if li.LotID != nil {
		key.LotID = *li.LotID
	}
	return key
}

// IsPhysicalInventory reports whether every line of the event is a physical inventory count
func (e *Event) IsPhysicalInventory() bool {
	if len(e.LineItems) == 0 {
		return false
	}
	for i := range e.LineItems {
		if !e.LineItems[i].IsPhysicalInventory() {
			return false
		}
	}
	return true
}

// OrderableLot identifies a stock card by orderable and lot (uuid.Nil for no lot)
type OrderableLot struct {
	OrderableID uuid.UUID
	LotID       uuid.UUID
}
