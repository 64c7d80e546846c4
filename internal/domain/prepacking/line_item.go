package prepacking

import (
	"math"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/shared"
)

// LineItem asks for numberOfPrepacks prepacks of prepackSize units cut from a bulk lot
type LineItem struct {
	ID               uuid.UUID
	OrderableID      uuid.UUID
	LotID            *uuid.UUID
	PrepackSize      int64
	NumberOfPrepacks int64
	Remarks          string
	StockOnHand      *int64
	Status           LineItemStatus
}

// NewLineItem creates a line item for a bulk orderable and optional lot
func NewLineItem(orderableID uuid.UUID, lotID *uuid.UUID, prepackSize, numberOfPrepacks int64) (LineItem, error) {
	if orderableID == uuid.Nil {
		return LineItem{}, shared.NewDomainError("INVALID_ORDERABLE", "Orderable ID cannot be empty")
	}
	if prepackSize <= 0 {
		return LineItem{}, shared.NewDomainError("INVALID_PREPACK_SIZE", "Prepack size must be positive")
	}
	if numberOfPrepacks <= 0 {
		return LineItem{}, shared.NewDomainError("INVALID_NUMBER_OF_PREPACKS", "Number of prepacks must be positive")
	}
	if prepackSize > math.MaxInt64/numberOfPrepacks {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity to prepack is too large")
	}
	return LineItem{
		ID:               uuid.New(),
		OrderableID:      orderableID,
		LotID:            lotID,
		PrepackSize:      prepackSize,
		NumberOfPrepacks: numberOfPrepacks,
		Status:           LineItemStatusPending,
	}, nil
}

// QuantityToPrepack is the number of bulk units consumed by the line item
func (li *LineItem) QuantityToPrepack() int64 {
	return li.PrepackSize * li.NumberOfPrepacks
}

// MarkSuccessful records that stock was moved to the prepack product
func (li *LineItem) MarkSuccessful(stockOnHand int64) {
	li.StockOnHand = &stockOnHand
	li.Remarks = RemarkSuccessful
	li.Status = LineItemStatusSuccessful
}

// MarkDebited records that the bulk debit was submitted but the prepack credit was not
func (li *LineItem) MarkDebited(stockOnHand int64) {
	li.StockOnHand = &stockOnHand
	li.Remarks = ""
	li.Status = LineItemStatusDebited
}

// MovedStock reports whether the ledger already holds a debit for the line item
func (li *LineItem) MovedStock() bool {
	return li.Status == LineItemStatusSuccessful || li.Status == LineItemStatusDebited
}

// MarkInadequateStock records that stock on hand could not cover the line item
func (li *LineItem) MarkInadequateStock(stockOnHand int64) {
	li.StockOnHand = &stockOnHand
	li.Remarks = RemarkInadequateStock
	li.Status = LineItemStatusInadequateStock
}

// MarkOrderableNotFound records that no stock card matched the bulk orderable/lot
func (li *LineItem) MarkOrderableNotFound() {
	li.StockOnHand = nil
	li.Remarks = RemarkOrderableNotFound
	li.Status = LineItemStatusOrderableNotFound
}
