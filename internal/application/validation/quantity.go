package validation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// QuantityValidator rejects negative quantities and debits exceeding the
// stock on hand of the orderable/lot they draw from
type QuantityValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
	now     func() time.Time
}

// NewQuantityValidator creates a QuantityValidator
func NewQuantityValidator(refData referencedata.Client, ledger stockledger.Client, now func() time.Time) *QuantityValidator {
	if now == nil {
		now = time.Now
	}
	return &QuantityValidator{refData: refData, ledger: ledger, now: now}
}

// Validate implements stockledger.Validator
func (v *QuantityValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)

	debits := make(map[stockledger.OrderableLot]int64)
	firstLine := make(map[stockledger.OrderableLot]int)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.Quantity < 0 {
			return NewValidationError(CodeNegativeQuantity, lineField(i, "quantity"),
				"quantity must not be negative, got %d", item.Quantity)
		}

		debit, err := isDebit(ctx, look, item)
		if err != nil {
			return notFoundAs(err, CodeReasonNotFound, lineField(i, "reasonId"), "reason does not exist")
		}
		if !debit {
			continue
		}
		key := item.LotKey()
		if _, ok := firstLine[key]; !ok {
			firstLine[key] = i
		}
		debits[key] += item.Quantity
	}
	if len(debits) == 0 {
		return nil
	}

	orderableIDs := make([]uuid.UUID, 0, len(debits))
	seen := make(map[uuid.UUID]struct{}, len(debits))
	for key := range debits {
		if _, ok := seen[key.OrderableID]; ok {
			continue
		}
		seen[key.OrderableID] = struct{}{}
		orderableIDs = append(orderableIDs, key.OrderableID)
	}

	summaries, err := v.ledger.SearchStockCardSummaries(ctx, stockledger.SummaryQuery{
		ProgramID:    event.ProgramID,
		FacilityID:   event.FacilityID,
		OrderableIDs: orderableIDs,
		AsOfDate:     v.now(),
	})
	if err != nil {
		return err
	}
	onHand := make(map[stockledger.OrderableLot]int64, len(summaries))
	for _, s := range summaries {
		key := stockledger.OrderableLot{OrderableID: s.OrderableID}
		if s.LotID != nil {
			key.LotID = *s.LotID
		}
		onHand[key] += s.StockOnHand
	}

	// report the earliest line of the first offending orderable/lot
	offending := -1
	for key, total := range debits {
		if total > onHand[key] && (offending < 0 || firstLine[key] < offending) {
			offending = firstLine[key]
		}
	}
	if offending >= 0 {
		key := event.LineItems[offending].LotKey()
		return NewValidationError(CodeQuantityExceedsStock, lineField(offending, "quantity"),
			"requested %d of orderable %s exceeds stock on hand %d", debits[key], key.OrderableID, onHand[key])
	}
	return nil
}

// isDebit reports whether a line removes stock: an issue, or an adjustment with a debit reason
func isDebit(ctx context.Context, look *lookups, item *stockledger.LineItem) (bool, error) {
	if item.HasDestination() {
		return true, nil
	}
	if !item.IsAdjustment() {
		return false, nil
	}
	reason, err := look.reason(ctx, *item.ReasonID)
	if err != nil {
		return false, err
	}
	return reason.ReasonType == stockledger.ReasonTypeDebit, nil
}
