package validation

import (
	"context"
	"time"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// LotValidator checks that referenced lots exist and belong to the line's
// orderable. Lots received from a source must not be expired.
type LotValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
	now     func() time.Time
}

// NewLotValidator creates a LotValidator
func NewLotValidator(refData referencedata.Client, ledger stockledger.Client, now func() time.Time) *LotValidator {
	if now == nil {
		now = time.Now
	}
	return &LotValidator{refData: refData, ledger: ledger, now: now}
}

// Validate implements stockledger.Validator
func (v *LotValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.LotID == nil {
			continue
		}

		lot, err := look.lot(ctx, *item.LotID)
		if err != nil {
			return notFoundAs(err, CodeLotNotFound, lineField(i, "lotId"), "lot %s does not exist", *item.LotID)
		}
		orderable, err := look.orderable(ctx, item.OrderableID)
		if err != nil {
			return notFoundAs(err, CodeOrderableNotFound, lineField(i, "orderableId"),
				"orderable %s does not exist", item.OrderableID)
		}

		tradeItemID, ok := orderable.TradeItemID()
		if !ok || tradeItemID != lot.TradeItemID {
			return NewValidationError(CodeLotTradeItemMismatch, lineField(i, "lotId"),
				"lot %s does not belong to orderable %s", lot.LotCode, orderable.ProductCode)
		}
		if item.HasSource() && lot.IsExpired(v.now()) {
			return NewValidationError(CodeLotExpired, lineField(i, "lotId"),
				"lot %s expired on %s", lot.LotCode, lot.ExpirationDate.Format(time.DateOnly))
		}
	}
	return nil
}

// OrderableLotDuplicationValidator rejects physical inventories counting the
// same orderable/lot twice
type OrderableLotDuplicationValidator struct{}

// NewOrderableLotDuplicationValidator creates an OrderableLotDuplicationValidator
func NewOrderableLotDuplicationValidator() *OrderableLotDuplicationValidator {
	return &OrderableLotDuplicationValidator{}
}

// Validate implements stockledger.Validator
func (v *OrderableLotDuplicationValidator) Validate(_ context.Context, event *stockledger.Event) error {
	if !event.IsPhysicalInventory() {
		return nil
	}
	seen := make(map[stockledger.OrderableLot]struct{}, len(event.LineItems))
	for i := range event.LineItems {
		key := event.LineItems[i].LotKey()
		if _, ok := seen[key]; ok {
			return NewValidationError(CodeOrderableLotDuplicated, lineField(i, "orderableId"),
				"orderable %s and lot are counted more than once", key.OrderableID)
		}
		seen[key] = struct{}{}
	}
	return nil
}
