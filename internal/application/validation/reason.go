package validation

import (
	"context"
	"fmt"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// ReasonExistenceValidator requires every referenced reason to be known to the ledger
type ReasonExistenceValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewReasonExistenceValidator creates a ReasonExistenceValidator
func NewReasonExistenceValidator(refData referencedata.Client, ledger stockledger.Client) *ReasonExistenceValidator {
	return &ReasonExistenceValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *ReasonExistenceValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.HasReason() {
			if _, err := look.reason(ctx, *item.ReasonID); err != nil {
				return notFoundAs(err, CodeReasonNotFound, lineField(i, "reasonId"), "reason %s does not exist", *item.ReasonID)
			}
		}
		for j, adj := range item.StockAdjustments {
			if _, err := look.reason(ctx, adj.ReasonID); err != nil {
				field := lineField(i, fmt.Sprintf("stockAdjustments[%d].reasonId", j))
				return notFoundAs(err, CodeReasonNotFound, field, "reason %s does not exist", adj.ReasonID)
			}
		}
	}
	return nil
}

// ReceiveIssueReasonValidator requires receive lines to carry a credit transfer
// reason and issue lines a debit transfer reason
type ReceiveIssueReasonValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewReceiveIssueReasonValidator creates a ReceiveIssueReasonValidator
func NewReceiveIssueReasonValidator(refData referencedata.Client, ledger stockledger.Client) *ReceiveIssueReasonValidator {
	return &ReceiveIssueReasonValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *ReceiveIssueReasonValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if !item.HasReason() || (!item.HasSource() && !item.HasDestination()) {
			continue
		}
		reason, err := look.reason(ctx, *item.ReasonID)
		if err != nil {
			return notFoundAs(err, CodeReasonNotFound, lineField(i, "reasonId"), "reason %s does not exist", *item.ReasonID)
		}

		if item.HasSource() && !isTransfer(reason, stockledger.ReasonTypeCredit) {
			return NewValidationError(CodeReceiveReasonMismatch, lineField(i, "reasonId"),
				"reason %q cannot be used to receive stock", reason.Name)
		}
		if item.HasDestination() && !isTransfer(reason, stockledger.ReasonTypeDebit) {
			return NewValidationError(CodeIssueReasonMismatch, lineField(i, "reasonId"),
				"reason %q cannot be used to issue stock", reason.Name)
		}
	}
	return nil
}

func isTransfer(reason *stockledger.Reason, reasonType stockledger.ReasonType) bool {
	return reason.ReasonType == reasonType && reason.ReasonCategory == stockledger.ReasonCategoryTransfer
}

// AdjustmentReasonValidator is the default implementation of the adjustment
// reason extension point. Adjustment lines need a non-negative quantity and a
// reason assigned to the program and facility type.
type AdjustmentReasonValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewAdjustmentReasonValidator creates an AdjustmentReasonValidator
func NewAdjustmentReasonValidator(refData referencedata.Client, ledger stockledger.Client) *AdjustmentReasonValidator {
	return &AdjustmentReasonValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *AdjustmentReasonValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if !item.IsAdjustment() {
			continue
		}
		if item.Quantity < 0 {
			return NewValidationError(CodeNegativeQuantity, lineField(i, "quantity"),
				"adjustment quantity must not be negative, got %d", item.Quantity)
		}
		valid, err := look.validReasons(ctx, event)
		if err != nil {
			return err
		}
		if !stockledger.ContainsReason(valid, *item.ReasonID) {
			return NewValidationError(CodeAdjustmentReasonNotValid, lineField(i, "reasonId"),
				"reason %s is not valid for this facility type and program", *item.ReasonID)
		}
	}
	return nil
}

// PhysicalInventoryReasonValidator requires the adjustments explaining a
// physical inventory discrepancy to use reasons assigned to the program and facility type
type PhysicalInventoryReasonValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewPhysicalInventoryReasonValidator creates a PhysicalInventoryReasonValidator
func NewPhysicalInventoryReasonValidator(refData referencedata.Client, ledger stockledger.Client) *PhysicalInventoryReasonValidator {
	return &PhysicalInventoryReasonValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *PhysicalInventoryReasonValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if !item.IsPhysicalInventory() || len(item.StockAdjustments) == 0 {
			continue
		}
		valid, err := look.validReasons(ctx, event)
		if err != nil {
			return err
		}
		for j, adj := range item.StockAdjustments {
			if !stockledger.ContainsReason(valid, adj.ReasonID) {
				return NewValidationError(CodePhysicalInventoryReason,
					lineField(i, fmt.Sprintf("stockAdjustments[%d].reasonId", j)),
					"reason %s is not valid for this facility type and program", adj.ReasonID)
			}
			if adj.Quantity < 0 {
				return NewValidationError(CodeNegativeQuantity,
					lineField(i, fmt.Sprintf("stockAdjustments[%d].quantity", j)),
					"adjustment quantity must not be negative, got %d", adj.Quantity)
			}
		}
	}
	return nil
}
