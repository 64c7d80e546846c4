package validation

import (
	"context"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// FreeTextValidator is the default implementation of the free text extension
// point. Free text may only accompany the node or reason it describes.
type FreeTextValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewFreeTextValidator creates a FreeTextValidator
func NewFreeTextValidator(refData referencedata.Client, ledger stockledger.Client) *FreeTextValidator {
	return &FreeTextValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *FreeTextValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.SourceFreeText != "" && !item.HasSource() {
			return NewValidationError(CodeFreeTextNotAllowed, lineField(i, "sourceFreeText"),
				"source free text requires a source")
		}
		if item.DestinationFreeText != "" && !item.HasDestination() {
			return NewValidationError(CodeFreeTextNotAllowed, lineField(i, "destinationFreeText"),
				"destination free text requires a destination")
		}
		if item.ReasonFreeText == "" {
			continue
		}
		if !item.HasReason() {
			return NewValidationError(CodeFreeTextNotAllowed, lineField(i, "reasonFreeText"),
				"reason free text requires a reason")
		}
		reason, err := look.reason(ctx, *item.ReasonID)
		if err != nil {
			return notFoundAs(err, CodeReasonNotFound, lineField(i, "reasonId"), "reason %s does not exist", *item.ReasonID)
		}
		if !reason.IsFreeTextAllowed {
			return NewValidationError(CodeFreeTextNotAllowed, lineField(i, "reasonFreeText"),
				"reason %q does not allow free text", reason.Name)
		}
	}
	return nil
}
