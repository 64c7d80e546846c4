package validation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

var vvmStages = map[string]struct{}{
	"STAGE_1": {},
	"STAGE_2": {},
	"STAGE_3": {},
	"STAGE_4": {},
}

// VVMValidator checks vaccine vial monitor stages recorded on line items
type VVMValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewVVMValidator creates a VVMValidator
func NewVVMValidator(refData referencedata.Client, ledger stockledger.Client) *VVMValidator {
	return &VVMValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *VVMValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		status := item.ExtraData[stockledger.ExtraDataVVMStatus]
		if status == "" {
			continue
		}
		field := lineField(i, "extraData."+stockledger.ExtraDataVVMStatus)
		if _, ok := vvmStages[status]; !ok {
			return NewValidationError(CodeInvalidVVMStatus, field, "%q is not a valid VVM stage", status)
		}

		orderable, err := look.orderable(ctx, item.OrderableID)
		if err != nil {
			return notFoundAs(err, CodeOrderableNotFound, lineField(i, "orderableId"),
				"orderable %s does not exist", item.OrderableID)
		}
		if !orderable.UsesVVM() {
			return NewValidationError(CodeVVMNotApplicable, field,
				"orderable %s does not track VVM", orderable.ProductCode)
		}
	}
	return nil
}

// UnpackKitValidator is the default implementation of the unpack kit extension
// point. Lines using the unpack reason must target a kit orderable.
type UnpackKitValidator struct {
	refData        referencedata.Client
	ledger         stockledger.Client
	unpackReasonID uuid.UUID
}

// NewUnpackKitValidator creates an UnpackKitValidator; a nil reason id disables the check
func NewUnpackKitValidator(refData referencedata.Client, ledger stockledger.Client, unpackReasonID uuid.UUID) *UnpackKitValidator {
	return &UnpackKitValidator{refData: refData, ledger: ledger, unpackReasonID: unpackReasonID}
}

// Validate implements stockledger.Validator
func (v *UnpackKitValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	if v.unpackReasonID == uuid.Nil {
		return nil
	}
	look := lookupsFor(ctx, v.refData, v.ledger)
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if !item.HasReason() || *item.ReasonID != v.unpackReasonID {
			continue
		}
		orderable, err := look.orderable(ctx, item.OrderableID)
		if errors.Is(err, shared.ErrNotFound) {
			return NewValidationError(CodeOrderableNotFound, lineField(i, "orderableId"),
				"orderable %s does not exist", item.OrderableID)
		}
		if err != nil {
			return err
		}
		if !orderable.IsKit() {
			return NewValidationError(CodeUnpackNonKit, lineField(i, "orderableId"),
				"orderable %s is not a kit and cannot be unpacked", orderable.ProductCode)
		}
	}
	return nil
}
