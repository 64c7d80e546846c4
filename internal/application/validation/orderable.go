package validation

import (
	"context"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// ApprovedOrderableValidator requires every orderable to be an approved
// product for the facility's type within the event's program
type ApprovedOrderableValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewApprovedOrderableValidator creates an ApprovedOrderableValidator
func NewApprovedOrderableValidator(refData referencedata.Client, ledger stockledger.Client) *ApprovedOrderableValidator {
	return &ApprovedOrderableValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *ApprovedOrderableValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	look := lookupsFor(ctx, v.refData, v.ledger)

	facility, err := look.facility(ctx, event.FacilityID)
	if err != nil {
		return err
	}
	program, err := look.program(ctx, event.ProgramID)
	if err != nil {
		return err
	}

	ids := distinctOrderableIDs(event)
	approved, err := v.refData.FindApprovedProducts(ctx, facility.Type.Code, program.Code, ids...)
	if err != nil {
		return err
	}

	approvedIDs := make(map[uuid.UUID]struct{}, len(approved))
	for i := range approved {
		approvedIDs[approved[i].Orderable.ID] = struct{}{}
	}
	for i := range event.LineItems {
		id := event.LineItems[i].OrderableID
		if _, ok := approvedIDs[id]; !ok {
			return NewValidationError(CodeOrderableNotApproved, lineField(i, "orderableId"),
				"orderable %s is not approved for facility type %s in program %s", id, facility.Type.Code, program.Code)
		}
	}
	return nil
}

func distinctOrderableIDs(event *stockledger.Event) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(event.LineItems))
	ids := make([]uuid.UUID, 0, len(event.LineItems))
	for i := range event.LineItems {
		id := event.LineItems[i].OrderableID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
