package validation

import (
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
	"go.uber.org/zap"
)

// Dependencies are the collaborators shared by the built-in validators
type Dependencies struct {
	RefData           referencedata.Client
	Ledger            stockledger.Client
	UnpackKitReasonID uuid.UUID
	Now               func() time.Time
}

// DefaultRegistrar receives the default implementation of an extension point
type DefaultRegistrar interface {
	RegisterDefault(point stockledger.ExtensionPointID, v stockledger.Validator) error
}

// RegisterDefaultExtensions installs the built-in implementations of the
// adjustment reason, free text and unpack kit extension points
func RegisterDefaultExtensions(registrar DefaultRegistrar, deps Dependencies) error {
	defaults := []struct {
		point stockledger.ExtensionPointID
		v     stockledger.Validator
	}{
		{stockledger.AdjustmentReasonPointID, NewAdjustmentReasonValidator(deps.RefData, deps.Ledger)},
		{stockledger.FreeTextPointID, NewFreeTextValidator(deps.RefData, deps.Ledger)},
		{stockledger.UnpackKitPointID, NewUnpackKitValidator(deps.RefData, deps.Ledger, deps.UnpackKitReasonID)},
	}
	for _, d := range defaults {
		if err := registrar.RegisterDefault(d.point, d.v); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultPipeline assembles the stock event rules in their fixed order
func NewDefaultPipeline(deps Dependencies, resolver ExtensionResolver, log *zap.Logger) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return NewPipeline(resolver, log,
		Fixed("MandatoryFields", NewMandatoryFieldsValidator(now)),
		Fixed("ApprovedOrderable", NewApprovedOrderableValidator(deps.RefData, deps.Ledger)),
		Fixed("SourceDestinationAssignment", NewSourceDestinationAssignmentValidator(deps.RefData, deps.Ledger)),
		Fixed("GeoLevelAffinity", NewGeoLevelAffinityValidator(deps.RefData, deps.Ledger)),
		Fixed("ReasonExistence", NewReasonExistenceValidator(deps.RefData, deps.Ledger)),
		Fixed("ReceiveIssueReason", NewReceiveIssueReasonValidator(deps.RefData, deps.Ledger)),
		Extension(stockledger.AdjustmentReasonPointID),
		Extension(stockledger.FreeTextPointID),
		Fixed("Quantity", NewQuantityValidator(deps.RefData, deps.Ledger, now)),
		Fixed("Lot", NewLotValidator(deps.RefData, deps.Ledger, now)),
		Fixed("OrderableLotDuplication", NewOrderableLotDuplicationValidator()),
		Fixed("PhysicalInventoryReason", NewPhysicalInventoryReasonValidator(deps.RefData, deps.Ledger)),
		Fixed("VVM", NewVVMValidator(deps.RefData, deps.Ledger)),
		Extension(stockledger.UnpackKitPointID),
	)
}
