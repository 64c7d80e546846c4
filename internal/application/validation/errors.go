package validation

import (
	"fmt"

	"github.com/prepacking/backend/internal/domain/shared"
)

// Validation error codes
const (
	CodeMandatoryFieldMissing      = "MANDATORY_FIELD_MISSING"
	CodeOccurredDateInFuture       = "OCCURRED_DATE_IN_FUTURE"
	CodeFacilityNotFound           = "FACILITY_NOT_FOUND"
	CodeProgramNotFound            = "PROGRAM_NOT_FOUND"
	CodeOrderableNotApproved       = "ORDERABLE_NOT_APPROVED"
	CodeOrderableNotFound          = "ORDERABLE_NOT_FOUND"
	CodeSourceAndDestination       = "SOURCE_AND_DESTINATION_BOTH_PRESENT"
	CodeSourceNotValid             = "SOURCE_NOT_VALID"
	CodeDestinationNotValid        = "DESTINATION_NOT_VALID"
	CodeSourceOutsideAffinity      = "SOURCE_OUTSIDE_GEO_LEVEL_AFFINITY"
	CodeDestinationOutsideAffinity = "DESTINATION_OUTSIDE_GEO_LEVEL_AFFINITY"
	CodeReasonNotFound             = "REASON_NOT_FOUND"
	CodeReceiveReasonMismatch      = "RECEIVE_REASON_MISMATCH"
	CodeIssueReasonMismatch        = "ISSUE_REASON_MISMATCH"
	CodeAdjustmentReasonNotValid   = "ADJUSTMENT_REASON_NOT_VALID"
	CodeFreeTextNotAllowed         = "FREE_TEXT_NOT_ALLOWED"
	CodeNegativeQuantity           = "NEGATIVE_QUANTITY"
	CodeQuantityExceedsStock       = "QUANTITY_EXCEEDS_STOCK_ON_HAND"
	CodeLotNotFound                = "LOT_NOT_FOUND"
	CodeLotTradeItemMismatch       = "LOT_TRADE_ITEM_MISMATCH"
	CodeLotExpired                 = "LOT_EXPIRED"
	CodeOrderableLotDuplicated     = "ORDERABLE_LOT_DUPLICATED"
	CodePhysicalInventoryReason    = "PHYSICAL_INVENTORY_REASON_NOT_VALID"
	CodeInvalidVVMStatus           = "INVALID_VVM_STATUS"
	CodeVVMNotApplicable           = "VVM_NOT_APPLICABLE"
	CodeUnpackNonKit               = "UNPACK_NON_KIT_ORDERABLE"
)

// ValidationError is returned by the first rule an event breaks.
// It unwraps to shared.ErrValidationFailed.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match shared.ErrValidationFailed
func (e *ValidationError) Unwrap() error {
	return shared.ErrValidationFailed
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(code, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func lineField(index int, name string) string {
	return fmt.Sprintf("lineItems[%d].%s", index, name)
}
