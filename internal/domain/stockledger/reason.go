package stockledger

import "github.com/google/uuid"

// ReasonType tells whether a reason adds or removes stock
type ReasonType string

const (
	ReasonTypeCredit            ReasonType = "CREDIT"
	ReasonTypeDebit             ReasonType = "DEBIT"
	ReasonTypeBalanceAdjustment ReasonType = "BALANCE_ADJUSTMENT"
)

// ReasonCategory groups reasons by the workflow that uses them
type ReasonCategory string

const (
	ReasonCategoryTransfer          ReasonCategory = "TRANSFER"
	ReasonCategoryAdjustment        ReasonCategory = "ADJUSTMENT"
	ReasonCategoryPhysicalInventory ReasonCategory = "PHYSICAL_INVENTORY"
	ReasonCategoryAggregation       ReasonCategory = "AGGREGATION"
)

// Reason explains why stock moved
type Reason struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	ReasonType        ReasonType     `json:"reasonType"`
	ReasonCategory    ReasonCategory `json:"reasonCategory"`
	IsFreeTextAllowed bool           `json:"isFreeTextAllowed"`
}

// ValidReasonAssignment enables a reason for a program and facility type
type ValidReasonAssignment struct {
	ID             uuid.UUID `json:"id"`
	ProgramID      uuid.UUID `json:"programId"`
	FacilityTypeID uuid.UUID `json:"facilityTypeId"`
	Hidden         bool      `json:"hidden"`
	Reason         Reason    `json:"reason"`
}

// Node is a stock source or destination, either a facility or an organization
type Node struct {
	ID                uuid.UUID `json:"id"`
	ReferenceID       uuid.UUID `json:"referenceId"`
	IsRefDataFacility bool      `json:"refDataFacility"`
}

// ValidSourceDestination enables a node as source or destination for a program and facility type
type ValidSourceDestination struct {
	ID                 uuid.UUID  `json:"id"`
	ProgramID          uuid.UUID  `json:"programId"`
	FacilityTypeID     uuid.UUID  `json:"facilityTypeId"`
	Name               string     `json:"name"`
	Node               Node       `json:"node"`
	IsFreeTextAllowed  bool       `json:"isFreeTextAllowed"`
	GeoLevelAffinityID *uuid.UUID `json:"geoLevelAffinityId,omitempty"`
}

// ContainsReason reports whether the assignments enable the reason
func ContainsReason(assignments []ValidReasonAssignment, reasonID uuid.UUID) bool {
	for i := range assignments {
		if assignments[i].Reason.ID == reasonID {
			return true
		}
	}
	return false
}

// ContainsNode reports whether the assignments enable the node
func ContainsNode(assignments []ValidSourceDestination, nodeID uuid.UUID) bool {
	for i := range assignments {
		if assignments[i].Node.ID == nodeID {
			return true
		}
	}
	return false
}
