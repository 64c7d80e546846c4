package prepacking

// Status represents the lifecycle state of a prepacking event
type Status string

const (
	// StatusDraft - submitted, waiting for authorization
	StatusDraft Status = "DRAFT"
	// StatusAuthorized - line items processed against the stock ledger
	StatusAuthorized Status = "AUTHORIZED"
	// StatusRejected - declined without stock movement
	StatusRejected Status = "REJECTED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusAuthorized, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are defined
func (s Status) IsTerminal() bool {
	return s == StatusAuthorized || s == StatusRejected
}

// CanTransitionTo checks if transition to target status is allowed
func (s Status) CanTransitionTo(target Status) bool {
	if s != StatusDraft {
		return false
	}
	return target == StatusAuthorized || target == StatusRejected
}

// LineItemStatus records the outcome of authorizing a single line item
type LineItemStatus string

const (
	LineItemStatusPending           LineItemStatus = ""
	LineItemStatusSuccessful        LineItemStatus = "SUCCESSFUL"
	LineItemStatusDebited           LineItemStatus = "DEBITED"
	LineItemStatusInadequateStock   LineItemStatus = "INADEQUATE_STOCK"
	LineItemStatusOrderableNotFound LineItemStatus = "ORDERABLE_NOT_FOUND"
)

// Remarks written on line items by authorization
const (
	RemarkSuccessful        = "Successful"
	RemarkInadequateStock   = "Unsuccessful - inadequate stock"
	RemarkOrderableNotFound = "Unsuccessful - orderable does not exist"
)
