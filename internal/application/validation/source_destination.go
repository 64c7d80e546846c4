package validation

import (
	"context"

	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// SourceDestinationAssignmentValidator checks that sources and destinations are
// enabled for the program and facility type, and never both set on one line
type SourceDestinationAssignmentValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewSourceDestinationAssignmentValidator creates a SourceDestinationAssignmentValidator
func NewSourceDestinationAssignmentValidator(refData referencedata.Client, ledger stockledger.Client) *SourceDestinationAssignmentValidator {
	return &SourceDestinationAssignmentValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *SourceDestinationAssignmentValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.HasSource() && item.HasDestination() {
			return NewValidationError(CodeSourceAndDestination, lineField(i, "sourceId"),
				"line item %d has both a source and a destination", i)
		}
	}
	return checkNodes(ctx, lookupsFor(ctx, v.refData, v.ledger), event, false)
}

// GeoLevelAffinityValidator narrows valid sources and destinations to the ones
// whose geo-level affinity covers the event's facility
type GeoLevelAffinityValidator struct {
	refData referencedata.Client
	ledger  stockledger.Client
}

// NewGeoLevelAffinityValidator creates a GeoLevelAffinityValidator
func NewGeoLevelAffinityValidator(refData referencedata.Client, ledger stockledger.Client) *GeoLevelAffinityValidator {
	return &GeoLevelAffinityValidator{refData: refData, ledger: ledger}
}

// Validate implements stockledger.Validator
func (v *GeoLevelAffinityValidator) Validate(ctx context.Context, event *stockledger.Event) error {
	return checkNodes(ctx, lookupsFor(ctx, v.refData, v.ledger), event, true)
}

func checkNodes(ctx context.Context, look *lookups, event *stockledger.Event, withAffinity bool) error {
	sourceCode, destinationCode := CodeSourceNotValid, CodeDestinationNotValid
	if withAffinity {
		sourceCode, destinationCode = CodeSourceOutsideAffinity, CodeDestinationOutsideAffinity
	}

	for i := range event.LineItems {
		item := &event.LineItems[i]
		if item.HasSource() {
			sources, err := look.validSources(ctx, event, withAffinity)
			if err != nil {
				return err
			}
			if !stockledger.ContainsNode(sources, *item.SourceID) {
				return NewValidationError(sourceCode, lineField(i, "sourceId"),
					"source %s is not valid for this facility and program", *item.SourceID)
			}
		}
		if item.HasDestination() {
			destinations, err := look.validDestinations(ctx, event, withAffinity)
			if err != nil {
				return err
			}
			if !stockledger.ContainsNode(destinations, *item.DestinationID) {
				return NewValidationError(destinationCode, lineField(i, "destinationId"),
					"destination %s is not valid for this facility and program", *item.DestinationID)
			}
		}
	}
	return nil
}
