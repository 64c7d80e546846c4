package stockledger

import "context"

// Validator is a single business rule over a stock event.
// It returns nil when the event passes.
type Validator interface {
	Validate(ctx context.Context, event *Event) error
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(ctx context.Context, event *Event) error

// Validate calls f(ctx, event)
func (f ValidatorFunc) Validate(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// ExtensionPointID names a validator slot a deployment may override
type ExtensionPointID string

const (
	AdjustmentReasonPointID ExtensionPointID = "AdjustmentReasonValidator"
	FreeTextPointID         ExtensionPointID = "FreeTextValidator"
	UnpackKitPointID        ExtensionPointID = "UnpackKitValidator"
)
