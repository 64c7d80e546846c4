// Package validation runs the ordered business rules a stock event must pass
// before anything is persisted or sent to the stock ledger.
package validation

import (
	"context"
	"fmt"

	"github.com/prepacking/backend/internal/domain/stockledger"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/prepacking/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExtensionResolver returns the implementation currently serving an extension point
type ExtensionResolver interface {
	Resolve(point stockledger.ExtensionPointID) (stockledger.Validator, error)
}

// Step is one position in the pipeline: a fixed validator or an extension point
type Step struct {
	Name      string
	Validator stockledger.Validator
	Point     stockledger.ExtensionPointID
}

// Fixed creates a step backed by a fixed validator
func Fixed(name string, v stockledger.Validator) Step {
	return Step{Name: name, Validator: v}
}

// Extension creates a step whose validator is resolved on every run
func Extension(point stockledger.ExtensionPointID) Step {
	return Step{Name: string(point), Point: point}
}

// Pipeline invokes its steps in declaration order and stops at the first failure
type Pipeline struct {
	steps    []Step
	resolver ExtensionResolver
	logger   *zap.Logger
}

// NewPipeline creates a pipeline; resolver may be nil when no step is an extension point
func NewPipeline(resolver ExtensionResolver, log *zap.Logger, steps ...Step) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		steps:    steps,
		resolver: resolver,
		logger:   log,
	}
}

// Validate runs every step against the event. The first error is returned and
// no later step is invoked.
func (p *Pipeline) Validate(ctx context.Context, event *stockledger.Event) error {
	if event == nil {
		return NewValidationError(CodeMandatoryFieldMissing, "", "stock event is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "validation.pipeline",
		telemetry.SpanAttrFacilityID, event.FacilityID.String(),
		telemetry.SpanAttrProgramID, event.ProgramID.String(),
	)
	defer span.End()

	ctx = withLookupCache(ctx)
	log := logger.FromContextOr(ctx, p.logger)

	for i, step := range p.steps {
		v, err := p.validatorFor(step)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		if err := v.Validate(ctx, event); err != nil {
			log.Debug("stock event rejected",
				zap.Int("position", i),
				zap.String("validator", step.Name),
				zap.Error(err),
			)
			telemetry.SetAttributes(span, "validation.failed_step", step.Name)
			telemetry.RecordError(span, err)
			return err
		}
	}
	return nil
}

// Names returns the step names in execution order
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name
	}
	return names
}

func (p *Pipeline) validatorFor(step Step) (stockledger.Validator, error) {
	if step.Point == "" {
		return step.Validator, nil
	}
	if p.resolver == nil {
		return nil, fmt.Errorf("no extension resolver configured for %s", step.Point)
	}
	v, err := p.resolver.Resolve(step.Point)
	if err != nil {
		return nil, fmt.Errorf("resolve extension %s: %w", step.Point, err)
	}
	return v, nil
}
