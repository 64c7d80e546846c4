package prepacking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/application/validation"
	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/prepacking/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service provides application services for prepacking events
type Service struct {
	repo     prepacking.Repository
	pipeline stockledger.Validator
	contexts *ContextBuilder
	workflow *AuthorizationWorkflow
	eventBus shared.EventPublisher
	reasons  Reasons
	metrics  *telemetry.PrepackingMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a new Service
func NewService(
	repo prepacking.Repository,
	pipeline stockledger.Validator,
	contexts *ContextBuilder,
	workflow *AuthorizationWorkflow,
	eventBus shared.EventPublisher,
	reasons Reasons,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		contexts: contexts,
		workflow: workflow,
		eventBus: eventBus,
		reasons:  reasons,
		now:      time.Now,
		logger:   log,
	}
}

// SetPrepackingMetrics sets the metrics collector
func (s *Service) SetPrepackingMetrics(pm *telemetry.PrepackingMetrics) {
	s.metrics = pm
}

// ===================== Query Methods =====================

// GetByID retrieves a prepacking event by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*PrepackingEventResponse, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPrepackingEventResponse(event)
	return &response, nil
}

// List retrieves the prepacking events of a facility, optionally narrowed by program and status
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PrepackingEventResponse, error) {
	if filter.FacilityID == nil || *filter.FacilityID == uuid.Nil {
		return nil, validation.NewValidationError(validation.CodeMandatoryFieldMissing, "facilityId", "facilityId is required")
	}

	domainFilter := prepacking.Filter{
		FacilityID: filter.FacilityID,
		ProgramID:  filter.ProgramID,
	}
	if filter.Status != "" {
		status := prepacking.Status(filter.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %s", shared.ErrInvalidInput, filter.Status)
		}
		domainFilter.Status = &status
	}

	events, err := s.repo.Find(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToPrepackingEventResponses(events), nil
}

// ===================== Command Methods =====================

// Create validates and stores a new DRAFT prepacking event
func (s *Service) Create(ctx context.Context, req CreatePrepackingEventRequest) (_ *PrepackingEventResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "prepacking", "create",
		telemetry.SpanAttrFacilityID, req.FacilityID,
		telemetry.SpanAttrProgramID, req.ProgramID,
		telemetry.SpanAttrLineItems, len(req.LineItems),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	items, err := toLineItems(req.LineItems)
	if err != nil {
		return nil, err
	}

	pc, err := s.contexts.BuildContext(ctx, Draft{
		FacilityID: req.FacilityID,
		ProgramID:  req.ProgramID,
		Author:     prepacking.Author{UserID: req.UserID, UserNames: req.UserNames},
	})
	if err != nil {
		return nil, err
	}
	userNames, err := pc.UserNames()
	if err != nil {
		return nil, err
	}

	event, err := prepacking.NewPrepackingEvent(req.FacilityID, req.ProgramID,
		prepacking.Author{UserID: pc.UserID(), UserNames: userNames}, req.Comments, items)
	if err != nil {
		return nil, err
	}
	event.SupervisoryNodeID = req.SupervisoryNodeID

	if err := s.validate(ctx, s.projectedDebit(event, pc.UserID())); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, event); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPrepackingEventID, event.ID)
	s.publishEvents(ctx, event)
	s.recordEvent(ctx, event)

	logger.FromContextOr(ctx, s.logger).Info("prepacking event submitted",
		zap.String("prepacking_event_id", event.ID.String()),
		zap.Int("line_items", len(event.LineItems)),
	)

	response := ToPrepackingEventResponse(event)
	return &response, nil
}

// Update replaces the line items, comments and supervisory node of a DRAFT event
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdatePrepackingEventRequest) (*PrepackingEventResponse, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := toLineItems(req.LineItems)
	if err != nil {
		return nil, err
	}
	if err := event.Update(req.Comments, req.SupervisoryNodeID, items); err != nil {
		return nil, err
	}

	pc, err := s.contexts.BuildContext(ctx, DraftOf(event))
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, s.projectedDebit(event, pc.UserID())); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, event); err != nil {
		return nil, err
	}

	response := ToPrepackingEventResponse(event)
	return &response, nil
}

// Delete removes a DRAFT prepacking event
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := event.EnsureDeletable(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Authorize processes every line item against the stock ledger and moves the
// event to AUTHORIZED. When processing aborts the event stays DRAFT; line items
// that already moved stock are saved so a retry resumes where it stopped.
func (s *Service) Authorize(ctx context.Context, id uuid.UUID, req StatusChangeRequest) (_ *PrepackingEventResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "prepacking", "authorize",
		telemetry.SpanAttrPrepackingEventID, id,
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(prepacking.StatusAuthorized) {
		return nil, fmt.Errorf("%w: cannot authorize prepacking event in %s status", shared.ErrInvalidState, event.Status)
	}

	pc, err := s.contexts.BuildContext(ctx, DraftOf(event))
	if err != nil {
		return nil, err
	}

	start := s.now()
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationAuthorizePrepacking), func(ctx context.Context) {
		err = s.workflow.Process(ctx, event, pc)
	})
	if err != nil {
		s.recordExternalFailure(ctx, err)
		s.keepProgress(ctx, event)
		return nil, err
	}
	if err := event.Authorize(pc.UserID(), req.Message); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, event); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, event)
	s.recordEvent(ctx, event)
	telemetry.AddEvent(span, "authorized", telemetry.SpanAttrLineItems, len(event.LineItems))

	if s.metrics != nil {
		attrs := []attribute.KeyValue{
			telemetry.AttrFacilityID.String(event.FacilityID.String()),
			telemetry.AttrProgramID.String(event.ProgramID.String()),
		}
		outcomes := make(map[string]int)
		for status, n := range event.CountByStatus() {
			outcomes[string(status)] = n
		}
		s.metrics.RecordLineItems(ctx, outcomes, attrs...)
		s.metrics.RecordAuthorizationDuration(ctx, s.now().Sub(start), attrs...)
	}

	response := ToPrepackingEventResponse(event)
	return &response, nil
}

// Reject moves a DRAFT event to REJECTED without touching stock
func (s *Service) Reject(ctx context.Context, id uuid.UUID, req StatusChangeRequest) (*PrepackingEventResponse, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pc, err := s.contexts.BuildContext(ctx, DraftOf(event))
	if err != nil {
		return nil, err
	}
	if err := event.Reject(pc.UserID(), req.Message); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, event); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, event)
	s.recordEvent(ctx, event)

	response := ToPrepackingEventResponse(event)
	return &response, nil
}

func (s *Service) validate(ctx context.Context, event *stockledger.Event) (err error) {
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationValidateStockEvent), func(ctx context.Context) {
		err = s.pipeline.Validate(ctx, event)
	})
	return err
}

// projectedDebit is the stock event authorization would submit for the bulk side of every line item
func (s *Service) projectedDebit(event *prepacking.PrepackingEvent, userID uuid.UUID) *stockledger.Event {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	lines := make([]stockledger.LineItem, len(event.LineItems))
	for i := range event.LineItems {
		item := &event.LineItems[i]
		reason := s.reasons.Debit
		lines[i] = stockledger.LineItem{
			OrderableID:  item.OrderableID,
			LotID:        item.LotID,
			Quantity:     item.QuantityToPrepack(),
			OccurredDate: today,
			ReasonID:     &reason,
		}
	}
	return &stockledger.Event{
		FacilityID: event.FacilityID,
		ProgramID:  event.ProgramID,
		UserID:     userID,
		LineItems:  lines,
	}
}

// publishEvents publishes domain events from the aggregate
func (s *Service) publishEvents(ctx context.Context, event *prepacking.PrepackingEvent) {
	if s.eventBus == nil {
		return
	}

	for _, e := range event.GetDomainEvents() {
		if err := s.eventBus.Publish(ctx, e); err != nil {
			logger.FromContextOr(ctx, s.logger).Warn("failed to publish domain event",
				zap.String("event_type", e.EventType()),
				zap.Error(err),
			)
		}
	}
	event.ClearDomainEvents()
}

func (s *Service) recordEvent(ctx context.Context, event *prepacking.PrepackingEvent) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordEvent(ctx, event.Status.String(),
		telemetry.AttrFacilityID.String(event.FacilityID.String()),
		telemetry.AttrProgramID.String(event.ProgramID.String()),
	)
}

// keepProgress saves line item statuses of an aborted authorization
func (s *Service) keepProgress(ctx context.Context, event *prepacking.PrepackingEvent) {
	if !event.HasMovedStock() {
		return
	}
	log := logger.FromContextOr(ctx, s.logger)
	if err := event.KeepProgress(); err != nil {
		log.Error("failed to keep prepacking progress",
			zap.String("prepacking_event_id", event.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.repo.Save(ctx, event); err != nil {
		log.Error("failed to save prepacking progress",
			zap.String("prepacking_event_id", event.ID.String()),
			zap.Error(err),
		)
		return
	}
	log.Warn("prepacking authorization aborted, progress saved",
		zap.String("prepacking_event_id", event.ID.String()),
		zap.Any("line_items", event.CountByStatus()),
	)
}

func (s *Service) recordExternalFailure(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	var ext *shared.ExternalServiceError
	if errors.As(err, &ext) {
		s.metrics.RecordExternalFailure(ctx, ext.Service, ext.Operation)
	}
}
