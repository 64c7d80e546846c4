package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PrepackingMetrics records the lifecycle of prepacking events and the
// outcome of every authorized line item.
type PrepackingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	eventsTotal           *Counter
	lineItemsTotal        *Counter
	externalFailuresTotal *Counter
	authorizationDuration *Histogram
	draftEvents           *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	draftProvider DraftCountProvider
}

// DraftCountProvider reports how many prepacking events are waiting for a decision
type DraftCountProvider interface {
	CountDrafts(ctx context.Context) (int64, error)
}

// PrepackingMetricsConfig holds configuration for prepacking metrics.
type PrepackingMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	DraftProvider DraftCountProvider
}

// Attribute keys used by prepacking metrics
var (
	AttrEventStatus    = attribute.Key("prepacking.status")
	AttrLineItemStatus = attribute.Key("prepacking.line_item_status")
	AttrFacilityID     = attribute.Key("facility_id")
	AttrProgramID      = attribute.Key("program_id")
	AttrService        = attribute.Key("external.service")
	AttrOperation      = attribute.Key("external.operation")
)

// AuthorizationDurationBuckets cover authorizations of a handful to many line items (seconds).
var AuthorizationDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewPrepackingMetrics creates a new PrepackingMetrics instance.
func NewPrepackingMetrics(cfg PrepackingMetricsConfig) (*PrepackingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PrepackingMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		draftProvider: cfg.DraftProvider,
	}

	var err error
	pm.eventsTotal, err = NewCounter(
		cfg.Meter,
		"prepacking_events_total",
		"Prepacking events by resulting status",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	pm.lineItemsTotal, err = NewCounter(
		cfg.Meter,
		"prepacking_line_items_total",
		"Authorized prepacking line items by outcome",
		"{line_items}",
	)
	if err != nil {
		return nil, err
	}

	pm.externalFailuresTotal, err = NewCounter(
		cfg.Meter,
		"prepacking_external_failures_total",
		"Calls to reference data or the stock ledger that aborted an operation",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	pm.authorizationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "prepacking_authorization_duration_seconds",
		Description: "Time spent authorizing a prepacking event",
		Unit:        "s",
		Boundaries:  AuthorizationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	pm.draftEvents, err = NewGauge(
		cfg.Meter,
		"prepacking_draft_events",
		"Prepacking events waiting for authorization or rejection",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordEvent counts an event reaching the given status
func (pm *PrepackingMetrics) RecordEvent(ctx context.Context, status string, attrs ...attribute.KeyValue) {
	pm.eventsTotal.Inc(ctx, append(attrs, AttrEventStatus.String(status))...)
}

// RecordLineItems counts line item outcomes of one authorization
func (pm *PrepackingMetrics) RecordLineItems(ctx context.Context, outcomes map[string]int, attrs ...attribute.KeyValue) {
	for status, n := range outcomes {
		if n == 0 {
			continue
		}
		pm.lineItemsTotal.Add(ctx, int64(n), append(attrs, AttrLineItemStatus.String(status))...)
	}
}

// RecordExternalFailure counts an aborted call to an external service
func (pm *PrepackingMetrics) RecordExternalFailure(ctx context.Context, service, operation string) {
	pm.externalFailuresTotal.Inc(ctx, AttrService.String(service), AttrOperation.String(operation))
}

// RecordAuthorizationDuration records how long one authorization took
func (pm *PrepackingMetrics) RecordAuthorizationDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	pm.authorizationDuration.RecordDuration(ctx, d, attrs...)
}

// StartPeriodicCollection samples the draft backlog every interval until Stop is called.
// It is a no-op without a DraftCountProvider and only starts once.
func (pm *PrepackingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if pm.draftProvider == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	pm.collectOnce.Do(func() {
		go pm.runPeriodicCollection(ctx, interval)
	})
}

func (pm *PrepackingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.collectDrafts(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-pm.stopChan:
			return
		case <-ticker.C:
			pm.collectDrafts(ctx)
		}
	}
}

func (pm *PrepackingMetrics) collectDrafts(ctx context.Context) {
	count, err := pm.draftProvider.CountDrafts(ctx)
	if err != nil {
		pm.logger.Warn("Failed to collect draft prepacking events", zap.Error(err))
		return
	}
	pm.draftEvents.Record(ctx, count)
}

// Stop stops the periodic collection.
func (pm *PrepackingMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPrepackingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
