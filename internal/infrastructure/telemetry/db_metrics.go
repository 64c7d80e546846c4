package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const metricsStartKey = "prepacking_metrics:start"

// DBMetrics records query counts and latency plus connection pool usage
type DBMetrics struct {
	queryTotal      *Counter
	slowQueryTotal  *Counter
	queryDuration   *Histogram
	poolConnections *Gauge

	slowQueryThresh time.Duration
	logger          *zap.Logger
	sqlDB           *sql.DB
	stopCh          chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewDBMetrics creates the database instruments; a zero threshold defaults to 200ms
func NewDBMetrics(meter metric.Meter, slowQueryThresh time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowQueryThresh <= 0 {
		slowQueryThresh = 200 * time.Millisecond
	}
	m := &DBMetrics{slowQueryThresh: slowQueryThresh, logger: logger, stopCh: make(chan struct{})}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Database queries slower than the threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.poolConnections, err = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	return m, nil
}

// Register installs the query callbacks on db
func (m *DBMetrics) Register(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(metricsStartKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		start, ok := tx.InstanceGet(metricsStartKey)
		if !ok {
			return
		}
		m.RecordQuery(tx.Statement.Context, operationOf(tx), tx.Statement.Table, time.Since(start.(time.Time)))
	}
	return registerAround(db, "prepacking_metrics", before, after)
}

// RecordQuery records one finished query
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{AttrDBOperation.String(operation), AttrDBTable.String(table)}
	m.queryTotal.Inc(ctx, attrs...)
	m.queryDuration.RecordDuration(ctx, d, attrs...)
	if d > m.slowQueryThresh {
		m.slowQueryTotal.Inc(ctx, attrs...)
	}
}

// StartPoolStatsCollection samples the pool of sqlDB every interval until Stop
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context, sqlDB *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	m.sqlDB = sqlDB
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			m.collectPoolStats(ctx)
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))
}

// Stop ends pool sampling and waits for the collector to exit
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func operationOf(tx *gorm.DB) string {
	fields := strings.Fields(tx.Statement.SQL.String())
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
