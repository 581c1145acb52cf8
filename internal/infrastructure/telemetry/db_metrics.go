package telemetry

import (
	"context"
	"database/sql"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// PoolStatsFunc reports connection pool statistics, usually (*sql.DB).Stats
type PoolStatsFunc func() sql.DBStats

// DBMetrics exports pool gauges and per-operation query latency
type DBMetrics struct {
	queryDuration *Histogram
	queryErrors   *Counter
	registration  metric.Registration
}

// NewDBMetrics registers pool gauges observed from stats on every collection
func NewDBMetrics(meter metric.Meter, stats PoolStatsFunc) (*DBMetrics, error) {
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	queryErrors, err := NewCounter(meter, "db_query_errors_total", "Database queries that returned an error", "{query}")
	if err != nil {
		return nil, err
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waitCount, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waitCount, s.WaitCount)
		return nil
	}, connections, maxOpen, waitCount)
	if err != nil {
		return nil, err
	}

	return &DBMetrics{queryDuration: queryDuration, queryErrors: queryErrors, registration: registration}, nil
}

// Register installs the query latency callbacks on db
func (m *DBMetrics) Register(db *gorm.DB) error {
	return registerAround(db, "otel_metrics", markQueryStart, m.afterQuery)
}

// Unregister stops observing the pool
func (m *DBMetrics) Unregister() error {
	return m.registration.Unregister()
}

func (m *DBMetrics) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	elapsed, ok := queryElapsed(ctx)
	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operationOf(db.Statement.SQL.String())),
		attribute.String("db.sql.table", db.Statement.Table),
	}
	m.queryDuration.RecordDuration(ctx, elapsed, attrs...)
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		m.queryErrors.Inc(ctx, attrs...)
	}
}

// operationOf returns the leading SQL verb
func operationOf(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	default:
		return "OTHER"
	}
}
