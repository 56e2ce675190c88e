package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AssignmentMetrics holds custom metrics for nested attribute assignment
type AssignmentMetrics struct {
	assignDuration   metric.Float64Histogram
	assignCounter    metric.Int64Counter
	errorCounter     metric.Int64Counter
	payloadDecisions metric.Int64Counter
	lookupCounter    metric.Int64Counter
	snapshotSize     metric.Int64Histogram
	savedRecords     metric.Int64Counter
}

// InitAssignmentMetrics initializes assignment-specific metrics
func InitAssignmentMetrics() (*AssignmentMetrics, error) {
	meter := otel.Meter("record-i18n")

	assignDuration, err := meter.Float64Histogram(
		"nested.assign.duration",
		metric.WithDescription("Duration of nested attribute assignment calls in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assign duration histogram: %w", err)
	}

	assignCounter, err := meter.Int64Counter(
		"nested.assignments.total",
		metric.WithDescription("Total number of nested attribute assignment calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"nested.errors.total",
		metric.WithDescription("Total number of failed nested attribute assignments"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	payloadDecisions, err := meter.Int64Counter(
		"nested.payload.decisions.total",
		metric.WithDescription("Routing decisions applied to nested attribute payloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payload decision counter: %w", err)
	}

	lookupCounter, err := meter.Int64Counter(
		"nested.lookups.total",
		metric.WithDescription("Existing-relation lookups by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup counter: %w", err)
	}

	snapshotSize, err := meter.Int64Histogram(
		"nested.snapshot.size",
		metric.WithDescription("Number of related rows loaded per candidate snapshot"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot size histogram: %w", err)
	}

	savedRecords, err := meter.Int64Counter(
		"store.saved_records.total",
		metric.WithDescription("Records written by save graph walks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create saved records counter: %w", err)
	}

	return &AssignmentMetrics{
		assignDuration:   assignDuration,
		assignCounter:    assignCounter,
		errorCounter:     errorCounter,
		payloadDecisions: payloadDecisions,
		lookupCounter:    lookupCounter,
		snapshotSize:     snapshotSize,
		savedRecords:     savedRecords,
	}, nil
}

// RecordAssignment records one assignment call with its duration and outcome
func (m *AssignmentMetrics) RecordAssignment(ctx context.Context, duration time.Duration, hasErrors bool, association string) {
	attrs := []attribute.KeyValue{
		attribute.String("association", association),
		attribute.Bool("has_errors", hasErrors),
	}

	m.assignDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.assignCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("association", association),
		))
	}
}

// RecordPayloadDecision records the routing decision applied to one payload
func (m *AssignmentMetrics) RecordPayloadDecision(ctx context.Context, association, decision string) {
	m.payloadDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("association", association),
		attribute.String("decision", decision),
	))
}

// RecordLookup records one existing-relation lookup and where it was served from
func (m *AssignmentMetrics) RecordLookup(ctx context.Context, association, source string) {
	m.lookupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("association", association),
		attribute.String("source", source),
	))
}

// RecordSnapshotSize records how many related rows a candidate snapshot loaded
func (m *AssignmentMetrics) RecordSnapshotSize(ctx context.Context, association string, size int64) {
	m.snapshotSize.Record(ctx, size, metric.WithAttributes(
		attribute.String("association", association),
	))
}

// RecordSavedRecords counts rows written while saving a record graph
func (m *AssignmentMetrics) RecordSavedRecords(ctx context.Context, count int64, recordType string) {
	if count <= 0 {
		return
	}
	m.savedRecords.Add(ctx, count, metric.WithAttributes(
		attribute.String("record_type", recordType),
	))
}

// InitMetrics initializes all custom metrics and returns the AssignmentMetrics instance
func InitMetrics(logger *slog.Logger) (*AssignmentMetrics, error) {
	metrics, err := InitAssignmentMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assignment metrics: %w", err)
	}

	logger.Info("custom assignment metrics initialized")
	return metrics, nil
}

type assignmentMetricsContextKey struct{}

// ContextWithAssignmentMetrics stores assignment metrics in the provided context.
func ContextWithAssignmentMetrics(ctx context.Context, metrics *AssignmentMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, assignmentMetricsContextKey{}, metrics)
}

// AssignmentMetricsFromContext retrieves assignment metrics from the context.
func AssignmentMetricsFromContext(ctx context.Context) *AssignmentMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(assignmentMetricsContextKey{}).(*AssignmentMetrics)
	return metrics
}
