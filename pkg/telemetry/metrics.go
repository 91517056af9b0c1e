package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter for easier use
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new counter metric
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Add increments the counter by the given value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Metrics is the set of service counters
type Metrics struct {
	EventsCreated   *Counter
	PeopleCreated   *Counter
	EventsRemoved   *Counter
	PeopleRemoved   *Counter
	AllocationRetry *Counter
}

// NewMetrics registers the service counters on the global meter
func NewMetrics() (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		dst  **Counter
		opts MetricOpts
	}{
		{&m.EventsCreated, MetricOpts{Name: "jellifit_events_created_total", Description: "Events created", Unit: "1"}},
		{&m.PeopleCreated, MetricOpts{Name: "jellifit_people_created_total", Description: "People created", Unit: "1"}},
		{&m.EventsRemoved, MetricOpts{Name: "jellifit_events_removed_total", Description: "Events removed by cleanup", Unit: "1"}},
		{&m.PeopleRemoved, MetricOpts{Name: "jellifit_people_removed_total", Description: "People removed by cleanup", Unit: "1"}},
		{&m.AllocationRetry, MetricOpts{Name: "jellifit_id_allocation_retries_total", Description: "Identifier probes that hit an existing event", Unit: "1"}},
	}

	for _, c := range counters {
		counter, err := NewCounter(c.opts)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// Common attribute keys
const (
	AttrEventID   = "event.id"
	AttrOperation = "operation"
)

// EventIDAttr tags a span or metric with an event id
func EventIDAttr(eventID string) attribute.KeyValue {
	return attribute.String(AttrEventID, eventID)
}

// OperationAttr tags a span or metric with the orchestrator operation
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}
