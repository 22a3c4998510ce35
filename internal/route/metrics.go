package route

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/routeboard/routeboard/internal/route"

// Metrics holds the aggregation instruments. A nil *Metrics records nothing.
type Metrics struct {
	aggregations metric.Int64Counter
	records      metric.Int64Counter
	fetchErrors  metric.Int64Counter
}

// NewMetrics creates the aggregation instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	aggregations, err := meter.Int64Counter(
		"route.aggregation.total",
		metric.WithDescription("Number of route aggregations by result source"),
		metric.WithUnit("{aggregation}"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"route.fetch.records",
		metric.WithDescription("Raw records returned by mode fetchers"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter(
		"route.fetch.errors",
		metric.WithDescription("Mode fetches that returned an error or panicked"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		aggregations: aggregations,
		records:      records,
		fetchErrors:  fetchErrors,
	}, nil
}

func (m *Metrics) recordAggregation(ctx context.Context, source Source) {
	if m == nil {
		return
	}
	m.aggregations.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(source))))
}

func (m *Metrics) recordFetch(ctx context.Context, mode Mode, count int, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", string(mode)))
	m.records.Add(ctx, int64(count), attrs)
	if failed {
		m.fetchErrors.Add(ctx, 1, attrs)
	}
}
