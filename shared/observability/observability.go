package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SetupTracing installs a global tracer provider that writes spans to w.
// The returned func flushes and stops the provider.
func SetupTracing(serviceName string, w io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// Metrics holds the instruments recorded by the inbox pipeline.
type Metrics struct {
	WebhookEvents     metric.Int64Counter
	ProfileFetches    metric.Int64Counter
	Notifications     metric.Int64Counter
	ActiveConnections metric.Int64UpDownCounter
}

// NewMetrics registers the instruments on a Prometheus registry and returns
// the handler that serves it.
func NewMetrics(reg *prometheus.Registry) (*Metrics, http.Handler, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))

	m, err := newMetrics(mp.Meter("helpdesk-inbox"))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.WebhookEvents, err = meter.Int64Counter("inbox_webhook_events_total",
		metric.WithDescription("Messaging events received, by outcome")); err != nil {
		return nil, err
	}
	if m.ProfileFetches, err = meter.Int64Counter("inbox_profile_fetches_total",
		metric.WithDescription("Graph API profile lookups, by outcome")); err != nil {
		return nil, err
	}
	if m.Notifications, err = meter.Int64Counter("inbox_notifications_total",
		metric.WithDescription("Realtime events pushed to operator groups")); err != nil {
		return nil, err
	}
	if m.ActiveConnections, err = meter.Int64UpDownCounter("inbox_ws_connections",
		metric.WithDescription("Open operator websocket connections")); err != nil {
		return nil, err
	}
	return &m, nil
}
