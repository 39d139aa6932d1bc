package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"petrodash/internal/config"
)

// MeterName is the instrumentation scope for every petrodash instrument
const MeterName = "petrodash"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout" or "none"
	MetricExporter string // "prometheus" or "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns the configuration used by the server
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	traces := "none"
	if env == "development" {
		traces = "stdout"
	}

	return &OTelConfig{
		ServiceName:    config.AppName,
		ServiceVersion: config.AppVersion,
		Environment:    env,
		TraceExporter:  traces,
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics and installs them globally
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "none", "":
		providers.Tracer = otel.Tracer(MeterName)
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "none", "":
		providers.Meter = otel.Meter(MeterName)
		return nil
	case "prometheus":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.PrometheusHTTP = promhttp.Handler()
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)
	return nil
}

// BusinessMetrics are the dashboard's application-level instruments.
// A nil *BusinessMetrics records nothing.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	UpstreamFetchesTotal  metric.Int64Counter
	UpstreamFetchDuration metric.Float64Histogram

	AlignmentsTotal    metric.Int64Counter
	AxisPositions      metric.Int64Histogram
	ParseFailuresTotal metric.Int64Counter
	StaleResponses     metric.Int64Counter

	PreferenceOpsTotal metric.Int64Counter
	RefreshRunsTotal   metric.Int64Counter
	WebSocketClients   metric.Int64UpDownCounter
}

// CreateBusinessMetrics registers the dashboard instruments on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m    BusinessMetrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.UpstreamFetchesTotal = counter("upstream_fetches_total", "Market-data fetches by endpoint and outcome")
	m.AlignmentsTotal = counter("series_alignments_total", "Frames aligned per view")
	m.ParseFailuresTotal = counter("series_parse_failures_total", "Series entries dropped for malformed date keys")
	m.StaleResponses = counter("fetch_stale_responses_total", "Fetch results discarded because a newer request superseded them")
	m.PreferenceOpsTotal = counter("preference_operations_total", "Preference store reads and writes by outcome")
	m.RefreshRunsTotal = counter("refresh_runs_total", "Scheduled view refreshes by outcome")

	var err error
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.UpstreamFetchDuration, err = meter.Float64Histogram("upstream_fetch_duration_seconds",
		metric.WithDescription("Market-data fetch latency in seconds"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.AxisPositions, err = meter.Int64Histogram("series_axis_positions",
		metric.WithDescription("Axis length of aligned frames"))
	errs = append(errs, err)
	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"))
	errs = append(errs, err)
	m.WebSocketClients, err = meter.Int64UpDownCounter("websocket_clients",
		metric.WithDescription("Connected websocket clients"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "failure")
	}
	return attribute.String("outcome", "success")
}

// RecordHTTPRequest records one served request
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFetch records an upstream fetch
func (m *BusinessMetrics) RecordFetch(ctx context.Context, endpoint string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint), outcome(err))
	m.UpstreamFetchesTotal.Add(ctx, 1, attrs)
	m.UpstreamFetchDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		RecordError(ctx, err)
	}
}

// RecordAlignment records a computed frame
func (m *BusinessMetrics) RecordAlignment(ctx context.Context, view string, positions, dropped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("view", view))
	m.AlignmentsTotal.Add(ctx, 1, attrs)
	m.AxisPositions.Record(ctx, int64(positions), attrs)
	if dropped > 0 {
		m.ParseFailuresTotal.Add(ctx, int64(dropped), attrs)
	}
}

// RecordStale records a discarded out-of-order fetch result
func (m *BusinessMetrics) RecordStale(ctx context.Context, view string) {
	if m == nil {
		return
	}
	m.StaleResponses.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
}

// RecordPreferenceOp records a preference store call
func (m *BusinessMetrics) RecordPreferenceOp(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	m.PreferenceOpsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), outcome(err)))
}

// RecordRefresh records one scheduled refresh of a view
func (m *BusinessMetrics) RecordRefresh(ctx context.Context, view string, err error) {
	if m == nil {
		return
	}
	m.RefreshRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view), outcome(err)))
}

// RecordWebSocketClients adjusts the connected client gauge
func (m *BusinessMetrics) RecordWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}
	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks the current span as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
