package observability

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/estatehub/marketplace/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount         metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	DBQueryDuration      metric.Float64Histogram
	CacheHitCount        metric.Int64Counter
	CacheMissCount       metric.Int64Counter
	DomainRejectionCount metric.Int64Counter
	EventDropCount       metric.Int64Counter
}

var current atomic.Pointer[Metrics]

// Setup initializes OpenTelemetry traces, metrics and logs
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace provider
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up metric exporter and provider
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return nil, err
	}

	// Set up log exporter; zerolog records are mirrored through LogBridgeHook
	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	// Shutdown function
	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
			loggerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics against the global meter
// provider and makes them the package default
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dbQueryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	domainRejectionCount, err := meter.Int64Counter(
		"marketplace.rejection.count",
		metric.WithDescription("Number of engine operations refused with a domain error"),
	)
	if err != nil {
		return nil, err
	}

	eventDropCount, err := meter.Int64Counter(
		"marketplace.event.dropped.count",
		metric.WithDescription("Number of events a slow in-process subscriber never received"),
	)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		RequestCount:         requestCount,
		RequestDuration:      requestDuration,
		DBQueryDuration:      dbQueryDuration,
		CacheHitCount:        cacheHitCount,
		CacheMissCount:       cacheMissCount,
		DomainRejectionCount: domainRejectionCount,
		EventDropCount:       eventDropCount,
	}
	current.Store(m)
	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	m := current.Load()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	m.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDBMetric records a database operation metric
func RecordDBMetric(ctx context.Context, operation string, duration time.Duration) {
	m := current.Load()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
	}
	m.DBQueryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, cache string) {
	if m := current.Load(); m != nil {
		m.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
	}
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, cache string) {
	if m := current.Load(); m != nil {
		m.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
	}
}

// RecordDomainRejection counts an operation refused with a typed error
func RecordDomainRejection(ctx context.Context, operation, errorType string) {
	if m := current.Load(); m != nil {
		m.DomainRejectionCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("marketplace.operation", operation),
			attribute.String("error.type", errorType),
		))
	}
}

// RecordEventDropped counts an event a full subscriber channel missed
func RecordEventDropped(ctx context.Context, channel string) {
	if m := current.Load(); m != nil {
		m.EventDropCount.Add(ctx, 1, metric.WithAttributes(attribute.String("marketplace.channel", channel)))
	}
}
