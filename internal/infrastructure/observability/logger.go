package observability

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger initializes the global zerolog logger. LOG_LEVEL overrides the
// default info level.
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(parseLevel(os.Getenv("LOG_LEVEL")))

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Str("service", serviceName).
			Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Str("env", env).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

type logFieldsKey struct{}

// WithLogField returns a context whose loggers carry key=value
func WithLogField(ctx context.Context, key, value string) context.Context {
	parent, _ := ctx.Value(logFieldsKey{}).([][2]string)
	fields := make([][2]string, len(parent), len(parent)+1)
	copy(fields, parent)
	return context.WithValue(ctx, logFieldsKey{}, append(fields, [2]string{key, value}))
}

// LoggerFromContext returns the global logger enriched with the trace ids and
// fields attached to ctx
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	lc := log.With()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		lc = lc.
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}
	if fields, ok := ctx.Value(logFieldsKey{}).([][2]string); ok {
		for _, f := range fields {
			lc = lc.Str(f[0], f[1])
		}
	}

	logger := lc.Logger()
	return &logger
}

// GetLogger returns the global logger
func GetLogger() *zerolog.Logger {
	return &log.Logger
}

// EnableLogExport attaches the OpenTelemetry log bridge to the global logger
func EnableLogExport() {
	log.Logger = log.Logger.Hook(NewLogBridgeHook())
}
