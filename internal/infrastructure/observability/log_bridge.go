package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// LogBridgeHook mirrors zerolog records to the OpenTelemetry log provider
// installed by Setup. Only the message, level and trace context travel.
type LogBridgeHook struct {
	logger otellog.Logger
}

// NewLogBridgeHook creates a hook bound to the global logger provider
func NewLogBridgeHook() LogBridgeHook {
	return LogBridgeHook{logger: global.GetLoggerProvider().Logger(instrumentationName)}
}

// Run implements zerolog.Hook
func (h LogBridgeHook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetBody(otellog.StringValue(message))
	record.SetSeverity(severityOf(level))
	record.SetSeverityText(level.String())
	h.logger.Emit(ctx, record)
}

func severityOf(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel:
		return otellog.SeverityFatal
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4
	}
	return otellog.SeverityUndefined
}
