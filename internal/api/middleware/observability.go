package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests
func ObservabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		observability.SetSpanAttributes(span,
			attribute.String("http.method", r.Method),
			attribute.String("http.user_agent", r.UserAgent()),
		)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		// r.Pattern is only filled in on the request the mux sees
		req := r.WithContext(ctx)
		next.ServeHTTP(rw, req)

		// Use route pattern instead of raw path to avoid high cardinality
		route := req.Pattern
		if route == "" {
			route = r.URL.Path
		}
		span.SetName(route)

		observability.RecordRequestMetric(ctx, r.Method, route, rw.statusCode, time.Since(start))
		observability.SetSpanAttributes(span,
			attribute.String("http.route", route),
			attribute.Int("http.status_code", rw.statusCode),
		)
	})
}
