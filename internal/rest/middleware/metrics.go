package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lotflow/lotflow/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics returns middleware that counts requests and records their
// duration. Instruments are nil until SetupOtel runs, so every record is
// guarded.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			ctx := r.Context()
			otel.Add(ctx, otel.RequestTotal, 1)

			pattern := r.URL.Path
			if routeCtx := chi.RouteContext(ctx); routeCtx != nil && routeCtx.RoutePattern() != "" {
				pattern = routeCtx.RoutePattern()
			}
			uriAttrs := metric.WithAttributes(
				attribute.String("uri", pattern),
				attribute.String("method", r.Method),
			)
			if otel.RequestUriTotal != nil {
				otel.RequestUriTotal.Add(ctx, 1, uriAttrs)
			}
			if otel.RequestDuration != nil {
				otel.RequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), uriAttrs)
			}
		})
	}
}
