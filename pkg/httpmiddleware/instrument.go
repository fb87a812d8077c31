package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument records a server span plus request count and duration metrics
// for every request. Route labels come from chi: a RouteContext is seeded
// into the request context so the inner mux fills in the matched pattern,
// keeping metric cardinality bounded even for parameterised paths.
func Instrument(service string, tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	tracer := tp.Tracer(service)
	meter := mp.Meter(service)

	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests handled"),
	)
	if err != nil {
		panic(err)
	}
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rctx := chi.NewRouteContext()
			ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r.WithContext(ctx))
			if sr.status == 0 {
				sr.status = http.StatusOK
			}

			route := rctx.RoutePattern()
			if route == "" {
				route = r.URL.Path
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", sr.status),
			}
			span.SetName(r.Method + " " + route)
			span.SetAttributes(attrs...)
			if sr.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sr.status))
			}

			opt := metric.WithAttributes(attrs...)
			requests.Add(ctx, 1, opt)
			duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), opt)
		})
	}
}
