// internal/common/observability/observability.go
package observability

import (
	"context"
	"time"

	"jelita/internal/common/logger"
	"jelita/internal/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	transitions    otelmetric.Int64Counter
	effectDuration otelmetric.Float64Histogram
}

// New wires the otel meter (exported through the Prometheus registry) and the
// tracer. Spans are exported to Jaeger only when an endpoint is configured.
func New(serviceName, jaegerEndpoint string, sampleRatio float64, log logger.Logger) *Observability {
	o := &Observability{}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	}
	if jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			log.Warn("jaeger exporter unavailable, spans stay local", map[string]interface{}{
				"endpoint": jaegerEndpoint,
				"error":    err.Error(),
			})
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
		}
	}
	o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer("jelita/" + serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(o.meterProvider)

	meter := o.meterProvider.Meter(serviceName)
	o.transitions, _ = meter.Int64Counter(
		"workflow.transitions",
		otelmetric.WithDescription("Workflow status transitions applied"),
	)
	o.effectDuration, _ = meter.Float64Histogram(
		"workflow.side_effect.duration",
		otelmetric.WithDescription("Cross-service side effect duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// Tracer falls back to the global provider so a zero Observability still traces.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("jelita")
	}
	return o.tracer
}

// RecordTransition counts a status change on both the Prometheus and otel meters.
func (o *Observability) RecordTransition(ctx context.Context, entity, status string) {
	metrics.StatusTransitions.WithLabelValues(entity, status).Inc()
	if o != nil && o.transitions != nil {
		o.transitions.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordSideEffect(ctx context.Context, name, outcome string, d time.Duration) {
	if o != nil && o.effectDuration != nil {
		o.effectDuration.Record(ctx, float64(d.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("name", name),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
