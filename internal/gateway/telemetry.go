package gateway

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-mem/open-mem/internal/telemetry"
)

const instrumentationName = "github.com/open-mem/open-mem/internal/gateway"

// gatewayMetrics holds lazily-initialized OTel instruments for every
// gateway call, grounded 1:1 on haiku.go's aiMetrics/initAIMetrics.
type gatewayMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
	calls        metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *gatewayMetrics
)

func initGatewayMetricsOnce() {
	metricsOnce.Do(func() {
		m := telemetry.Meter(instrumentationName)
		metrics = &gatewayMetrics{}
		metrics.inputTokens, _ = m.Int64Counter("open_mem.ai.input_tokens",
			metric.WithDescription("Anthropic API input tokens consumed"), metric.WithUnit("{token}"))
		metrics.outputTokens, _ = m.Int64Counter("open_mem.ai.output_tokens",
			metric.WithDescription("Anthropic API output tokens generated"), metric.WithUnit("{token}"))
		metrics.duration, _ = m.Float64Histogram("open_mem.ai.request.duration",
			metric.WithDescription("Anthropic API request duration in milliseconds"), metric.WithUnit("ms"))
		metrics.calls, _ = m.Int64Counter("open_mem.ai.calls",
			metric.WithDescription("Anthropic API calls by operation and outcome"))
	})
}

func gatewayMetricsInstance() *gatewayMetrics {
	initGatewayMetricsOnce()
	return metrics
}

func tracer() trace.Tracer {
	return telemetry.Tracer(instrumentationName)
}

// instrumentedCall wraps a single Anthropic call with a span and records
// token usage/latency/outcome metrics, the same sequence as haiku.go's
// callWithRetry body (minus the retry loop, which lives in retry.go).
func (g *Gateway) instrumentedCall(ctx context.Context, operation string, fn func(ctx context.Context) (inputTokens, outputTokens int64, err error)) error {
	ctx, span := tracer().Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(
		attribute.String("open_mem.ai.model", string(g.model)),
		attribute.String("open_mem.ai.operation", operation),
	)

	t0 := time.Now()
	inputTokens, outputTokens, err := fn(ctx)
	ms := float64(time.Since(t0).Milliseconds())

	modelAttr := attribute.String("open_mem.ai.model", string(g.model))
	opAttr := attribute.String("open_mem.ai.operation", operation)
	if g.metrics != nil {
		if err == nil {
			g.metrics.inputTokens.Add(ctx, inputTokens, metric.WithAttributes(modelAttr, opAttr))
			g.metrics.outputTokens.Add(ctx, outputTokens, metric.WithAttributes(modelAttr, opAttr))
			g.metrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr, opAttr))
			g.metrics.calls.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.String("outcome", "ok")))
		} else {
			g.metrics.calls.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.String("outcome", "error")))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int64("open_mem.ai.input_tokens", inputTokens),
			attribute.Int64("open_mem.ai.output_tokens", outputTokens),
		)
	}
	return err
}
