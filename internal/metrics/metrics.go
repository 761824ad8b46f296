package metrics

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels a finished façade request
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeEmptyInput Outcome = "empty_input"
	OutcomeError      Outcome = "error"
)

const (
	RequestsMetricName = "medassist.facade.requests"
	UpstreamMetricName = "medassist.upstream.duration"
)

var (
	initOnce         sync.Once
	initErr          error
	requestCounter   metric.Int64Counter
	upstreamDuration metric.Float64Histogram
)

// Init creates the OTel instruments on the global meter provider.
// It should be called after observability.InitMeter; later calls are no-ops.
func Init() error {
	initOnce.Do(func() {
		meter := otel.Meter("medassist/metrics")

		requestCounter, initErr = meter.Int64Counter(
			RequestsMetricName,
			metric.WithDescription("Façade operations by operation and outcome"),
			metric.WithUnit("{requests}"),
		)
		if initErr != nil {
			log.Printf("metrics: failed to create request counter: %v", initErr)
			return
		}

		upstreamDuration, initErr = meter.Float64Histogram(
			UpstreamMetricName,
			metric.WithDescription("Latency of outbound calls to openFDA, PubMed and the generator"),
			metric.WithUnit("s"),
		)
		if initErr != nil {
			log.Printf("metrics: failed to create upstream histogram: %v", initErr)
		}
	})
	return initErr
}

// RecordRequest counts one façade operation. Instruments are created lazily when Init was not called.
func RecordRequest(ctx context.Context, operation string, outcome Outcome) {
	if requestCounter == nil {
		if err := Init(); err != nil || requestCounter == nil {
			return
		}
	}
	requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", string(outcome)),
	))
}

// RecordUpstream records the latency of one outbound call. status is the HTTP status, or 0 when no response arrived.
func RecordUpstream(ctx context.Context, upstream string, status int, elapsed time.Duration) {
	if upstreamDuration == nil {
		if err := Init(); err != nil || upstreamDuration == nil {
			return
		}
	}
	upstreamDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("status", strconv.Itoa(status)),
	))
}

// ResetForTesting resets the initialization state for testing purposes.
// This should only be used in tests.
func ResetForTesting() {
	initOnce = sync.Once{}
	initErr = nil
	requestCounter = nil
	upstreamDuration = nil
}
