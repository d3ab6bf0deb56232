// Package observe provides application-wide observability primitives for
// Edna: OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Edna metrics.
const meterName = "github.com/MrWong99/edna"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// ASRDuration tracks speech-to-text transcription latency.
	ASRDuration metric.Float64Histogram

	// LLMDuration tracks reply generation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks per-chunk synthesis-and-playback latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts finalized utterances handed to recognition.
	Utterances metric.Int64Counter

	// NoCommands counts utterances rejected before reaching the reasoner.
	// Use with attribute: attribute.String("reason", ...)
	NoCommands metric.Int64Counter

	// GatedFrames counts microphone frames suppressed by the mic gate.
	GatedFrames metric.Int64Counter

	// WorkerRestarts counts synthesis worker respawns after a crash.
	WorkerRestarts metric.Int64Counter

	// StateTransitions counts conversation state changes. Use with
	// attributes: attribute.String("from", ...), attribute.String("to", ...),
	// attribute.String("event", ...)
	StateTransitions metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ASRDuration, err = m.Float64Histogram("edna.asr.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("edna.llm.duration",
		metric.WithDescription("Latency of reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("edna.tts.duration",
		metric.WithDescription("Latency of per-chunk speech synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("edna.utterances",
		metric.WithDescription("Total finalized utterances handed to recognition."),
	); err != nil {
		return nil, err
	}
	if met.NoCommands, err = m.Int64Counter("edna.no_commands",
		metric.WithDescription("Total utterances rejected before reasoning, by reason."),
	); err != nil {
		return nil, err
	}
	if met.GatedFrames, err = m.Int64Counter("edna.gated_frames",
		metric.WithDescription("Total microphone frames suppressed by the mic gate."),
	); err != nil {
		return nil, err
	}
	if met.WorkerRestarts, err = m.Int64Counter("edna.worker_restarts",
		metric.WithDescription("Total synthesis worker respawns after a crash."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("edna.state_transitions",
		metric.WithDescription("Total conversation state transitions by from, to, and event."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordNoCommand records an utterance rejected before reasoning, tagged
// with the rejection reason.
func (m *Metrics) RecordNoCommand(ctx context.Context, reason string) {
	m.NoCommands.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}

// RecordTransition records one conversation state transition.
func (m *Metrics) RecordTransition(ctx context.Context, from, to, event string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("from", from), Attr("to", to), Attr("event", event)),
	)
}

// RecordStage records one stage latency sample measured from start until
// now.
func RecordStage(ctx context.Context, h metric.Float64Histogram, start time.Time) {
	h.Record(ctx, time.Since(start).Seconds())
}
