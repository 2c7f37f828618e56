// Package metrics emits the per-stage METRIC log line that downstream log
// parsing depends on, and layers genuine OpenTelemetry instruments on top of
// the same stage completions for a scrapeable metrics backend.
package metrics

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/talkloop/voiceagent/pkg/logging"
)

const meterName = "github.com/talkloop/voiceagent"

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Emitter writes the METRIC: <json> line for each pipeline stage and records
// matching OpenTelemetry histograms/counters. The JSON line is the contract
// tested by callers; the OTel instruments are additive.
type Emitter struct {
	log logging.Logger

	sttDuration      metric.Float64Histogram
	llmDuration      metric.Float64Histogram
	ttsDuration      metric.Float64Histogram
	pipelineDuration metric.Float64Histogram
	stageErrors      metric.Int64Counter
}

// New builds an Emitter backed by the given logger and meter provider.
func New(log logging.Logger, mp metric.MeterProvider) (*Emitter, error) {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	m := mp.Meter(meterName)
	e := &Emitter{log: log}
	var err error

	if e.sttDuration, err = m.Float64Histogram("voiceagent.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if e.llmDuration, err = m.Float64Histogram("voiceagent.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if e.ttsDuration, err = m.Float64Histogram("voiceagent.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if e.pipelineDuration, err = m.Float64Histogram("voiceagent.pipeline.duration",
		metric.WithDescription("End-to-end turn latency from committed speech to playback start."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if e.stageErrors, err = m.Int64Counter("voiceagent.stage.errors",
		metric.WithDescription("Total per-stage errors by stage name."),
	); err != nil {
		return nil, err
	}

	return e, nil
}

// STT records a speech-to-text stage completion.
func (e *Emitter) STT(ctx context.Context, durationMS float64, model string, audioDurationSec float64, textLength int, language string, sourceSampleRate int, audioLevel float64) {
	e.emit("stt_transcription", durationMS, map[string]interface{}{
		"model":              model,
		"audio_duration_sec": round2(audioDurationSec),
		"text_length":        textLength,
		"language":           language,
		"source_sample_rate": sourceSampleRate,
		"audio_level":        round2(audioLevel),
	})
	e.sttDuration.Record(ctx, durationMS/1000, metric.WithAttributes(attribute.String("model", model)))
}

// LLM records an LLM inference stage completion.
func (e *Emitter) LLM(ctx context.Context, durationMS float64, provider, model string, inputLength, outputLength, historyLength int) {
	e.emit("llm_response", durationMS, map[string]interface{}{
		"provider":       provider,
		"model":          model,
		"input_length":   inputLength,
		"output_length":  outputLength,
		"history_length": historyLength,
	})
	e.llmDuration.Record(ctx, durationMS/1000, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	))
}

// TTS records a text-to-speech stage completion.
func (e *Emitter) TTS(ctx context.Context, durationMS float64, voice string, textLength, audioBytes int) {
	e.emit("tts_synthesis", durationMS, map[string]interface{}{
		"voice":       voice,
		"text_length": textLength,
		"audio_bytes": audioBytes,
	})
	e.ttsDuration.Record(ctx, durationMS/1000, metric.WithAttributes(attribute.String("voice", voice)))
}

// PipelineComplete records the full turn latency breakdown.
func (e *Emitter) PipelineComplete(ctx context.Context, participant string, sttMS, llmMS, ttsMS, speechDurationMS float64) {
	total := sttMS + llmMS + ttsMS
	e.emit("pipeline_complete", total, map[string]interface{}{
		"participant":        participant,
		"stt_ms":             round2(sttMS),
		"llm_ms":             round2(llmMS),
		"tts_ms":             round2(ttsMS),
		"speech_duration_ms": round2(speechDurationMS),
	})
	e.pipelineDuration.Record(ctx, total/1000, metric.WithAttributes(attribute.String("participant", participant)))
}

// StageError records a recoverable per-turn error for the named stage: a
// "<stage>_error" METRIC line carrying durationMS and fields (mirroring the
// stage's success event), plus the stageErrors counter.
func (e *Emitter) StageError(ctx context.Context, stage string, durationMS float64, err error, fields map[string]interface{}) {
	payload := map[string]interface{}{"error": err.Error()}
	for k, v := range fields {
		payload[k] = v
	}
	e.emit(stage+"_error", durationMS, payload)
	e.log.Error("stage error", "stage", stage, "error", err)
	e.stageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (e *Emitter) emit(event string, durationMS float64, fields map[string]interface{}) {
	payload := map[string]interface{}{
		"event":       event,
		"duration_ms": round2(durationMS),
		"timestamp":   float64(time.Now().UnixNano()) / 1e9,
	}
	for k, v := range fields {
		payload[k] = v
	}
	line, err := json.Marshal(payload)
	if err != nil {
		e.log.Error("failed to marshal metric payload", "error", err)
		return
	}
	e.log.Info("METRIC: " + string(line))
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
