// Package stt defines the speech-to-text engine the pipeline consumes.
// The production transcription model is out of scope; this package only
// describes the interface and a reference HTTP-backed engine shaped after
// the teacher's provider clients, useful for local development and tests.
package stt

import "context"

// Options configure a single transcription call.
type Options struct {
	Language                string
	BeamSize                int
	LogProbThreshold        float64
	ConditionOnPreviousText bool
}

// DefaultOptions matches the pipeline's fixed transcription configuration:
// Korean language hint, beam size 5, log-probability threshold -2.0, and no
// conditioning on previous text (the turn detector already gated on
// silence, so no additional VAD pre-filtering is requested here).
func DefaultOptions() Options {
	return Options{
		Language:                "ko",
		BeamSize:                5,
		LogProbThreshold:        -2.0,
		ConditionOnPreviousText: false,
	}
}

// Result carries the transcript plus the fields the metrics emitter needs.
type Result struct {
	Text     string
	Model    string
	Language string
}

// Engine transcribes 16kHz mono float32 PCM samples into text.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
	Name() string
}
