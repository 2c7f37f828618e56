// Package tts defines the text-to-speech engine the pipeline consumes. The
// production voice model is out of scope; this package describes the
// interface and a reference streaming engine shaped after the teacher's
// websocket TTS client, useful for local development and tests.
package tts

import "context"

// ChunkFunc receives one synthesized audio chunk at a time as it streams in.
type ChunkFunc func(chunk []byte) error

// Engine synthesizes text into MP3-encoded audio for the configured voice.
type Engine interface {
	// Synthesize collects the full streamed response into a single MP3
	// buffer.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// StreamSynthesize invokes onChunk once per audio chunk as it arrives.
	StreamSynthesize(ctx context.Context, text, voice string, onChunk ChunkFunc) error

	Name() string
}
