// Package transport defines the room/track abstraction the agent consumes
// to join a call and exchange audio. No concrete WebRTC stack is implemented
// here — callers wire in whatever room SDK they run against; cmd/agent wires
// a local-device Room backed by the host microphone/speaker for standalone
// development.
package transport

import (
	"context"
)

// TrackKind distinguishes audio from other track kinds a room SDK might
// expose. Only audio is ever consumed.
type TrackKind int

const (
	TrackKindAudio TrackKind = iota
	TrackKindOther
)

// Participant identifies a remote party in the room.
type Participant struct {
	Identity string
}

// Track is an inbound remote audio track. Frames arrive as raw PCM16 chunks
// on the channel returned by Frames; the channel closes when the track ends.
type Track interface {
	Kind() TrackKind
	Participant() Participant
	Frames(ctx context.Context) (<-chan []byte, error)
}

// AudioSource is the agent's outbound audio sink — the publish side of its
// local track. Write blocks only as long as it takes to enqueue pcm; it does
// not wait for playback.
type AudioSource interface {
	Write(ctx context.Context, pcm []byte) error
	SampleRate() int
	Channels() int
}

// DataPublisher sends out-of-band data messages to room participants. The
// conversation pipeline uses it to publish each turn's "transcription" and
// "response" events.
type DataPublisher interface {
	PublishData(ctx context.Context, payload []byte, destinationIdentities []string) error
}

// TrackSubscribedFunc is invoked once per newly subscribed remote audio
// track.
type TrackSubscribedFunc func(track Track)

// Room is the connected call the agent joins. Connect, PublishAudio, and
// OnTrackSubscribed mirror the prewarm/connect/publish/subscribe sequence:
// an agent connects, publishes its own synthesized-speech track, and
// subscribes to each participant's inbound audio.
type Room interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	PublishAudio(ctx context.Context, trackName string) (AudioSource, error)
	OnTrackSubscribed(fn TrackSubscribedFunc)
	DataPublisher
}
