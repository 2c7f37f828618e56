package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/talkloop/voiceagent/internal/config"
	"github.com/talkloop/voiceagent/pkg/llm"
	"github.com/talkloop/voiceagent/pkg/stt"
	"github.com/talkloop/voiceagent/pkg/transport"
	"github.com/talkloop/voiceagent/pkg/tts"
	"github.com/talkloop/voiceagent/pkg/vad"
)

type fakeRoom struct {
	mu           sync.Mutex
	connected    bool
	disconnected bool
	onSubscribed transport.TrackSubscribedFunc
	published    []string
}

func (r *fakeRoom) Name() string { return "test-room" }
func (r *fakeRoom) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.connected = true
	r.mu.Unlock()
	return nil
}
func (r *fakeRoom) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	r.disconnected = true
	r.mu.Unlock()
	return nil
}
func (r *fakeRoom) PublishAudio(ctx context.Context, trackName string) (transport.AudioSource, error) {
	return &fakeAudioSource{}, nil
}
func (r *fakeRoom) OnTrackSubscribed(fn transport.TrackSubscribedFunc) {
	r.onSubscribed = fn
}
func (r *fakeRoom) PublishData(ctx context.Context, payload []byte, destinationIdentities []string) error {
	r.mu.Lock()
	r.published = append(r.published, string(payload))
	r.mu.Unlock()
	return nil
}

func (r *fakeRoom) subscribe(track transport.Track) {
	r.mu.Lock()
	fn := r.onSubscribed
	r.mu.Unlock()
	if fn != nil {
		fn(track)
	}
}

type fakeAudioSource struct{}

func (f *fakeAudioSource) Write(ctx context.Context, pcm []byte) error { return nil }
func (f *fakeAudioSource) SampleRate() int                             { return 16000 }
func (f *fakeAudioSource) Channels() int                               { return 1 }

type fakeTrack struct {
	identity string
	frames   chan []byte
}

func (t *fakeTrack) Kind() transport.TrackKind          { return transport.TrackKindAudio }
func (t *fakeTrack) Participant() transport.Participant { return transport.Participant{Identity: t.identity} }
func (t *fakeTrack) Frames(ctx context.Context) (<-chan []byte, error) {
	return t.frames, nil
}

type fakeVAD struct{}

func (fakeVAD) Process(chunk []byte) (*vad.Event, error) { return nil, nil }
func (fakeVAD) Reset()                                   {}
func (fakeVAD) Clone() vad.Engine                        { return fakeVAD{} }
func (fakeVAD) Name() string                             { return "fake-vad" }

type fakeSTT struct{}

func (fakeSTT) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	return stt.Result{}, nil
}
func (fakeSTT) Name() string { return "fake-stt" }

type fakeLLM struct{}

func (fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Response, error) {
	return llm.Response{}, nil
}
func (fakeLLM) Name() string { return "fake-llm" }

type fakeTTS struct{}

func (fakeTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) { return nil, nil }
func (fakeTTS) StreamSynthesize(ctx context.Context, text, voice string, onChunk tts.ChunkFunc) error {
	return nil
}
func (fakeTTS) Name() string { return "fake-tts" }

func testProviders() Providers {
	return Providers{VAD: fakeVAD{}, STT: fakeSTT{}, LLM: fakeLLM{}, TTS: fakeTTS{}}
}

func TestConnectPublishesAndRegistersSubscribeCallback(t *testing.T) {
	room := &fakeRoom{}
	a := New(room, testProviders(), config.Config{}, 16000, nil, nil)

	if err := a.Connect(context.Background(), "agent-voice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !room.connected {
		t.Errorf("expected room.Connect to be called")
	}
	if room.onSubscribed == nil {
		t.Fatalf("expected OnTrackSubscribed callback to be registered")
	}
}

func TestSubscribedTrackSpawnsPipeline(t *testing.T) {
	room := &fakeRoom{}
	a := New(room, testProviders(), config.Config{}, 16000, nil, nil)
	if err := a.Connect(context.Background(), "agent-voice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	track := &fakeTrack{identity: "participant-1", frames: make(chan []byte)}
	room.subscribe(track)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(a.ActiveParticipants()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	active := a.ActiveParticipants()
	if len(active) != 1 || active[0] != "participant-1" {
		t.Fatalf("expected one active pipeline for participant-1, got %v", active)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !room.disconnected {
		t.Errorf("expected room.Disconnect to be called")
	}
}

func TestSubscribedTrackIgnoresNonAudioKind(t *testing.T) {
	room := &fakeRoom{}
	a := New(room, testProviders(), config.Config{}, 16000, nil, nil)
	if err := a.Connect(context.Background(), "agent-voice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	room.subscribe(&otherKindTrack{})
	time.Sleep(20 * time.Millisecond)

	if len(a.ActiveParticipants()) != 0 {
		t.Errorf("expected non-audio track to be ignored")
	}
}

type otherKindTrack struct{}

func (otherKindTrack) Kind() transport.TrackKind          { return transport.TrackKindOther }
func (otherKindTrack) Participant() transport.Participant { return transport.Participant{Identity: "x"} }
func (otherKindTrack) Frames(ctx context.Context) (<-chan []byte, error) {
	return nil, nil
}
