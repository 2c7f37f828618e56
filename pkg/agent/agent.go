// Package agent wires the consumed provider interfaces into a running
// voice-agent process: it connects to a room, publishes the agent's own
// audio track, and spawns one conversation pipeline per subscribed
// participant track.
package agent

import (
	"context"
	"sync"

	"github.com/talkloop/voiceagent/internal/config"
	"github.com/talkloop/voiceagent/pkg/llm"
	"github.com/talkloop/voiceagent/pkg/logging"
	"github.com/talkloop/voiceagent/pkg/metrics"
	"github.com/talkloop/voiceagent/pkg/pipeline"
	"github.com/talkloop/voiceagent/pkg/stt"
	"github.com/talkloop/voiceagent/pkg/transport"
	"github.com/talkloop/voiceagent/pkg/tts"
	"github.com/talkloop/voiceagent/pkg/turndetector"
	"github.com/talkloop/voiceagent/pkg/vad"
)

// Providers bundles the consumed backends an Agent drives. Each is an
// interface; cmd/agent wires the LLM backend selected from internal/config
// and the reference VAD, STT and TTS engines.
type Providers struct {
	VAD vad.Engine
	STT stt.Engine
	LLM llm.Provider
	TTS tts.Engine
}

// Agent owns one room connection and the pipelines spawned for its
// participants.
type Agent struct {
	room       transport.Room
	providers  Providers
	cfg        config.Config
	sampleRate int
	metrics    *metrics.Emitter
	logger     logging.Logger

	mu        sync.Mutex
	pipelines map[string]*pipeline.Pipeline
	cancel    map[string]context.CancelFunc
	wg        sync.WaitGroup
}

// New builds an Agent for room, ready to Connect. sampleRate is the rate
// track frames arrive at and the agent's outbound track is published at;
// it must match the rate the Room was opened with.
func New(room transport.Room, providers Providers, cfg config.Config, sampleRate int, metricsEmitter *metrics.Emitter, logger logging.Logger) *Agent {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Agent{
		room:       room,
		providers:  providers,
		cfg:        cfg,
		sampleRate: sampleRate,
		metrics:    metricsEmitter,
		logger:     logger,
		pipelines:  make(map[string]*pipeline.Pipeline),
		cancel:     make(map[string]context.CancelFunc),
	}
}

// Connect joins the room, publishes the agent's outbound audio track, and
// registers the subscribe callback that spawns a pipeline per participant.
// It mirrors the prewarm/connect/publish/subscribe sequence a room-backed
// job runs through before it can hear or speak.
func (a *Agent) Connect(ctx context.Context, trackName string) error {
	if err := a.room.Connect(ctx); err != nil {
		return err
	}

	audioSource, err := a.room.PublishAudio(ctx, trackName)
	if err != nil {
		return err
	}

	a.room.OnTrackSubscribed(func(track transport.Track) {
		a.spawn(ctx, track, audioSource)
	})

	a.logger.Info("agent connected", "room", a.room.Name(), "track", trackName)
	return nil
}

// spawn builds and runs a pipeline for one newly subscribed track,
// tracking it so Shutdown can stop it.
func (a *Agent) spawn(ctx context.Context, track transport.Track, audioSource transport.AudioSource) {
	if track.Kind() != transport.TrackKindAudio {
		return
	}
	identity := track.Participant().Identity

	a.mu.Lock()
	if _, exists := a.pipelines[identity]; exists {
		a.mu.Unlock()
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	a.cancel[identity] = cancel
	a.mu.Unlock()

	p := pipeline.New(identity, a.pipelineConfig(), pipeline.Deps{
		VAD:           a.providers.VAD.Clone(),
		STT:           a.providers.STT,
		LLM:           a.providers.LLM,
		TTS:           a.providers.TTS,
		AudioSource:   audioSource,
		DataPublisher: a.room,
		Metrics:       a.metrics,
		Logger:        a.logger,
	})

	a.mu.Lock()
	a.pipelines[identity] = p
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			delete(a.pipelines, identity)
			delete(a.cancel, identity)
			a.mu.Unlock()
		}()
		if err := p.Run(pctx, track); err != nil {
			a.logger.Error("pipeline run failed", "participant", identity, "error", err)
		}
	}()

	a.logger.Info("pipeline spawned", "participant", identity)
}

func (a *Agent) pipelineConfig() pipeline.Config {
	td := a.cfg.TurnDetection
	return pipeline.Config{
		TurnDetection: turndetector.Config{
			SilenceMS:          td.SilenceDuration(),
			MinSpeechMS:        td.MinSpeechDuration(),
			PrefixPaddingMS:    td.PrefixPaddingDuration(),
			InterruptThreshold: td.InterruptThresholdDuration(),
		},
		SourceSampleRate: a.sampleRate,
		Voice:            a.cfg.TTS.Voice,
	}
}

// Shutdown cancels every running pipeline, waits for them to return, and
// disconnects from the room.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	for _, cancel := range a.cancel {
		cancel()
	}
	a.mu.Unlock()

	a.wg.Wait()

	return a.room.Disconnect(ctx)
}

// ActiveParticipants returns the identities of participants with a running
// pipeline, for diagnostics.
func (a *Agent) ActiveParticipants() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.pipelines))
	for id := range a.pipelines {
		out = append(out, id)
	}
	return out
}
