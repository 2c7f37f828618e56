// Package pipeline fuses a participant's audio and VAD streams, drives the
// turn detector, and serializes the STT→LLM→TTS→playback turn task.
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/talkloop/voiceagent/pkg/audio"
	"github.com/talkloop/voiceagent/pkg/llm"
	"github.com/talkloop/voiceagent/pkg/logging"
	"github.com/talkloop/voiceagent/pkg/metrics"
	"github.com/talkloop/voiceagent/pkg/stt"
	"github.com/talkloop/voiceagent/pkg/transport"
	"github.com/talkloop/voiceagent/pkg/tts"
	"github.com/talkloop/voiceagent/pkg/turndetector"
	"github.com/talkloop/voiceagent/pkg/vad"
	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

const systemPrompt = `당신은 친절하고 도움이 되는 AI 어시스턴트입니다.
사용자와 음성으로 대화하고 있습니다.
짧고 자연스러운 대화체로 응답하세요.
한국어로 응답하세요.`

const llmErrorApology = "죄송합니다, 응답을 생성하는 데 문제가 발생했습니다."

// minSegmentLevel matches spec.md's silence gate on the captured segment:
// a mean-abs level below this is treated as silence and the turn is skipped.
const minSegmentLevel = 0.001

// playbackFrameSamples is 20ms at the 24kHz TTS output rate.
const playbackFrameSamples = 480

// Config configures a Pipeline instance.
type Config struct {
	TurnDetection    turndetector.Config
	SourceSampleRate int
	Voice            string
	STTWorkers       int
}

// Deps are the external collaborators a Pipeline drives. None are
// implemented by this package; all are consumed interfaces.
type Deps struct {
	VAD           vad.Engine
	STT           stt.Engine
	LLM           llm.Provider
	TTS           tts.Engine
	AudioSource   transport.AudioSource
	DataPublisher transport.DataPublisher
	Metrics       *metrics.Emitter
	Logger        logging.Logger
}

// Pipeline is the per-participant conversation pipeline: one audio task,
// one VAD task (both driven by Feed), and one serialized turn task per
// committed segment.
type Pipeline struct {
	participant string
	cfg         Config
	deps        Deps

	detector *turndetector.Detector
	echo     *echoGuard
	history  *dialogueHistory

	turnMu        sync.Mutex
	sttSlots      chan struct{}
	lastLatency   LatencyBreakdown
	lastTurnAudio []byte
	latencyMu     sync.Mutex
}

// New builds a Pipeline for one participant's track.
func New(participant string, cfg Config, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logging.NoOpLogger{}
	}
	if cfg.STTWorkers <= 0 {
		cfg.STTWorkers = 2
	}
	if cfg.SourceSampleRate <= 0 {
		cfg.SourceSampleRate = 16000
	}

	p := &Pipeline{
		participant: participant,
		cfg:         cfg,
		deps:        deps,
		echo:        newEchoGuard(cfg.SourceSampleRate),
		history:     newDialogueHistory(),
		sttSlots:    make(chan struct{}, cfg.STTWorkers),
	}
	p.detector = turndetector.New(deps.VAD, cfg.TurnDetection, p.onCommit, p.onInterrupt)
	return p
}

// Run consumes frames from track until ctx is cancelled or the track ends.
// This is the audio task; VAD processing and turn-state transitions happen
// synchronously inside Feed, off the separate turn-task goroutines spawned
// per committed segment.
func (p *Pipeline) Run(ctx context.Context, track transport.Track) error {
	frames, err := track.Frames(ctx)
	if err != nil {
		return voiceerr.TransportError(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-frames:
			if !ok {
				return nil
			}
			p.feedChunk(chunk)
		}
	}
}

func (p *Pipeline) feedChunk(chunk []byte) {
	samples := bytesToInt16(chunk)
	if p.echo.isEcho(samples) {
		return
	}
	frame := turndetector.Frame{PCM: chunk, Timestamp: time.Now()}
	if err := p.detector.Feed(frame); err != nil {
		p.deps.Logger.Warn("turn detector feed failed", "participant", p.participant, "error", err)
	}
}

// onInterrupt is invoked by the turn detector when the participant keeps
// speaking past the interrupt threshold while the agent is talking. Per
// spec.md's Non-goals this only surfaces the event; it never cancels
// in-flight TTS playback.
func (p *Pipeline) onInterrupt() {
	p.deps.Logger.Info("interrupt detected", "participant", p.participant)
}

// onCommit runs the serialized turn task: STT, transcript publish, LLM,
// response publish, history update, TTS, and paced playback.
func (p *Pipeline) onCommit(seg turndetector.Segment) {
	p.turnMu.Lock()
	defer p.turnMu.Unlock()

	ctx := context.Background()

	samples := concatSegment(seg)
	resampled := audio.Resample(samples, p.cfg.SourceSampleRate, 16000)
	floatSamples := audio.ToFloat32(resampled)

	meanAbs, _ := audio.Level(resampled)
	if meanAbs < minSegmentLevel {
		return
	}

	p.latencyMu.Lock()
	p.lastTurnAudio = int16ToBytes(resampled)
	p.latencyMu.Unlock()

	transcript, sttMS := p.runSTT(ctx, floatSamples, resampled, seg)
	if transcript == "" {
		return
	}

	p.publish(ctx, Event{Type: EventTranscription, Text: transcript})

	response, llmMS := p.runLLM(ctx, transcript)

	p.publish(ctx, Event{Type: EventResponse, Text: response})
	p.history.add("user", transcript)
	p.history.add("assistant", response)

	ttsMS, audioBytes := p.runTTS(ctx, response)

	p.detector.SetAgentSpeaking(true)
	p.playback(ctx, audioBytes)
	p.detector.SetAgentSpeaking(false)

	if p.deps.Metrics != nil {
		p.deps.Metrics.PipelineComplete(ctx, p.participant, sttMS, llmMS, ttsMS, float64(seg.DurationMS))
	}

	p.latencyMu.Lock()
	p.lastLatency = LatencyBreakdown{STTMillis: sttMS, LLMMillis: llmMS, TTSMillis: ttsMS, SpeechDurationMillis: float64(seg.DurationMS)}
	p.latencyMu.Unlock()
}

func (p *Pipeline) runSTT(ctx context.Context, floatSamples []float32, resampled []int16, seg turndetector.Segment) (string, float64) {
	select {
	case p.sttSlots <- struct{}{}:
		defer func() { <-p.sttSlots }()
	case <-ctx.Done():
		return "", 0
	}

	start := time.Now()
	result, err := p.deps.STT.Transcribe(ctx, floatSamples, sttOptions())
	durationMS := float64(time.Since(start).Milliseconds())

	if err != nil {
		if p.deps.Metrics != nil {
			p.deps.Metrics.StageError(ctx, "stt", durationMS, err, nil)
		}
		return "", durationMS
	}

	meanAbs, _ := audio.Level(resampled)
	if p.deps.Metrics != nil {
		p.deps.Metrics.STT(ctx, durationMS, result.Model, float64(len(resampled))/16000.0, len(result.Text), result.Language, p.cfg.SourceSampleRate, meanAbs)
	}
	return result.Text, durationMS
}

func (p *Pipeline) runLLM(ctx context.Context, transcript string) (string, float64) {
	messages := append([]llm.Message{{Role: "system", Content: systemPrompt}}, p.history.snapshot()...)
	messages = append(messages, llm.Message{Role: "user", Content: transcript})
	historyLen := p.history.len()

	start := time.Now()
	resp, err := p.deps.LLM.Chat(ctx, messages, llm.Options{})
	durationMS := float64(time.Since(start).Milliseconds())

	if err != nil {
		if p.deps.Metrics != nil {
			p.deps.Metrics.StageError(ctx, "llm", durationMS, err, map[string]interface{}{
				"provider": p.deps.LLM.Name(),
			})
		}
		return llmErrorApology, durationMS
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.LLM(ctx, durationMS, p.deps.LLM.Name(), resp.Model, len(transcript), len(resp.Content), historyLen)
	}
	return resp.Content, durationMS
}

func (p *Pipeline) runTTS(ctx context.Context, text string) (float64, []byte) {
	start := time.Now()
	mp3, err := p.deps.TTS.Synthesize(ctx, text, p.cfg.Voice)
	durationMS := float64(time.Since(start).Milliseconds())

	if err != nil {
		if p.deps.Metrics != nil {
			p.deps.Metrics.StageError(ctx, "tts", durationMS, err, map[string]interface{}{
				"voice": p.cfg.Voice,
			})
		}
		return durationMS, nil
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.TTS(ctx, durationMS, p.cfg.Voice, len(text), len(mp3))
	}
	return durationMS, mp3
}

// playback decodes mp3Data and publishes it to the outbound audio source,
// paced at real time, recording every sent frame with the echo guard.
func (p *Pipeline) playback(ctx context.Context, mp3Data []byte) {
	if len(mp3Data) == 0 {
		return
	}
	samples, _, err := audio.DecodeMP3(mp3Data)
	if err != nil {
		if p.deps.Metrics != nil {
			p.deps.Metrics.StageError(ctx, "playback", 0, err, nil)
		}
		return
	}

	for _, frame := range audio.Frame480(samples, playbackFrameSamples) {
		p.echo.recordPlayed(frame)
		if p.deps.AudioSource != nil {
			if err := p.deps.AudioSource.Write(ctx, int16ToBytes(frame)); err != nil {
				p.deps.Logger.Warn("playback write failed", "participant", p.participant, "error", err)
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (p *Pipeline) publish(ctx context.Context, evt Event) {
	if p.deps.DataPublisher == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := p.deps.DataPublisher.PublishData(ctx, payload, nil); err != nil {
		p.deps.Logger.Warn("publish data event failed", "participant", p.participant, "error", err)
	}
}

// LatencyBreakdown returns the stage timings of the most recently completed
// turn.
func (p *Pipeline) LatencyBreakdown() LatencyBreakdown {
	p.latencyMu.Lock()
	defer p.latencyMu.Unlock()
	return p.lastLatency
}

// ExportLastTurnAudio returns the resampled 16kHz mono PCM captured for the
// most recently committed segment, for debugging.
func (p *Pipeline) ExportLastTurnAudio() []byte {
	p.latencyMu.Lock()
	defer p.latencyMu.Unlock()
	return p.lastTurnAudio
}

func sttOptions() stt.Options {
	return stt.DefaultOptions()
}

func concatSegment(seg turndetector.Segment) []int16 {
	var total []int16
	for _, f := range seg.Frames {
		total = append(total, bytesToInt16(f.PCM)...)
	}
	return total
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
