// Package turndetector implements the turn-taking state machine that sits
// between the raw VAD engine and the conversation pipeline: it debounces
// brief pauses so a breath doesn't end a turn, discards utterances too
// short to be real speech, prepends a pre-speech padding window so the
// STT engine hears the onset of the utterance, and flags (without acting
// on) user barge-in while the agent is speaking.
package turndetector

import (
	"context"
	"sync"
	"time"

	"github.com/talkloop/voiceagent/pkg/vad"
)

// State is the turn detector's current phase.
type State int

const (
	// StateIdle: no confirmed speech in progress.
	StateIdle State = iota
	// StateSpeaking: speech confirmed and actively accumulating.
	StateSpeaking
	// StateDebouncing: VAD reported silence; waiting out SilenceMS in case
	// speech resumes before committing the turn.
	StateDebouncing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateDebouncing:
		return "debouncing"
	default:
		return "unknown"
	}
}

// Frame is one chunk of captured microphone audio.
type Frame struct {
	PCM       []byte
	Timestamp time.Time
}

// Segment is a committed speech turn: the prefix-padded and in-speech
// frames, ready for STT.
type Segment struct {
	Frames     []Frame
	DurationMS int64
}

// Config holds the detector's tunables, sourced from
// internal/config.TurnDetection.
type Config struct {
	SilenceMS          time.Duration
	MinSpeechMS        time.Duration
	PrefixPaddingMS    time.Duration
	InterruptThreshold time.Duration
}

// Detector runs the IDLE/SPEAKING/DEBOUNCING state machine over a stream
// of audio frames.
type Detector struct {
	mu     sync.Mutex
	engine vad.Engine
	cfg    Config

	state         State
	agentSpeaking bool

	segment       []Frame
	prefixBuf     []Frame
	speechStartAt time.Time

	pendingCancel context.CancelFunc

	onCommit    func(Segment)
	onInterrupt func()
}

// New creates a Detector. onCommit is invoked (on its own goroutine, never
// holding the detector's lock) with the finalized segment once the
// debounce window elapses without speech resuming. onInterrupt is invoked
// when speech is detected while the agent is marked as speaking and
// persists past InterruptThreshold; the detector only flags this, it
// never cancels playback itself.
func New(engine vad.Engine, cfg Config, onCommit func(Segment), onInterrupt func()) *Detector {
	return &Detector{
		engine:      engine,
		cfg:         cfg,
		onCommit:    onCommit,
		onInterrupt: onInterrupt,
	}
}

// SetAgentSpeaking marks whether the agent is currently playing synthesized
// audio, used only to gate the detect-only interrupt signal.
func (d *Detector) SetAgentSpeaking(speaking bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agentSpeaking = speaking
}

// State returns the detector's current phase.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Feed pushes one audio frame through the VAD engine and advances the
// state machine accordingly.
func (d *Detector) Feed(frame Frame) error {
	event, err := d.engine.Process(frame.PCM)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateIdle:
		d.pushPrefix(frame)
	case StateSpeaking, StateDebouncing:
		d.segment = append(d.segment, frame)
	}

	if event == nil {
		return nil
	}

	switch event.Kind {
	case vad.SpeechStart:
		d.handleSpeechStart(frame)
	case vad.SpeechEnd:
		d.handleSpeechEnd(frame)
	}
	return nil
}

// pushPrefix appends frame to the prefix ring buffer and evicts entries
// older than PrefixPaddingMS relative to frame's timestamp.
func (d *Detector) pushPrefix(frame Frame) {
	d.prefixBuf = append(d.prefixBuf, frame)
	cutoff := frame.Timestamp.Add(-d.cfg.PrefixPaddingMS)
	i := 0
	for i < len(d.prefixBuf) && d.prefixBuf[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		d.prefixBuf = d.prefixBuf[i:]
	}
}

func (d *Detector) handleSpeechStart(frame Frame) {
	// Cancel any pending debounce commit — speech resumed before the
	// silence window elapsed, so the interrupted turn continues rather
	// than being split in two.
	if d.pendingCancel != nil {
		d.pendingCancel()
		d.pendingCancel = nil
		if d.state == StateDebouncing {
			d.state = StateSpeaking
			return
		}
	}

	if d.state == StateIdle {
		d.state = StateSpeaking
		d.speechStartAt = frame.Timestamp
		// frame was already pushed onto prefixBuf by Feed's StateIdle
		// branch above, so it's already the buffer's last element.
		d.segment = append([]Frame(nil), d.prefixBuf...)
	}

	if d.agentSpeaking && d.onInterrupt != nil {
		go d.waitForInterruptThreshold()
	}
}

// waitForInterruptThreshold flags a barge-in if the agent is still marked
// speaking once InterruptThreshold has elapsed from this speech onset.
// Detection only — the caller decides what (if anything) to do about it;
// per design, in-flight TTS playback is never cancelled.
func (d *Detector) waitForInterruptThreshold() {
	t := time.NewTimer(d.cfg.InterruptThreshold)
	defer t.Stop()
	<-t.C

	d.mu.Lock()
	stillSpeaking := d.state == StateSpeaking && d.agentSpeaking
	d.mu.Unlock()

	if stillSpeaking && d.onInterrupt != nil {
		d.onInterrupt()
	}
}

func (d *Detector) handleSpeechEnd(frame Frame) {
	if d.state != StateSpeaking {
		return
	}
	d.state = StateDebouncing

	captured := append([]Frame(nil), d.segment...)
	speechStartAt := d.speechStartAt

	ctx, cancel := context.WithCancel(context.Background())
	d.pendingCancel = cancel

	go func() {
		t := time.NewTimer(d.cfg.SilenceMS)
		defer t.Stop()
		select {
		case <-t.C:
			d.finalizeCommit(captured, speechStartAt, cancel)
		case <-ctx.Done():
			// Speech resumed; handleSpeechStart already reinstated
			// StateSpeaking and is still appending to d.segment.
		}
	}()
}

func (d *Detector) finalizeCommit(captured []Frame, speechStartAt time.Time, cancel context.CancelFunc) {
	d.mu.Lock()
	if d.pendingCancel == nil {
		// Already cancelled/replaced concurrently.
		d.mu.Unlock()
		return
	}
	d.pendingCancel = nil
	d.state = StateIdle
	d.segment = nil
	d.mu.Unlock()
	cancel()

	if len(captured) == 0 {
		return
	}

	durationMS := captured[len(captured)-1].Timestamp.Sub(speechStartAt).Milliseconds()
	if time.Duration(durationMS)*time.Millisecond < d.cfg.MinSpeechMS {
		// Too short to be real speech (cough, click) — discard silently.
		return
	}

	if d.onCommit != nil {
		d.onCommit(Segment{Frames: captured, DurationMS: durationMS})
	}
}

// Reset returns the detector to StateIdle, discarding any in-progress
// segment and cancelling a pending debounce commit.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pendingCancel != nil {
		d.pendingCancel()
		d.pendingCancel = nil
	}
	d.state = StateIdle
	d.segment = nil
	d.prefixBuf = nil
	d.engine.Reset()
}
