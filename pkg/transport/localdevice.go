package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// LocalDeviceRoom is a Room backed directly by the host microphone and
// speaker, for running the agent standalone without a real room SDK. It
// exposes the microphone as a single remote participant's audio track and
// the speaker as the agent's published AudioSource.
type LocalDeviceRoom struct {
	name       string
	sampleRate int
	channels   int

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	frames chan []byte

	playbackMu    sync.Mutex
	playbackBytes []byte

	onSubscribed TrackSubscribedFunc
}

// NewLocalDeviceRoom creates a room that has not yet opened the audio
// device; call Connect to start capture/playback.
func NewLocalDeviceRoom(name string, sampleRate, channels int) *LocalDeviceRoom {
	return &LocalDeviceRoom{
		name:       name,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     make(chan []byte, 64),
	}
}

func (r *LocalDeviceRoom) Name() string { return r.name }

func (r *LocalDeviceRoom) Connect(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return voiceerr.TransportError(fmt.Errorf("init audio context: %w", err))
	}
	r.mctx = mctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(r.channels)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(r.channels)
	deviceConfig.SampleRate = uint32(r.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			chunk := make([]byte, len(pInput))
			copy(chunk, pInput)
			select {
			case r.frames <- chunk:
			default:
			}
		}
		if pOutput != nil {
			r.playbackMu.Lock()
			n := copy(pOutput, r.playbackBytes)
			r.playbackBytes = r.playbackBytes[n:]
			r.playbackMu.Unlock()
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		mctx.Uninit()
		return voiceerr.TransportError(fmt.Errorf("init audio device: %w", err))
	}
	r.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return voiceerr.TransportError(fmt.Errorf("start audio device: %w", err))
	}

	if r.onSubscribed != nil {
		r.onSubscribed(&localTrack{room: r})
	}
	return nil
}

func (r *LocalDeviceRoom) Disconnect(ctx context.Context) error {
	if r.device != nil {
		r.device.Uninit()
	}
	if r.mctx != nil {
		r.mctx.Uninit()
	}
	close(r.frames)
	return nil
}

func (r *LocalDeviceRoom) PublishAudio(ctx context.Context, trackName string) (AudioSource, error) {
	return &localAudioSource{room: r}, nil
}

func (r *LocalDeviceRoom) OnTrackSubscribed(fn TrackSubscribedFunc) {
	r.onSubscribed = fn
	if fn != nil && r.device != nil {
		fn(&localTrack{room: r})
	}
}

func (r *LocalDeviceRoom) PublishData(ctx context.Context, payload []byte, destinationIdentities []string) error {
	return nil
}

type localTrack struct {
	room *LocalDeviceRoom
}

func (t *localTrack) Kind() TrackKind             { return TrackKindAudio }
func (t *localTrack) Participant() Participant     { return Participant{Identity: "local-microphone"} }
func (t *localTrack) Frames(ctx context.Context) (<-chan []byte, error) {
	return t.room.frames, nil
}

type localAudioSource struct {
	room *LocalDeviceRoom
}

func (s *localAudioSource) Write(ctx context.Context, pcm []byte) error {
	s.room.playbackMu.Lock()
	s.room.playbackBytes = append(s.room.playbackBytes, pcm...)
	s.room.playbackMu.Unlock()
	return nil
}

func (s *localAudioSource) SampleRate() int { return s.room.sampleRate }
func (s *localAudioSource) Channels() int   { return s.room.channels }
