// Package audio provides the PCM manipulation primitives the conversation
// pipeline needs: frame concatenation, resampling to the STT engine's
// expected rate, level/silence detection, MP3 decode of synthesized
// speech, and fixed-size frame chunking for outbound playback.
package audio

import (
	"io"
	"math"

	"github.com/hajimehoshi/go-mp3"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// Frame mirrors one chunk of captured or synthesized audio: interleaved
// int16 samples at SampleRate/Channels.
type Frame struct {
	SampleRate  int
	Channels    int
	Samples     []int16
	TimestampMS int64
}

// ConcatFrames joins the samples of consecutive frames captured during a
// single speech segment into one contiguous int16 slice.
func ConcatFrames(frames []Frame) []int16 {
	total := 0
	for _, f := range frames {
		total += len(f.Samples)
	}
	out := make([]int16, 0, total)
	for _, f := range frames {
		out = append(out, f.Samples...)
	}
	return out
}

// ToFloat32 converts int16 PCM samples to float32 in [-1, 1], the format
// STT engines expect.
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Resample performs linear-interpolation resampling of mono int16 PCM from
// srcRate to dstRate. Returns the input unchanged if the rates match.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}

// Level reports the mean-absolute and peak amplitude of samples, both
// normalized to [0, 1].
func Level(samples []int16) (meanAbs, peak float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range samples {
		v := math.Abs(float64(s)) / 32768.0
		sum += v
		if v > peak {
			peak = v
		}
	}
	return sum / float64(len(samples)), peak
}

// IsSilence reports whether samples' mean-absolute level is at or below
// threshold (both normalized to [0, 1]).
func IsSilence(samples []int16, threshold float64) bool {
	meanAbs, _ := Level(samples)
	return meanAbs <= threshold
}

// DecodeMP3 decodes an MP3 byte stream (as produced by the TTS engine) into
// mono int16 PCM plus its sample rate. Wraps decode failures as a
// voiceerr MediaDecodeError so callers can skip playback and continue.
func DecodeMP3(mp3Data []byte) (samples []int16, sampleRate int, err error) {
	dec, err := mp3.NewDecoder(&byteReader{mp3Data})
	if err != nil {
		return nil, 0, voiceerr.MediaDecodeError(err)
	}

	sampleRate = dec.SampleRate()
	buf := make([]byte, 4096)
	var pcm []byte
	for {
		n, rerr := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, buf[:n]...)
		}
		if rerr != nil {
			break
		}
	}

	// go-mp3 always decodes to interleaved stereo 16-bit PCM; downmix to
	// mono by averaging the L/R channels.
	frameCount := len(pcm) / 4
	samples = make([]int16, frameCount)
	for i := 0; i < frameCount; i++ {
		l := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		r := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		samples[i] = int16((int32(l) + int32(r)) / 2)
	}
	return samples, sampleRate, nil
}

type byteReader struct{ data []byte }

func (b *byteReader) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

// Frame480 splits samples into fixed-size frames of frameSize (480 samples
// = 20ms at 24kHz, per the TTS playback contract), zero-padding the final
// short frame.
func Frame480(samples []int16, frameSize int) [][]int16 {
	if frameSize <= 0 {
		return nil
	}
	var out [][]int16
	for i := 0; i < len(samples); i += frameSize {
		end := i + frameSize
		if end > len(samples) {
			chunk := make([]int16, frameSize)
			copy(chunk, samples[i:])
			out = append(out, chunk)
			break
		}
		out = append(out, samples[i:end])
	}
	return out
}
