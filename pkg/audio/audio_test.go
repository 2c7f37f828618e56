package audio

import "testing"

func TestConcatFrames(t *testing.T) {
	frames := []Frame{
		{Samples: []int16{1, 2, 3}},
		{Samples: []int16{4, 5}},
	}
	got := ConcatFrames(frames)
	want := []int16{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected length %d, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestToFloat32Range(t *testing.T) {
	got := ToFloat32([]int16{32767, -32768, 0})
	if got[2] != 0 {
		t.Fatalf("expected 0 sample to map to 0.0, got %v", got[2])
	}
	if got[0] <= 0 || got[0] > 1 {
		t.Fatalf("expected positive sample in (0,1], got %v", got[0])
	}
	if got[1] >= 0 {
		t.Fatalf("expected negative sample to stay negative, got %v", got[1])
	}
}

func TestResampleNoOpWhenRatesMatch(t *testing.T) {
	in := []int16{1, 2, 3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("expected no-op resample to preserve length")
	}
}

func TestResampleDownsamplesByRatio(t *testing.T) {
	in := make([]int16, 100)
	for i := range in {
		in[i] = int16(i)
	}
	out := Resample(in, 48000, 16000)
	wantLen := len(in) * 16000 / 48000
	if len(out) != wantLen {
		t.Fatalf("expected length %d, got %d", wantLen, len(out))
	}
}

func TestIsSilence(t *testing.T) {
	silent := make([]int16, 100)
	if !IsSilence(silent, 0.01) {
		t.Fatalf("expected all-zero samples to be silence")
	}
	loud := make([]int16, 100)
	for i := range loud {
		loud[i] = 20000
	}
	if IsSilence(loud, 0.01) {
		t.Fatalf("expected loud samples to not be silence")
	}
}

func TestFrame480PadsLastFrame(t *testing.T) {
	samples := make([]int16, 500)
	frames := Frame480(samples, 480)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if len(frames[1]) != 480 {
		t.Fatalf("expected zero-padded last frame of length 480, got %d", len(frames[1]))
	}
	for i := 20; i < 480; i++ {
		if frames[1][i] != 0 {
			t.Fatalf("expected zero padding at index %d, got %d", i, frames[1][i])
		}
	}
}
