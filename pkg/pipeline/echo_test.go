package pipeline

import "testing"

func tone(n int, amp int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

func TestEchoGuardFlagsRecentlyPlayedAudio(t *testing.T) {
	g := newEchoGuard(16000)
	played := tone(320, 10000)
	g.recordPlayed(played)

	if !g.isEcho(played) {
		t.Errorf("expected identical recently-played audio to be flagged as echo")
	}
}

func TestEchoGuardIgnoresUnrelatedAudio(t *testing.T) {
	g := newEchoGuard(16000)
	g.recordPlayed(tone(320, 10000))

	unrelated := make([]int16, 320)
	for i := range unrelated {
		if i%3 == 0 {
			unrelated[i] = 5
		}
	}

	if g.isEcho(unrelated) {
		t.Errorf("expected dissimilar audio not to be flagged as echo")
	}
}

func TestEchoGuardIgnoresWhenNothingRecentlyPlayed(t *testing.T) {
	g := newEchoGuard(16000)
	if g.isEcho(tone(320, 10000)) {
		t.Errorf("expected no echo when nothing has been played")
	}
}

func TestEchoGuardResetClearsHistory(t *testing.T) {
	g := newEchoGuard(16000)
	played := tone(320, 10000)
	g.recordPlayed(played)
	g.reset()

	if g.isEcho(played) {
		t.Errorf("expected reset to clear played-audio history")
	}
}
