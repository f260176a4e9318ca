package visibility

import (
	"testing"
	"time"
)

func TestFader_IdempotentWhileInFlight(t *testing.T) {
	f := NewFader(0)

	first := f.Show()
	if first == nil {
		t.Fatal("first Show should start a fade")
	}
	if first.Duration != DefaultFadeDuration {
		t.Errorf("Duration = %v, want %v", first.Duration, DefaultFadeDuration)
	}
	if again := f.Show(); again != nil {
		t.Error("Show while a fade-in is in flight should be a no-op")
	}

	first.Complete()
	if next := f.Show(); next == nil {
		t.Error("Show after completion should start a new fade")
	}
}

func TestFader_DirectionsIndependent(t *testing.T) {
	f := NewFader(250 * time.Millisecond)

	in := f.Show()
	out := f.Hide()
	if in == nil || out == nil {
		t.Fatal("opposite directions must not block each other")
	}
	if f.Visible() {
		t.Error("latest request was Hide; Visible should be false")
	}
	if out.Opacity() != 0 || in.Opacity() != 1 {
		t.Errorf("opacities = %v/%v, want 1/0", in.Opacity(), out.Opacity())
	}
	if f.Hide() != nil {
		t.Error("second Hide while in flight should be a no-op")
	}
}

func TestFade_CompleteTwice(t *testing.T) {
	f := NewFader(0).Hide()
	f.Complete()
	f.Complete()
	if !f.Completed() {
		t.Error("fade should be completed")
	}
}
