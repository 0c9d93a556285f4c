package vulkan

import (
	"errors"
	"testing"
)

func TestTempCommandBufferReleasesOnce(t *testing.T) {
	released := 0
	first := &TempCommandBuffer{
		armed: true,
		release: func() error {
			released++
			return nil
		},
	}

	second := first.Take()
	if first.Armed() || !second.Armed() {
		t.Fatalf("Take must move the obligation: first=%v second=%v", first.Armed(), second.Armed())
	}
	if err := first.End(); err != nil {
		t.Fatalf("End on a disarmed buffer: %v", err)
	}
	if released != 0 {
		t.Fatalf("disarmed End must not release, released=%d", released)
	}

	third := second.Take()
	if err := third.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := third.End(); err != nil {
		t.Fatalf("second End: %v", err)
	}
	_ = second.End()
	if released != 1 {
		t.Fatalf("release ran %d times, want exactly 1", released)
	}
}

func TestTempCommandBufferReportsReleaseError(t *testing.T) {
	boom := errors.New("queue lost")
	tmp := &TempCommandBuffer{armed: true, release: func() error { return boom }}
	if err := tmp.End(); !errors.Is(err, boom) {
		t.Fatalf("End error = %v, want wrapping %v", err, boom)
	}
	if tmp.Armed() {
		t.Fatalf("a failed release still consumes the obligation")
	}
}

func TestTempCommandBufferDisarm(t *testing.T) {
	released := false
	tmp := &TempCommandBuffer{armed: true, release: func() error { released = true; return nil }}
	tmp.Disarm()
	if err := tmp.End(); err != nil || released {
		t.Fatalf("End after Disarm: err=%v released=%v", err, released)
	}
}
