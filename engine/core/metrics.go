package core

import (
	"time"

	"github.com/spaghettifunk/anima-forward/engine/containers"
)

const AVG_COUNT int = 30

// FrameCounter accumulates frame times. Totals cover the whole run, the
// rolling average covers the last AVG_COUNT frames.
type FrameCounter struct {
	FrameCount     uint64
	FrameTimeTotal float64 // ms

	last      time.Time
	window    *containers.RingQueue[float64]
	windowSum float64
	now       func() time.Time
}

func NewFrameCounter() *FrameCounter {
	return &FrameCounter{
		window: containers.NewRingQueue[float64](AVG_COUNT),
		now:    time.Now,
	}
}

// Tick records the time since the previous tick. The first tick only starts
// the stopwatch.
func (fc *FrameCounter) Tick() {
	now := fc.now()
	if fc.last.IsZero() {
		fc.last = now
		return
	}
	fc.record(float64(now.Sub(fc.last).Microseconds()) / 1000.0)
	fc.last = now
}

func (fc *FrameCounter) record(ms float64) {
	fc.FrameCount++
	fc.FrameTimeTotal += ms
	if fc.window.IsFull() {
		old, _ := fc.window.Dequeue()
		fc.windowSum -= old
	}
	_ = fc.window.Enqueue(ms)
	fc.windowSum += ms
}

// FrameTimeAvg is the mean frame time in ms over the whole run.
func (fc *FrameCounter) FrameTimeAvg() float64 {
	if fc.FrameCount == 0 {
		return 0
	}
	return fc.FrameTimeTotal / float64(fc.FrameCount)
}

// FPSAvg is the mean frame rate over the whole run.
func (fc *FrameCounter) FPSAvg() float64 {
	if fc.FrameTimeTotal == 0 {
		return 0
	}
	return 1000 * float64(fc.FrameCount) / fc.FrameTimeTotal
}

// RecentFrameTime is the mean over the last AVG_COUNT frames, in ms.
func (fc *FrameCounter) RecentFrameTime() float64 {
	if fc.window.Len() == 0 {
		return 0
	}
	return fc.windowSum / float64(fc.window.Len())
}

func (fc *FrameCounter) Reset() {
	*fc = FrameCounter{
		window: containers.NewRingQueue[float64](AVG_COUNT),
		now:    fc.now,
	}
}
