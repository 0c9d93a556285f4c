package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type fakeWindow struct {
	sizes [][2]uint32
	waits int
}

func (w *fakeWindow) FramebufferSize() (uint32, uint32) {
	s := w.sizes[0]
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
	return s[0], s[1]
}

func (w *fakeWindow) WaitEvents() { w.waits++ }

type fakePresenter struct {
	slots       uint32
	format      vk.Format
	recreates   int
	lastSize    [2]uint32
	acquireErrs []error
	presentSub  []bool

	outstanding    []int
	maxOutstanding int
	nextImage      uint32
	rebuiltSlots   []uint32
}

func newFakePresenter(slots uint32) *fakePresenter {
	return &fakePresenter{slots: slots, format: vk.FormatB8g8r8a8Srgb, outstanding: make([]int, slots)}
}

func (p *fakePresenter) total() int {
	n := 0
	for _, o := range p.outstanding {
		n += o
	}
	return n
}

// Waiting on a slot retires the submission that slot owns.
func (p *fakePresenter) waitFrame(slot uint32) error {
	p.outstanding[slot] = 0
	return nil
}

func (p *fakePresenter) acquire(slot uint32) (uint32, error) {
	if len(p.acquireErrs) > 0 {
		err := p.acquireErrs[0]
		p.acquireErrs = p.acquireErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	idx := p.nextImage
	p.nextImage = (p.nextImage + 1) % 3
	return idx, nil
}

func (p *fakePresenter) resetFrame(slot uint32) error { return nil }

func (p *fakePresenter) frameSignaled(slot uint32) (bool, error) {
	return p.outstanding[slot] == 0, nil
}

func (p *fakePresenter) rebuildSlot(slot uint32) error {
	p.rebuiltSlots = append(p.rebuiltSlots, slot)
	return nil
}

func (p *fakePresenter) commandBuffer(slot uint32) *VulkanCommandBuffer {
	return &VulkanCommandBuffer{}
}

func (p *fakePresenter) submit(slot uint32) error {
	p.outstanding[slot]++
	if t := p.total(); t > p.maxOutstanding {
		p.maxOutstanding = t
	}
	return nil
}

func (p *fakePresenter) present(slot, imageIndex uint32) (bool, error) {
	if len(p.presentSub) > 0 {
		s := p.presentSub[0]
		p.presentSub = p.presentSub[1:]
		return s, nil
	}
	return false, nil
}

func (p *fakePresenter) waitIdle() error {
	for i := range p.outstanding {
		p.outstanding[i] = 0
	}
	return nil
}

func (p *fakePresenter) recreate(width, height uint32) (RenderTarget, error) {
	p.recreates++
	p.lastSize = [2]uint32{width, height}
	return RenderTarget{
		Extent: vk.Extent2D{Width: width, Height: height},
		Format: p.format,
		Views:  make([]vk.ImageView, 3),
	}, nil
}

func (p *fakePresenter) destroy() {}

type recordingListener struct {
	set, extent, format, starts, ends int
	last                              RenderTarget
	startErr                          error
}

func (l *recordingListener) NotifySetRenderTarget(t RenderTarget) error {
	l.set++
	l.last = t
	return nil
}

func (l *recordingListener) NotifyUpdateImageExtent(t RenderTarget) error {
	l.extent++
	l.last = t
	return nil
}

func (l *recordingListener) NotifyUpdateImageFormat(t RenderTarget) error {
	l.format++
	l.last = t
	return nil
}

func (l *recordingListener) NotifyStartFrame(f *Frame) error {
	if err := l.startErr; err != nil {
		l.startErr = nil
		return err
	}
	l.starts++
	return nil
}
func (l *recordingListener) NotifyEndFrame(f *Frame) error { l.ends++; return nil }

func newTestTarget(t *testing.T, slots uint32, window *fakeWindow) (*WindowRenderTarget, *fakePresenter, *recordingListener) {
	t.Helper()
	p := newFakePresenter(slots)
	rt, err := newWindowRenderTarget(p, window, slots)
	if err != nil {
		t.Fatalf("newWindowRenderTarget: %v", err)
	}
	l := &recordingListener{}
	if err := rt.SetListener(l); err != nil {
		t.Fatalf("SetListener: %v", err)
	}
	return rt, p, l
}

func runFrame(t *testing.T, rt *WindowRenderTarget) *Frame {
	t.Helper()
	frame, err := rt.StartFrame()
	if err != nil {
		t.Fatalf("StartFrame: %v", err)
	}
	if frame == nil {
		return nil
	}
	if rt.State() != FRAME_STATE_RECORDING {
		t.Fatalf("state after StartFrame = %s", rt.State())
	}
	if err := rt.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if rt.State() != FRAME_STATE_IDLE {
		t.Fatalf("state after EndFrame = %s", rt.State())
	}
	return frame
}

func TestResizeIsIdempotent(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{800, 600}}}
	rt, p, l := newTestTarget(t, 1, window)
	if l.set != 1 {
		t.Fatalf("listener saw %d initial targets", l.set)
	}

	window.sizes = [][2]uint32{{1024, 768}}
	rt.OnResize()
	rt.OnResize()
	rt.OnResize()
	runFrame(t, rt)
	if p.recreates != 2 {
		t.Fatalf("three resize notifications caused %d rebuilds, want 1", p.recreates-1)
	}
	if l.extent != 1 || l.format != 0 {
		t.Fatalf("listener notifications: extent=%d format=%d", l.extent, l.format)
	}
	first := rt.Target()

	rt.OnResize()
	runFrame(t, rt)
	second := rt.Target()
	if first.Extent != second.Extent || first.Format != second.Format {
		t.Fatalf("resize to the same size changed the target: %+v -> %+v", first.Extent, second.Extent)
	}

	runFrame(t, rt)
	if p.recreates != 3 {
		t.Fatalf("a frame without a resize rebuilt the target")
	}
	if l.starts != 3 || l.ends != 3 {
		t.Fatalf("start/end notifications: %d/%d", l.starts, l.ends)
	}
}

func TestMinimisedWindowBlocksRebuild(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, _ := newTestTarget(t, 1, window)

	window.sizes = [][2]uint32{{0, 0}, {0, 480}, {0, 0}, {320, 240}}
	rt.OnResize()
	runFrame(t, rt)
	if window.waits != 3 {
		t.Fatalf("waited for events %d times, want 3", window.waits)
	}
	if p.lastSize != [2]uint32{320, 240} {
		t.Fatalf("rebuilt at %v, want the first non-empty size", p.lastSize)
	}
}

func TestOutOfDateAcquireSkipsFrame(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, l := newTestTarget(t, 1, window)
	p.acquireErrs = []error{core.ErrSwapchainOutOfDate}

	frame, err := rt.StartFrame()
	if err != nil || frame != nil {
		t.Fatalf("out-of-date acquire: frame=%v err=%v", frame, err)
	}
	if p.recreates != 2 || l.extent != 1 {
		t.Fatalf("out-of-date acquire must rebuild once, recreates=%d", p.recreates)
	}
	if rt.State() != FRAME_STATE_IDLE {
		t.Fatalf("state = %s after skipped frame", rt.State())
	}
	if runFrame(t, rt) == nil {
		t.Fatalf("next frame should proceed")
	}
}

func TestSuboptimalPresentRebuilds(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, _ := newTestTarget(t, 1, window)
	p.presentSub = []bool{true}
	runFrame(t, rt)
	if p.recreates != 2 {
		t.Fatalf("suboptimal present did not rebuild")
	}
}

func TestFormatChangeNotifiesFormat(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, l := newTestTarget(t, 1, window)
	p.format = vk.FormatR8g8b8a8Unorm
	rt.OnResize()
	runFrame(t, rt)
	if l.format != 1 || l.extent != 0 {
		t.Fatalf("format change: format=%d extent=%d", l.format, l.extent)
	}
	if l.last.Format != vk.FormatR8g8b8a8Unorm {
		t.Fatalf("listener got format %d", l.last.Format)
	}
}

func TestFrameRingBound(t *testing.T) {
	for _, slots := range []uint32{1, 2, 3} {
		window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
		rt, p, _ := newTestTarget(t, slots, window)
		for i := 0; i < 20; i++ {
			frame := runFrame(t, rt)
			if frame.FrameIndex != uint32(i)%slots {
				t.Fatalf("slots=%d frame %d used slot %d", slots, i, frame.FrameIndex)
			}
			if i == 7 {
				rt.OnResize()
			}
		}
		if p.maxOutstanding > int(slots) {
			t.Fatalf("slots=%d: %d submissions outstanding at once", slots, p.maxOutstanding)
		}
		if p.maxOutstanding != int(slots) {
			t.Fatalf("slots=%d: ring never filled, max outstanding %d", slots, p.maxOutstanding)
		}
	}
}

func TestFrameMisuse(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, _, _ := newTestTarget(t, 1, window)
	if err := rt.EndFrame(); err == nil {
		t.Fatalf("EndFrame without StartFrame must fail")
	}
	if _, err := rt.StartFrame(); err != nil {
		t.Fatalf("StartFrame: %v", err)
	}
	if _, err := rt.StartFrame(); err == nil {
		t.Fatalf("nested StartFrame must fail")
	}
}

func TestAcquireErrorPropagates(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, _ := newTestTarget(t, 1, window)
	lost := errors.New("device lost")
	p.acquireErrs = []error{lost}
	if _, err := rt.StartFrame(); !errors.Is(err, lost) {
		t.Fatalf("got %v, want %v", err, lost)
	}
}

func TestListenerStartFailureReleasesFrame(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, l := newTestTarget(t, 2, window)
	broken := errors.New("begin command buffer")
	l.startErr = broken

	if _, err := rt.StartFrame(); !errors.Is(err, broken) {
		t.Fatalf("got %v, want %v", err, broken)
	}
	if rt.State() != FRAME_STATE_IDLE || rt.active != nil {
		t.Fatalf("failed start left state=%s active=%v", rt.State(), rt.active)
	}
	if len(p.rebuiltSlots) != 1 || p.rebuiltSlots[0] != 0 {
		t.Fatalf("rebuilt slots = %v, want [0]", p.rebuiltSlots)
	}

	recreates := p.recreates
	if frame := runFrame(t, rt); frame == nil || frame.FrameIndex != 0 {
		t.Fatalf("next frame = %+v, want slot 0", frame)
	}
	if p.recreates != recreates+1 {
		t.Fatalf("the swapchain must be rebuilt after an abandoned frame")
	}
	if l.starts != 1 || l.ends != 1 {
		t.Fatalf("starts=%d ends=%d", l.starts, l.ends)
	}
}

func TestFrameSignaled(t *testing.T) {
	window := &fakeWindow{sizes: [][2]uint32{{640, 480}}}
	rt, p, _ := newTestTarget(t, 2, window)
	if ok, err := rt.FrameSignaled(0); err != nil || !ok {
		t.Fatalf("unused slot: %v, %v", ok, err)
	}
	frame := runFrame(t, rt)
	if ok, _ := rt.FrameSignaled(frame.FrameIndex); ok {
		t.Fatalf("slot %d reported finished while its submission is outstanding", frame.FrameIndex)
	}
	if err := p.waitIdle(); err != nil {
		t.Fatalf("waitIdle: %v", err)
	}
	if ok, err := rt.FrameSignaled(frame.FrameIndex); err != nil || !ok {
		t.Fatalf("after idle: %v, %v", ok, err)
	}
	if _, err := rt.FrameSignaled(2); err == nil {
		t.Fatalf("slot out of range must fail")
	}
}
