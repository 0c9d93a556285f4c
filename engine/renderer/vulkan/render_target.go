package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRING
	FRAME_STATE_RECORDING
	FRAME_STATE_SUBMITTED
	FRAME_STATE_PRESENTING
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_ACQUIRING:
		return "acquiring"
	case FRAME_STATE_RECORDING:
		return "recording"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_PRESENTING:
		return "presenting"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// Frame is the slot and swapchain image a frame is recorded into.
type Frame struct {
	CommandBuffer *VulkanCommandBuffer
	FrameIndex    uint32
	ImageIndex    uint32
}

// RenderTarget describes the presentable images. Extent, format and views
// may all change when the surface is rebuilt.
type RenderTarget struct {
	Extent      vk.Extent2D
	Format      vk.Format
	PresentMode vk.PresentMode
	Views       []vk.ImageView
}

// RenderTargetListener owns everything sized or formatted after the target.
type RenderTargetListener interface {
	NotifySetRenderTarget(target RenderTarget) error
	// Views and extent changed, format did not.
	NotifyUpdateImageExtent(target RenderTarget) error
	// Format changed: render pass compatibility is gone.
	NotifyUpdateImageFormat(target RenderTarget) error
	NotifyStartFrame(frame *Frame) error
	NotifyEndFrame(frame *Frame) error
}

// Window is what the render target needs from the platform layer.
type Window interface {
	FramebufferSize() (uint32, uint32)
	WaitEvents()
}

// presenter hides swapchain and frame-slot plumbing from the state machine.
type presenter interface {
	waitFrame(slot uint32) error
	// Returns core.ErrSwapchainOutOfDate when the surface changed under us.
	acquire(slot uint32) (uint32, error)
	resetFrame(slot uint32) error
	// frameSignaled reports whether the slot's last submission has completed.
	frameSignaled(slot uint32) (bool, error)
	// rebuildSlot replaces a slot whose fence was reset but never submitted.
	rebuildSlot(slot uint32) error
	commandBuffer(slot uint32) *VulkanCommandBuffer
	submit(slot uint32) error
	// suboptimal reports a presentable but mismatched swapchain.
	present(slot, imageIndex uint32) (suboptimal bool, err error)
	waitIdle() error
	recreate(width, height uint32) (RenderTarget, error)
	destroy()
}

type RenderTargetConfig struct {
	FramesInFlight uint32
	PresentModes   []vk.PresentMode
}

// WindowRenderTarget drives acquire, record, submit and present for a window
// surface and rebuilds the swapchain whenever the surface goes stale.
type WindowRenderTarget struct {
	presenter presenter
	window    Window
	listener  RenderTargetListener

	target         RenderTarget
	framesInFlight uint32
	frameIndex     uint32
	active         *Frame
	state          FrameState
	resizePending  bool
}

func NewWindowRenderTarget(context *VulkanContext, window Window, config RenderTargetConfig) (*WindowRenderTarget, error) {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = DEFAULT_MAX_FRAMES_IN_FLIGHT
	}
	p, err := newVulkanPresenter(context, config)
	if err != nil {
		return nil, err
	}
	rt, err := newWindowRenderTarget(p, window, config.FramesInFlight)
	if err != nil {
		p.destroy()
		return nil, err
	}
	return rt, nil
}

func newWindowRenderTarget(p presenter, window Window, framesInFlight uint32) (*WindowRenderTarget, error) {
	rt := &WindowRenderTarget{
		presenter:      p,
		window:         window,
		framesInFlight: framesInFlight,
	}
	w, h := rt.waitForArea()
	target, err := p.recreate(w, h)
	if err != nil {
		return nil, err
	}
	rt.target = target
	return rt, nil
}

func (rt *WindowRenderTarget) Target() RenderTarget { return rt.target }
func (rt *WindowRenderTarget) State() FrameState    { return rt.state }
func (rt *WindowRenderTarget) FramesInFlight() uint32 {
	return rt.framesInFlight
}

// FrameSignaled reports whether the GPU has finished the work last submitted
// from slot. A slot that was never submitted counts as finished.
func (rt *WindowRenderTarget) FrameSignaled(slot uint32) (bool, error) {
	if slot >= rt.framesInFlight {
		return false, fmt.Errorf("frame slot %d of %d", slot, rt.framesInFlight)
	}
	return rt.presenter.frameSignaled(slot)
}

// SetListener attaches the renderer and hands it the current target.
func (rt *WindowRenderTarget) SetListener(listener RenderTargetListener) error {
	rt.listener = listener
	return listener.NotifySetRenderTarget(rt.target)
}

// OnResize schedules a rebuild before the next acquire. Repeated calls
// between frames collapse into one rebuild.
func (rt *WindowRenderTarget) OnResize() {
	rt.resizePending = true
}

// StartFrame waits for the slot, acquires an image and opens recording. A nil
// frame with a nil error means the surface was rebuilt and the caller should
// skip this frame.
func (rt *WindowRenderTarget) StartFrame() (*Frame, error) {
	if rt.active != nil {
		return nil, fmt.Errorf("StartFrame called while frame %d is %s", rt.active.FrameIndex, rt.state)
	}
	if rt.resizePending {
		if err := rt.rebuild(); err != nil {
			return nil, err
		}
	}

	slot := rt.frameIndex
	rt.state = FRAME_STATE_ACQUIRING
	if err := rt.presenter.waitFrame(slot); err != nil {
		rt.state = FRAME_STATE_IDLE
		return nil, err
	}
	imageIndex, err := rt.presenter.acquire(slot)
	if err != nil {
		rt.state = FRAME_STATE_IDLE
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			return nil, rt.rebuild()
		}
		return nil, err
	}
	// The image-available semaphore is now pending, so the frame must go ahead.
	if err := rt.presenter.resetFrame(slot); err != nil {
		rt.state = FRAME_STATE_IDLE
		return nil, err
	}

	frame := &Frame{
		CommandBuffer: rt.presenter.commandBuffer(slot),
		FrameIndex:    slot,
		ImageIndex:    imageIndex,
	}
	rt.active = frame
	rt.state = FRAME_STATE_RECORDING
	if rt.listener != nil {
		if err := rt.listener.NotifyStartFrame(frame); err != nil {
			return nil, rt.abandonFrame(slot, err)
		}
	}
	return frame, nil
}

// abandonFrame drops a frame that was acquired but will not be submitted.
// Its fence would never signal again, so the slot is rebuilt, and the
// swapchain is rebuilt before the next acquire to release the image.
func (rt *WindowRenderTarget) abandonFrame(slot uint32, cause error) error {
	rt.active = nil
	rt.state = FRAME_STATE_IDLE
	rt.resizePending = true
	if err := rt.presenter.rebuildSlot(slot); err != nil {
		return errors.Join(cause, fmt.Errorf("rebuilding frame slot %d: %w", slot, err))
	}
	return cause
}

// EndFrame closes recording, submits and presents. A stale surface reported
// by present schedules a rebuild instead of failing.
func (rt *WindowRenderTarget) EndFrame() error {
	frame := rt.active
	if frame == nil {
		return fmt.Errorf("EndFrame called without an active frame")
	}
	defer func() {
		rt.active = nil
		rt.state = FRAME_STATE_IDLE
		rt.frameIndex = (rt.frameIndex + 1) % rt.framesInFlight
	}()

	if rt.listener != nil {
		if err := rt.listener.NotifyEndFrame(frame); err != nil {
			return err
		}
	}
	if err := rt.presenter.submit(frame.FrameIndex); err != nil {
		return err
	}
	rt.state = FRAME_STATE_SUBMITTED

	rt.state = FRAME_STATE_PRESENTING
	suboptimal, err := rt.presenter.present(frame.FrameIndex, frame.ImageIndex)
	switch {
	case errors.Is(err, core.ErrSwapchainOutOfDate), err == nil && suboptimal:
		return rt.rebuild()
	case err != nil:
		return err
	}
	return nil
}

// waitForArea blocks while the window is minimised.
func (rt *WindowRenderTarget) waitForArea() (uint32, uint32) {
	w, h := rt.window.FramebufferSize()
	for w == 0 || h == 0 {
		rt.window.WaitEvents()
		w, h = rt.window.FramebufferSize()
	}
	return w, h
}

func (rt *WindowRenderTarget) rebuild() error {
	rt.resizePending = false
	w, h := rt.waitForArea()
	if err := rt.presenter.waitIdle(); err != nil {
		return err
	}
	target, err := rt.presenter.recreate(w, h)
	if err != nil {
		return fmt.Errorf("rebuilding render target: %w", err)
	}
	previous := rt.target
	rt.target = target
	core.LogDebug("Render target rebuilt: %dx%d.", target.Extent.Width, target.Extent.Height)

	if rt.listener == nil {
		return nil
	}
	if target.Format != previous.Format {
		return rt.listener.NotifyUpdateImageFormat(target)
	}
	return rt.listener.NotifyUpdateImageExtent(target)
}

// Destroy waits for the GPU and releases swapchain and frame slots.
func (rt *WindowRenderTarget) Destroy() {
	if rt.presenter == nil {
		return
	}
	if err := rt.presenter.waitIdle(); err != nil {
		core.LogWarn("render target teardown: %s", err)
	}
	rt.presenter.destroy()
	rt.presenter = nil
}

type frameSlot struct {
	commandBuffer  *VulkanCommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       *VulkanFence
}

type vulkanPresenter struct {
	context      *VulkanContext
	swapchain    *VulkanSwapchain
	presentModes []vk.PresentMode
	slots        []frameSlot
}

func newVulkanPresenter(context *VulkanContext, config RenderTargetConfig) (*vulkanPresenter, error) {
	p := &vulkanPresenter{
		context:      context,
		presentModes: config.PresentModes,
		slots:        make([]frameSlot, 0, config.FramesInFlight),
	}
	for i := uint32(0); i < config.FramesInFlight; i++ {
		slot, err := newFrameSlot(context)
		if err != nil {
			p.destroy()
			return nil, err
		}
		p.slots = append(p.slots, slot)
	}
	core.LogDebug("Created %d frame(s) in flight.", config.FramesInFlight)
	return p, nil
}

func createSemaphore(context *VulkanContext) (vk.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sem vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &info, context.Allocator, &sem); res != vk.Success {
		return vk.NullSemaphore, check(res, "vkCreateSemaphore", core.ErrResourceCreationFailed)
	}
	return sem, nil
}

func newFrameSlot(context *VulkanContext) (frameSlot, error) {
	var slot frameSlot
	cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
	if err != nil {
		return slot, err
	}
	slot.commandBuffer = cb
	if slot.imageAvailable, err = createSemaphore(context); err != nil {
		slot.destroy(context)
		return slot, err
	}
	if slot.renderFinished, err = createSemaphore(context); err != nil {
		slot.destroy(context)
		return slot, err
	}
	if slot.inFlight, err = NewFence(context, true); err != nil {
		slot.destroy(context)
		return slot, err
	}
	return slot, nil
}

func (s *frameSlot) destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if s.inFlight != nil {
		s.inFlight.FenceDestroy(context)
	}
	if s.renderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.renderFinished, context.Allocator)
		s.renderFinished = vk.NullSemaphore
	}
	if s.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.imageAvailable, context.Allocator)
		s.imageAvailable = vk.NullSemaphore
	}
	if s.commandBuffer != nil {
		s.commandBuffer.Free(context, context.Device.GraphicsCommandPool)
	}
}

func (p *vulkanPresenter) waitFrame(slot uint32) error {
	return p.slots[slot].inFlight.FenceWait(p.context, vk.MaxUint64)
}

func (p *vulkanPresenter) acquire(slot uint32) (uint32, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(p.context.Device.LogicalDevice, p.swapchain.Handle, vk.MaxUint64,
		p.slots[slot].imageAvailable, vk.NullFence, &imageIndex)
	switch res {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainOutOfDate
	default:
		return 0, check(res, "vkAcquireNextImageKHR", core.ErrResourceCreationFailed)
	}
}

func (p *vulkanPresenter) resetFrame(slot uint32) error {
	return p.slots[slot].inFlight.FenceReset(p.context)
}

func (p *vulkanPresenter) frameSignaled(slot uint32) (bool, error) {
	res := vk.GetFenceStatus(p.context.Device.LogicalDevice, p.slots[slot].inFlight.Handle)
	switch res {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, check(res, "vkGetFenceStatus", core.ErrResourceCreationFailed)
	}
}

func (p *vulkanPresenter) rebuildSlot(slot uint32) error {
	if err := p.context.WaitIdle(); err != nil {
		return err
	}
	p.slots[slot].destroy(p.context)
	fresh, err := newFrameSlot(p.context)
	if err != nil {
		return err
	}
	p.slots[slot] = fresh
	return nil
}

func (p *vulkanPresenter) commandBuffer(slot uint32) *VulkanCommandBuffer {
	return p.slots[slot].commandBuffer
}

func (p *vulkanPresenter) submit(slot uint32) error {
	s := &p.slots[slot]
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}
	if res := vk.QueueSubmit(p.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, s.inFlight.Handle); res != vk.Success {
		return check(res, "vkQueueSubmit", core.ErrResourceCreationFailed)
	}
	s.inFlight.FenceMarkSubmitted()
	s.commandBuffer.UpdateSubmitted()
	return nil
}

func (p *vulkanPresenter) present(slot, imageIndex uint32) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.slots[slot].renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{p.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	res := vk.QueuePresent(p.context.Device.PresentQueue, &presentInfo)
	switch res {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	case vk.ErrorOutOfDate:
		return false, core.ErrSwapchainOutOfDate
	default:
		return false, check(res, "vkQueuePresentKHR", core.ErrResourceCreationFailed)
	}
}

func (p *vulkanPresenter) waitIdle() error {
	return p.context.WaitIdle()
}

func (p *vulkanPresenter) recreate(width, height uint32) (RenderTarget, error) {
	old := p.swapchain
	swapchain, err := SwapchainCreate(p.context, width, height, p.presentModes, old)
	if err != nil {
		return RenderTarget{}, err
	}
	if old != nil {
		old.Destroy(p.context)
	}
	p.swapchain = swapchain
	return RenderTarget{
		Extent:      swapchain.Extent,
		Format:      swapchain.ImageFormat.Format,
		PresentMode: swapchain.PresentMode,
		Views:       swapchain.Views,
	}, nil
}

func (p *vulkanPresenter) destroy() {
	for i := range p.slots {
		p.slots[i].destroy(p.context)
	}
	p.slots = nil
	if p.swapchain != nil {
		p.swapchain.Destroy(p.context)
		p.swapchain = nil
	}
}
