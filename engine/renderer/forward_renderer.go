package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// ShaderCode is the SPIR-V every forward pipeline is built from.
type ShaderCode struct {
	Vertex   []byte
	Fragment []byte
}

type registeredMaterialType struct {
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// frameSource is the part of the render target the renderer drives.
type frameSource interface {
	SetListener(listener vulkan.RenderTargetListener) error
	StartFrame() (*vulkan.Frame, error)
	EndFrame() error
	OnResize()
}

// forwardDevice holds the GPU objects sized or formatted after the render
// target, plus pipeline construction.
type forwardDevice interface {
	buildPass(format vk.Format) error
	releasePass()
	buildTargets(target vulkan.RenderTarget) error
	releaseTargets()

	createLayout(set vk.DescriptorSetLayout) (vk.PipelineLayout, error)
	destroyLayout(layout vk.PipelineLayout)
	createPipeline(layout vk.PipelineLayout, shaders ShaderCode) (vk.Pipeline, error)
	destroyPipeline(pipeline vk.Pipeline)

	beginPass(frame *vulkan.Frame, extent vk.Extent2D) (commandSink, error)
	endPass(frame *vulkan.Frame) error
	waitIdle() error
}

// ForwardRenderer records one multisampled forward pass per frame. Pipelines
// are created per registered material type, keyed by descriptor-set layout.
type ForwardRenderer struct {
	device  forwardDevice
	source  frameSource
	shaders ShaderCode
	target  vulkan.RenderTarget

	registered map[vk.DescriptorSetLayout]*registeredMaterialType
	recorder   *CommandRecorder
	frame      *vulkan.Frame
}

func NewForwardRenderer(context *vulkan.VulkanContext, target *vulkan.WindowRenderTarget, shaders ShaderCode) (*ForwardRenderer, error) {
	device := &vulkanForwardDevice{
		context: context,
		samples: context.Device.MaxSampleCount,
	}
	return newForwardRenderer(device, target, shaders)
}

func newForwardRenderer(device forwardDevice, source frameSource, shaders ShaderCode) (*ForwardRenderer, error) {
	r := &ForwardRenderer{
		device:     device,
		source:     source,
		shaders:    shaders,
		registered: make(map[vk.DescriptorSetLayout]*registeredMaterialType),
	}
	if err := source.SetListener(r); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// RegisterMaterialType builds the pipeline for materials of this layout.
// Registering a layout twice is a no-op.
func (r *ForwardRenderer) RegisterMaterialType(layout vk.DescriptorSetLayout) error {
	if _, ok := r.registered[layout]; ok {
		return nil
	}
	pipelineLayout, err := r.device.createLayout(layout)
	if err != nil {
		return err
	}
	pipeline, err := r.device.createPipeline(pipelineLayout, r.shaders)
	if err != nil {
		r.device.destroyLayout(pipelineLayout)
		return err
	}
	r.registered[layout] = &registeredMaterialType{layout: pipelineLayout, pipeline: pipeline}
	return nil
}

// StartFrame reports false when the frame was skipped because the surface
// had to be rebuilt. Draw must not be called for a skipped frame.
func (r *ForwardRenderer) StartFrame() (bool, error) {
	frame, err := r.source.StartFrame()
	if err != nil {
		return false, err
	}
	return frame != nil, nil
}

func (r *ForwardRenderer) Draw(mesh *Mesh, material *Material, mvp math.Mat4) error {
	reg, ok := r.registered[material.Type.Layout()]
	if !ok {
		return fmt.Errorf("material type %q: %w", material.Type.Name, core.ErrMaterialTypeNotRegistered)
	}
	if r.recorder == nil {
		return fmt.Errorf("Draw called outside of a frame")
	}
	r.recorder.Draw(mesh, reg.pipeline, reg.layout, material, mvp)
	return nil
}

func (r *ForwardRenderer) EndFrame() error {
	return r.source.EndFrame()
}

func (r *ForwardRenderer) OnResize() {
	r.source.OnResize()
}

// Extent is the size of the images currently presented.
func (r *ForwardRenderer) Extent() vk.Extent2D {
	return r.target.Extent
}

// ReloadShaders rebuilds every registered pipeline from new code. When any
// pipeline fails to build the previous ones stay in use.
func (r *ForwardRenderer) ReloadShaders(shaders ShaderCode) error {
	if err := r.device.waitIdle(); err != nil {
		return err
	}
	built := make(map[vk.DescriptorSetLayout]vk.Pipeline, len(r.registered))
	for set, reg := range r.registered {
		pipeline, err := r.device.createPipeline(reg.layout, shaders)
		if err != nil {
			for _, p := range built {
				r.device.destroyPipeline(p)
			}
			return fmt.Errorf("shader reload: %w", err)
		}
		built[set] = pipeline
	}
	for set, reg := range r.registered {
		r.device.destroyPipeline(reg.pipeline)
		reg.pipeline = built[set]
	}
	r.shaders = shaders
	core.LogInfo("Shaders reloaded, %d pipelines rebuilt.", len(built))
	return nil
}

func (r *ForwardRenderer) NotifySetRenderTarget(target vulkan.RenderTarget) error {
	r.target = target
	if err := r.device.buildPass(target.Format); err != nil {
		return err
	}
	return r.device.buildTargets(target)
}

func (r *ForwardRenderer) NotifyUpdateImageExtent(target vulkan.RenderTarget) error {
	r.target = target
	r.device.releaseTargets()
	return r.device.buildTargets(target)
}

// NotifyUpdateImageFormat rebuilds the render pass and, because pipelines
// are only compatible with the pass they were built for, every pipeline.
func (r *ForwardRenderer) NotifyUpdateImageFormat(target vulkan.RenderTarget) error {
	r.target = target
	r.device.releaseTargets()
	r.device.releasePass()
	if err := r.device.buildPass(target.Format); err != nil {
		return err
	}
	if err := r.device.buildTargets(target); err != nil {
		return err
	}
	for _, reg := range r.registered {
		r.device.destroyPipeline(reg.pipeline)
		reg.pipeline = nil
		pipeline, err := r.device.createPipeline(reg.layout, r.shaders)
		if err != nil {
			return err
		}
		reg.pipeline = pipeline
	}
	return nil
}

func (r *ForwardRenderer) NotifyStartFrame(frame *vulkan.Frame) error {
	sink, err := r.device.beginPass(frame, r.target.Extent)
	if err != nil {
		return err
	}
	r.frame = frame
	r.recorder = newCommandRecorder(sink)
	return nil
}

func (r *ForwardRenderer) NotifyEndFrame(frame *vulkan.Frame) error {
	r.recorder = nil
	r.frame = nil
	return r.device.endPass(frame)
}

// Destroy releases pipelines and targets. The render target itself belongs
// to the caller and is destroyed after the renderer.
func (r *ForwardRenderer) Destroy() {
	if err := r.device.waitIdle(); err != nil {
		core.LogWarn("forward renderer teardown: %s", err)
	}
	for set, reg := range r.registered {
		if reg.pipeline != nil {
			r.device.destroyPipeline(reg.pipeline)
		}
		r.device.destroyLayout(reg.layout)
		delete(r.registered, set)
	}
	r.device.releaseTargets()
	r.device.releasePass()
}

type vulkanForwardDevice struct {
	context *vulkan.VulkanContext
	samples vk.SampleCountFlagBits

	renderPass   *vulkan.VulkanRenderpass
	color        *vulkan.ImageAttachment
	depth        *vulkan.ImageAttachment
	framebuffers []*vulkan.VulkanFramebuffer
}

func (d *vulkanForwardDevice) buildPass(format vk.Format) error {
	rp, err := vulkan.RenderpassCreate(d.context, format, d.samples)
	if err != nil {
		return err
	}
	d.renderPass = rp
	return nil
}

func (d *vulkanForwardDevice) releasePass() {
	if d.renderPass != nil {
		d.renderPass.RenderpassDestroy(d.context)
		d.renderPass = nil
	}
}

func (d *vulkanForwardDevice) buildTargets(target vulkan.RenderTarget) error {
	w, h := target.Extent.Width, target.Extent.Height
	color, err := vulkan.NewImageAttachment(d.context, w, h, target.Format,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransientAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit), d.samples)
	if err != nil {
		return err
	}
	d.color = color
	depth, err := vulkan.NewImageAttachment(d.context, w, h, vulkan.DEPTH_FORMAT,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), d.samples)
	if err != nil {
		return err
	}
	d.depth = depth
	framebuffers, err := vulkan.ForwardFramebuffers(d.context, d.renderPass, target.Extent, color, depth, target.Views)
	if err != nil {
		return err
	}
	d.framebuffers = framebuffers
	return nil
}

func (d *vulkanForwardDevice) releaseTargets() {
	for _, fb := range d.framebuffers {
		fb.Destroy(d.context)
	}
	d.framebuffers = nil
	if d.depth != nil {
		d.depth.Destroy(d.context)
		d.depth = nil
	}
	if d.color != nil {
		d.color.Destroy(d.context)
		d.color = nil
	}
}

func (d *vulkanForwardDevice) createLayout(set vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	return vulkan.CreatePipelineLayout(d.context, []vk.DescriptorSetLayout{set})
}

func (d *vulkanForwardDevice) destroyLayout(layout vk.PipelineLayout) {
	vulkan.DestroyPipelineLayout(d.context, layout)
}

func (d *vulkanForwardDevice) createPipeline(layout vk.PipelineLayout, shaders ShaderCode) (vk.Pipeline, error) {
	vert, err := vulkan.NewShaderStage(d.context, shaders.Vertex, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer vert.Destroy(d.context)
	frag, err := vulkan.NewShaderStage(d.context, shaders.Fragment, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer frag.Destroy(d.context)

	stages := []vk.PipelineShaderStageCreateInfo{vert.ShaderStageCreateInfo, frag.ShaderStageCreateInfo}
	pipeline, err := vulkan.NewGraphicsPipeline(d.context, vulkan.ForwardPipelineConfig(d.renderPass, stages), layout)
	if err != nil {
		return nil, err
	}
	return pipeline.Handle, nil
}

func (d *vulkanForwardDevice) destroyPipeline(pipeline vk.Pipeline) {
	p := vulkan.VulkanPipeline{Handle: pipeline}
	p.Destroy(d.context)
}

func (d *vulkanForwardDevice) beginPass(frame *vulkan.Frame, extent vk.Extent2D) (commandSink, error) {
	if int(frame.ImageIndex) >= len(d.framebuffers) {
		return nil, fmt.Errorf("no framebuffer for swapchain image %d", frame.ImageIndex)
	}
	cb := frame.CommandBuffer
	if err := cb.Begin(false, false, false); err != nil {
		return nil, err
	}
	d.renderPass.RenderpassBegin(cb, d.framebuffers[frame.ImageIndex].Handle, extent)
	return vulkanCommandSink{cb: cb.Handle}, nil
}

func (d *vulkanForwardDevice) endPass(frame *vulkan.Frame) error {
	d.renderPass.RenderpassEnd(frame.CommandBuffer)
	return frame.CommandBuffer.End()
}

func (d *vulkanForwardDevice) waitIdle() error {
	return d.context.WaitIdle()
}
