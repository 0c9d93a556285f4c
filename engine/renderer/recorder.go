package renderer

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// LazyUpdate remembers the last value and reports whether a new one differs.
type LazyUpdate[T comparable] struct {
	last T
}

func (l *LazyUpdate[T]) Update(value T) bool {
	if l.last == value {
		return false
	}
	l.last = value
	return true
}

// commandSink is the subset of command recording the recorder issues.
type commandSink interface {
	bindVertexBuffer(buffer vk.Buffer)
	bindIndexBuffer(buffer vk.Buffer)
	bindPipeline(pipeline vk.Pipeline)
	bindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet)
	pushMVP(layout vk.PipelineLayout, mvp *math.Mat4)
	drawIndexed(indexCount uint32)
	draw(vertexCount uint32)
}

type vulkanCommandSink struct {
	cb vk.CommandBuffer
}

func (s vulkanCommandSink) bindVertexBuffer(buffer vk.Buffer) {
	vk.CmdBindVertexBuffers(s.cb, 0, 1, []vk.Buffer{buffer}, []vk.DeviceSize{0})
}

func (s vulkanCommandSink) bindIndexBuffer(buffer vk.Buffer) {
	vk.CmdBindIndexBuffer(s.cb, buffer, 0, vk.IndexTypeUint32)
}

func (s vulkanCommandSink) bindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(s.cb, vk.PipelineBindPointGraphics, pipeline)
}

func (s vulkanCommandSink) bindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(s.cb, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (s vulkanCommandSink) pushMVP(layout vk.PipelineLayout, mvp *math.Mat4) {
	vk.CmdPushConstants(s.cb, layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0,
		vulkan.PUSH_CONSTANT_MVP_SIZE, unsafe.Pointer(&mvp.Data[0]))
}

func (s vulkanCommandSink) drawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(s.cb, indexCount, 1, 0, 0, 0)
}

func (s vulkanCommandSink) draw(vertexCount uint32) {
	vk.CmdDraw(s.cb, vertexCount, 1, 0, 0)
}

// CommandRecorder records draws for one frame and skips binds that would
// not change state. It lives from NotifyStartFrame to NotifyEndFrame.
type CommandRecorder struct {
	sink commandSink

	lastVertexBuffer LazyUpdate[vk.Buffer]
	lastIndexBuffer  LazyUpdate[vk.Buffer]
	lastPipeline     LazyUpdate[vk.Pipeline]
	lastMaterialSet  LazyUpdate[vk.DescriptorSet]
}

func newCommandRecorder(sink commandSink) *CommandRecorder {
	return &CommandRecorder{sink: sink}
}

// Draw binds what changed, pushes the MVP and issues the draw.
func (r *CommandRecorder) Draw(mesh *Mesh, pipeline vk.Pipeline, layout vk.PipelineLayout, material *Material, mvp math.Mat4) {
	if r.lastVertexBuffer.Update(mesh.VertexBuffer) {
		r.sink.bindVertexBuffer(mesh.VertexBuffer)
	}
	if mesh.Indexed && r.lastIndexBuffer.Update(mesh.IndexBuffer) {
		r.sink.bindIndexBuffer(mesh.IndexBuffer)
	}
	if r.lastPipeline.Update(pipeline) {
		r.sink.bindPipeline(pipeline)
	}
	if r.lastMaterialSet.Update(material.DescriptorSet) {
		r.sink.bindDescriptorSet(layout, material.DescriptorSet)
	}
	r.sink.pushMVP(layout, &mvp)
	if mesh.Indexed {
		r.sink.drawIndexed(mesh.IndexCount)
	} else {
		r.sink.draw(mesh.VertexCount)
	}
}
