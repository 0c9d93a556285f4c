package renderer

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

var fakeHandles [32]byte

func fakeBuffer(n int) vk.Buffer         { return vk.Buffer(unsafe.Pointer(&fakeHandles[n])) }
func fakePipeline(n int) vk.Pipeline     { return vk.Pipeline(unsafe.Pointer(&fakeHandles[n])) }
func fakeLayout(n int) vk.PipelineLayout { return vk.PipelineLayout(unsafe.Pointer(&fakeHandles[n])) }
func fakeSet(n int) vk.DescriptorSet     { return vk.DescriptorSet(unsafe.Pointer(&fakeHandles[n])) }
func fakeSetLayout(n int) vk.DescriptorSetLayout {
	return vk.DescriptorSetLayout(unsafe.Pointer(&fakeHandles[n]))
}

type countingSink struct {
	vertexBinds, indexBinds, pipelineBinds, setBinds int
	pushes, indexedDraws, draws                      int
	lastCount                                        uint32
	lastMVP                                          math.Mat4
}

func (s *countingSink) bindVertexBuffer(vk.Buffer)                            { s.vertexBinds++ }
func (s *countingSink) bindIndexBuffer(vk.Buffer)                             { s.indexBinds++ }
func (s *countingSink) bindPipeline(vk.Pipeline)                              { s.pipelineBinds++ }
func (s *countingSink) bindDescriptorSet(vk.PipelineLayout, vk.DescriptorSet) { s.setBinds++ }
func (s *countingSink) pushMVP(_ vk.PipelineLayout, mvp *math.Mat4) {
	s.pushes++
	s.lastMVP = *mvp
}
func (s *countingSink) drawIndexed(n uint32) { s.indexedDraws++; s.lastCount = n }
func (s *countingSink) draw(n uint32)        { s.draws++; s.lastCount = n }

func TestLazyUpdate(t *testing.T) {
	var l LazyUpdate[int]
	if l.Update(0) {
		t.Fatalf("the zero value is the initial state")
	}
	if !l.Update(3) || l.Update(3) {
		t.Fatalf("Update must report only changes")
	}
	if !l.Update(4) || !l.Update(3) {
		t.Fatalf("alternating values must each report a change")
	}
}

func TestCommandRecorderSkipsRedundantBinds(t *testing.T) {
	sink := &countingSink{}
	rec := newCommandRecorder(sink)

	cube := &Mesh{VertexBuffer: fakeBuffer(0), IndexBuffer: fakeBuffer(1), IndexCount: 36, Indexed: true}
	quad := &Mesh{VertexBuffer: fakeBuffer(2), VertexCount: 6}
	brick := &Material{DescriptorSet: fakeSet(3)}
	grass := &Material{DescriptorSet: fakeSet(4)}
	pipeline, layout := fakePipeline(5), fakeLayout(6)
	mvp := math.NewMat4Translation(math.NewVec3(1, 2, 3))

	rec.Draw(cube, pipeline, layout, brick, mvp)
	rec.Draw(cube, pipeline, layout, brick, mvp)
	if sink.vertexBinds != 1 || sink.indexBinds != 1 || sink.pipelineBinds != 1 || sink.setBinds != 1 {
		t.Fatalf("identical draws rebound state: %+v", sink)
	}
	if sink.pushes != 2 || sink.indexedDraws != 2 || sink.lastCount != 36 {
		t.Fatalf("every draw pushes and draws: %+v", sink)
	}
	if sink.lastMVP != mvp {
		t.Fatalf("pushed MVP differs from the one given")
	}

	rec.Draw(cube, pipeline, layout, grass, mvp)
	if sink.setBinds != 2 || sink.vertexBinds != 1 {
		t.Fatalf("material switch: %+v", sink)
	}

	rec.Draw(quad, pipeline, layout, grass, mvp)
	if sink.vertexBinds != 2 || sink.indexBinds != 1 {
		t.Fatalf("non-indexed mesh must bind only its vertex buffer: %+v", sink)
	}
	if sink.draws != 1 || sink.lastCount != 6 {
		t.Fatalf("non-indexed mesh must use Draw with its vertex count: %+v", sink)
	}

	// The index buffer binding survived the quad, so drawing the cube again
	// only rebinds the vertex buffer.
	rec.Draw(cube, pipeline, layout, grass, mvp)
	if sink.vertexBinds != 3 || sink.indexBinds != 1 || sink.pipelineBinds != 1 {
		t.Fatalf("returning to the cube: %+v", sink)
	}
}
