package renderer

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

type fakeDevice struct {
	passBuilds, passReleases     int
	targetBuilds, targetReleases int
	layouts, pipelines           int
	destroyedPipelines           []vk.Pipeline
	destroyedLayouts             int
	failPipeline                 bool
	nextHandle                   int
	sink                         *countingSink
	ended                        int
}

func (d *fakeDevice) handle() int {
	d.nextHandle++
	return 16 + d.nextHandle%16
}

func (d *fakeDevice) buildPass(vk.Format) error              { d.passBuilds++; return nil }
func (d *fakeDevice) releasePass()                           { d.passReleases++ }
func (d *fakeDevice) buildTargets(vulkan.RenderTarget) error { d.targetBuilds++; return nil }
func (d *fakeDevice) releaseTargets()                        { d.targetReleases++ }
func (d *fakeDevice) destroyLayout(vk.PipelineLayout)        { d.destroyedLayouts++ }
func (d *fakeDevice) destroyPipeline(p vk.Pipeline) {
	d.destroyedPipelines = append(d.destroyedPipelines, p)
}
func (d *fakeDevice) waitIdle() error             { return nil }
func (d *fakeDevice) endPass(*vulkan.Frame) error { d.ended++; return nil }

func (d *fakeDevice) createLayout(vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	d.layouts++
	return fakeLayout(d.handle()), nil
}

func (d *fakeDevice) createPipeline(vk.PipelineLayout, ShaderCode) (vk.Pipeline, error) {
	if d.failPipeline {
		return nil, core.ErrShaderUnreadable
	}
	d.pipelines++
	return fakePipeline(d.handle()), nil
}

func (d *fakeDevice) beginPass(*vulkan.Frame, vk.Extent2D) (commandSink, error) {
	d.sink = &countingSink{}
	return d.sink, nil
}

// fakeSource plays the render target: it calls back into the listener the
// way WindowRenderTarget does.
type fakeSource struct {
	listener vulkan.RenderTargetListener
	target   vulkan.RenderTarget
	frame    *vulkan.Frame
	skip     bool
	resizes  int
}

func (s *fakeSource) SetListener(l vulkan.RenderTargetListener) error {
	s.listener = l
	return l.NotifySetRenderTarget(s.target)
}

func (s *fakeSource) StartFrame() (*vulkan.Frame, error) {
	if s.skip {
		return nil, nil
	}
	s.frame = &vulkan.Frame{}
	return s.frame, s.listener.NotifyStartFrame(s.frame)
}

func (s *fakeSource) EndFrame() error {
	f := s.frame
	s.frame = nil
	return s.listener.NotifyEndFrame(f)
}

func (s *fakeSource) OnResize() { s.resizes++ }

func newTestRenderer(t *testing.T) (*ForwardRenderer, *fakeDevice, *fakeSource) {
	t.Helper()
	device := &fakeDevice{}
	source := &fakeSource{target: vulkan.RenderTarget{
		Extent: vk.Extent2D{Width: 800, Height: 600},
		Format: vk.FormatB8g8r8a8Srgb,
	}}
	r, err := newForwardRenderer(device, source, ShaderCode{})
	if err != nil {
		t.Fatalf("newForwardRenderer: %v", err)
	}
	return r, device, source
}

func testMaterial(n int) *Material {
	mt := &MaterialType{Name: "test", Pool: &vulkan.TypedDescriptorPool{Layout: fakeSetLayout(n)}}
	return &Material{Type: mt, DescriptorSet: fakeSet(n + 1)}
}

func TestForwardRendererBuildsOnSetTarget(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	if device.passBuilds != 1 || device.targetBuilds != 1 {
		t.Fatalf("pass=%d targets=%d after SetListener", device.passBuilds, device.targetBuilds)
	}
	if r.Extent().Width != 800 {
		t.Fatalf("extent = %+v", r.Extent())
	}
}

func TestRegisterMaterialTypeIsIdempotent(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	layout := fakeSetLayout(0)
	for i := 0; i < 3; i++ {
		if err := r.RegisterMaterialType(layout); err != nil {
			t.Fatalf("RegisterMaterialType: %v", err)
		}
	}
	if device.layouts != 1 || device.pipelines != 1 {
		t.Fatalf("layouts=%d pipelines=%d, want one of each", device.layouts, device.pipelines)
	}
	if err := r.RegisterMaterialType(fakeSetLayout(1)); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	if device.pipelines != 2 {
		t.Fatalf("a second layout needs its own pipeline, pipelines=%d", device.pipelines)
	}
}

func TestRegisterMaterialTypeFailureReleasesLayout(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	device.failPipeline = true
	if err := r.RegisterMaterialType(fakeSetLayout(0)); err == nil {
		t.Fatalf("expected pipeline failure")
	}
	if device.destroyedLayouts != 1 || len(r.registered) != 0 {
		t.Fatalf("failed registration leaked: destroyed=%d registered=%d", device.destroyedLayouts, len(r.registered))
	}
}

func TestDrawUnregisteredMaterial(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	if _, err := r.StartFrame(); err != nil {
		t.Fatalf("StartFrame: %v", err)
	}
	err := r.Draw(&Mesh{}, testMaterial(2), math.NewMat4Identity())
	if !errors.Is(err, core.ErrMaterialTypeNotRegistered) {
		t.Fatalf("err = %v", err)
	}
}

func TestDrawOutsideFrame(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	m := testMaterial(2)
	if err := r.RegisterMaterialType(m.Type.Layout()); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	if err := r.Draw(&Mesh{}, m, math.NewMat4Identity()); err == nil {
		t.Fatalf("Draw without StartFrame must fail")
	}
}

func TestFrameRecordsDraws(t *testing.T) {
	r, device, source := newTestRenderer(t)
	m := testMaterial(2)
	if err := r.RegisterMaterialType(m.Type.Layout()); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	mesh := &Mesh{VertexBuffer: fakeBuffer(4), IndexBuffer: fakeBuffer(5), IndexCount: 3, Indexed: true}

	ok, err := r.StartFrame()
	if err != nil || !ok {
		t.Fatalf("StartFrame = %v, %v", ok, err)
	}
	for i := 0; i < 4; i++ {
		if err := r.Draw(mesh, m, math.NewMat4Identity()); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if device.sink.pipelineBinds != 1 || device.sink.indexedDraws != 4 || device.ended != 1 {
		t.Fatalf("recorded %+v, ended=%d", device.sink, device.ended)
	}

	source.skip = true
	ok, err = r.StartFrame()
	if err != nil || ok {
		t.Fatalf("skipped frame: ok=%v err=%v", ok, err)
	}
}

func TestExtentChangeKeepsPipelines(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	if err := r.RegisterMaterialType(fakeSetLayout(0)); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	target := vulkan.RenderTarget{Extent: vk.Extent2D{Width: 1024, Height: 768}, Format: vk.FormatB8g8r8a8Srgb}
	if err := r.NotifyUpdateImageExtent(target); err != nil {
		t.Fatalf("NotifyUpdateImageExtent: %v", err)
	}
	if device.targetBuilds != 2 || device.passBuilds != 1 || device.pipelines != 1 {
		t.Fatalf("extent change: targets=%d passes=%d pipelines=%d", device.targetBuilds, device.passBuilds, device.pipelines)
	}
	if r.Extent().Width != 1024 {
		t.Fatalf("extent not updated: %+v", r.Extent())
	}
}

func TestFormatChangeRebuildsPipelines(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	for i := 0; i < 2; i++ {
		if err := r.RegisterMaterialType(fakeSetLayout(i)); err != nil {
			t.Fatalf("RegisterMaterialType: %v", err)
		}
	}
	target := vulkan.RenderTarget{Extent: vk.Extent2D{Width: 800, Height: 600}, Format: vk.FormatR8g8b8a8Srgb}
	if err := r.NotifyUpdateImageFormat(target); err != nil {
		t.Fatalf("NotifyUpdateImageFormat: %v", err)
	}
	if device.passBuilds != 2 || device.passReleases != 1 {
		t.Fatalf("render pass not rebuilt: builds=%d releases=%d", device.passBuilds, device.passReleases)
	}
	if device.pipelines != 4 || len(device.destroyedPipelines) != 2 {
		t.Fatalf("pipelines=%d destroyed=%d", device.pipelines, len(device.destroyedPipelines))
	}
	if device.layouts != 2 {
		t.Fatalf("pipeline layouts survive a format change, created %d", device.layouts)
	}
}

func TestReloadShadersKeepsOldPipelinesOnFailure(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	layout := fakeSetLayout(0)
	if err := r.RegisterMaterialType(layout); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	before := r.registered[layout].pipeline

	device.failPipeline = true
	if err := r.ReloadShaders(ShaderCode{Vertex: []byte{1}}); !errors.Is(err, core.ErrShaderUnreadable) {
		t.Fatalf("err = %v", err)
	}
	if r.registered[layout].pipeline != before || len(device.destroyedPipelines) != 0 {
		t.Fatalf("failed reload replaced the pipeline")
	}

	device.failPipeline = false
	if err := r.ReloadShaders(ShaderCode{Vertex: []byte{2}}); err != nil {
		t.Fatalf("ReloadShaders: %v", err)
	}
	if r.registered[layout].pipeline == before || len(device.destroyedPipelines) != 1 {
		t.Fatalf("successful reload must swap pipelines")
	}
	if r.shaders.Vertex[0] != 2 {
		t.Fatalf("new shader code not retained for later rebuilds")
	}
}

func TestOnResizeForwards(t *testing.T) {
	r, _, source := newTestRenderer(t)
	r.OnResize()
	r.OnResize()
	if source.resizes != 2 {
		t.Fatalf("resizes = %d", source.resizes)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	r, device, _ := newTestRenderer(t)
	_ = r.RegisterMaterialType(fakeSetLayout(0))
	r.Destroy()
	if device.destroyedLayouts != 1 || len(device.destroyedPipelines) != 1 {
		t.Fatalf("layouts=%d pipelines=%d", device.destroyedLayouts, len(device.destroyedPipelines))
	}
	if device.targetReleases != 1 || device.passReleases != 1 {
		t.Fatalf("targets=%d pass=%d", device.targetReleases, device.passReleases)
	}
}
