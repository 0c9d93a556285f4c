//go:build integration

package renderer_test

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/assets/loaders"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/platform"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// TestIntegrationForwardQuad draws one textured quad with an identity MVP
// and checks the frame's fence signals once the GPU is done. Needs a Vulkan
// driver, a display and the compiled forward shaders.
func TestIntegrationForwardQuad(t *testing.T) {
	shaderDir := filepath.Join("..", "..", "assets", "shaders")
	vert, err := loaders.LoadShader(filepath.Join(shaderDir, "forward.vert.spv"))
	if err != nil {
		t.Fatalf("vertex shader: %v", err)
	}
	frag, err := loaders.LoadShader(filepath.Join(shaderDir, "forward.frag.spv"))
	if err != nil {
		t.Fatalf("fragment shader: %v", err)
	}

	p, err := platform.New()
	if err != nil {
		t.Fatalf("platform.New: %v", err)
	}
	if err := p.Startup("forward quad", 100, 100, 320, 240); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	defer p.Shutdown()

	ctx, err := vulkan.NewContext(vulkan.ContextConfig{ApplicationName: "forward quad", Validation: false}, p)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Destroy()

	target, err := vulkan.NewWindowRenderTarget(ctx, p, vulkan.RenderTargetConfig{FramesInFlight: 1})
	if err != nil {
		t.Fatalf("NewWindowRenderTarget: %v", err)
	}
	defer target.Destroy()

	forward, err := renderer.NewForwardRenderer(ctx, target, renderer.ShaderCode{Vertex: vert, Fragment: frag})
	if err != nil {
		t.Fatalf("NewForwardRenderer: %v", err)
	}
	defer forward.Destroy()

	pool := vulkan.NewAssetPool()
	defer pool.Destroy(ctx)

	quad, err := renderer.NewMesh(ctx, pool, []math.Vertex{
		{Position: math.NewVec3(-0.5, -0.5, 0.5), Texcoord: math.NewVec2(0, 0)},
		{Position: math.NewVec3(0.5, -0.5, 0.5), Texcoord: math.NewVec2(1, 0)},
		{Position: math.NewVec3(0.5, 0.5, 0.5), Texcoord: math.NewVec2(1, 1)},
		{Position: math.NewVec3(-0.5, 0.5, 0.5), Texcoord: math.NewVec2(0, 1)},
	}, []uint32{0, 2, 1, 0, 3, 2})
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}

	white := make([]byte, 2*2*4)
	for i := range white {
		white[i] = 0xff
	}
	texture, err := renderer.NewTexture(ctx, pool, white, 2, 2, renderer.TEXTURE_FORMAT_R8G8B8A8_SRGB)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}

	mt, err := renderer.NewMaterialType(ctx, "textured1", 1, 1)
	if err != nil {
		t.Fatalf("NewMaterialType: %v", err)
	}
	defer mt.Destroy(ctx)
	defer func() { _ = ctx.WaitIdle() }()
	if err := forward.RegisterMaterialType(mt.Layout()); err != nil {
		t.Fatalf("RegisterMaterialType: %v", err)
	}
	material, err := mt.MakeMaterial(ctx, texture)
	if err != nil {
		t.Fatalf("MakeMaterial: %v", err)
	}

	// A rebuild can skip the first attempts while the window settles.
	drawn := false
	for attempt := 0; attempt < 3 && !drawn; attempt++ {
		p.PumpMessages()
		ok, err := forward.StartFrame()
		if err != nil {
			t.Fatalf("StartFrame: %v", err)
		}
		if !ok {
			continue
		}
		if err := forward.Draw(quad, material, math.NewMat4Identity()); err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if err := forward.EndFrame(); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
		drawn = true
	}
	if !drawn {
		t.Fatalf("no frame was drawn")
	}

	if err := ctx.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	signaled, err := target.FrameSignaled(0)
	if err != nil {
		t.Fatalf("FrameSignaled: %v", err)
	}
	if !signaled {
		t.Fatalf("slot fence still unsignaled after the device went idle")
	}
}
