package engine

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(&Game{}, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(core.EventShutdown)
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Renderer.FramesInFlight = 0
	if _, err := New(&Game{}, config); err == nil {
		t.Fatalf("expected a validation error")
	}
}

func TestEscapeQuits(t *testing.T) {
	e := newTestEngine(t)
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.isRunning = true

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_A}})
	if !e.isRunning {
		t.Fatalf("A must not quit")
	}
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	if e.isRunning {
		t.Fatalf("Escape must stop the loop")
	}
}

func TestResizeSuspendsWhileMinimized(t *testing.T) {
	e := newTestEngine(t)
	resize := func(w, h uint32) {
		e.onResized(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.ResizeEvent{Width: w, Height: h}}, e)
	}
	resize(0, 0)
	if !e.isSuspended {
		t.Fatalf("zero area must suspend")
	}
	resize(800, 600)
	if e.isSuspended {
		t.Fatalf("restored window must resume")
	}
	if w, h := e.GetFramebufferSize(); w != 800 || h != 600 {
		t.Fatalf("size = %dx%d", w, h)
	}
}

func TestShaderChangesMarkReload(t *testing.T) {
	e := newTestEngine(t)
	root := e.config.Assets.Root
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "shaders", "forward.vert.spv"), true},
		{filepath.Join(root, "shaders", "sub", "x.SPV"), true},
		{filepath.Join(root, "shaders", "forward.vert"), false},
		{filepath.Join(root, "textures", "brick.spv"), false},
		{filepath.Join(root, "..", "shaders", "forward.vert.spv"), false},
	}
	for _, tt := range tests {
		if got := e.isShaderFile(tt.path); got != tt.want {
			t.Errorf("isShaderFile(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}

	e.onAssetChanged(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &core.AssetEvent{Path: tests[1].path}}, e)
	if !e.shadersDirty {
		t.Fatalf("shader change not recorded")
	}
}
