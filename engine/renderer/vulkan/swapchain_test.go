package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}); got.Format != preferred.Format {
		t.Errorf("got format %d, want the sRGB BGRA format", got.Format)
	}
	if got := chooseSurfaceFormat([]vk.SurfaceFormat{other}); got.Format != other.Format {
		t.Errorf("fallback got format %d, want the first listed", got.Format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}

	mode, err := choosePresentMode(nil, available)
	if err != nil || mode != vk.PresentModeFifo {
		t.Fatalf("default preference: got %d, %v", mode, err)
	}
	mode, err = choosePresentMode([]vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}, available)
	if err != nil || mode != vk.PresentModeImmediate {
		t.Fatalf("second preference: got %d, %v", mode, err)
	}
	_, err = choosePresentMode([]vk.PresentMode{vk.PresentModeMailbox}, available)
	if !errors.Is(err, core.ErrPresentModeUnavailable) {
		t.Fatalf("unsupported preference: got %v", err)
	}
}

func TestParsePresentModes(t *testing.T) {
	modes, err := ParsePresentModes([]string{"Mailbox", " fifo"})
	if err != nil {
		t.Fatalf("ParsePresentModes: %v", err)
	}
	if len(modes) != 2 || modes[0] != vk.PresentModeMailbox || modes[1] != vk.PresentModeFifo {
		t.Fatalf("got %v", modes)
	}
	if modes, _ := ParsePresentModes(nil); len(modes) != 1 || modes[0] != vk.PresentModeFifo {
		t.Fatalf("empty list should default to fifo, got %v", modes)
	}
	if _, err := ParsePresentModes([]string{"vsync"}); !errors.Is(err, core.ErrPresentModeUnavailable) {
		t.Fatalf("unknown name: got %v", err)
	}
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	if got := chooseExtent(caps, 10, 10); got.Width != 800 || got.Height != 600 {
		t.Errorf("defined current extent must win, got %dx%d", got.Width, got.Height)
	}

	caps.CurrentExtent = vk.Extent2D{Width: UNDEFINED_EXTENT, Height: UNDEFINED_EXTENT}
	if got := chooseExtent(caps, 1024, 768); got.Width != 1024 || got.Height != 768 {
		t.Errorf("framebuffer size in range, got %dx%d", got.Width, got.Height)
	}
	if got := chooseExtent(caps, 4000, 0); got.Width != 1920 || got.Height != 1 {
		t.Errorf("framebuffer size clamped, got %dx%d", got.Width, got.Height)
	}
}

func TestChooseImageCount(t *testing.T) {
	cases := []struct {
		min, max, want uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
	}
	for _, c := range cases {
		caps := vk.SurfaceCapabilities{MinImageCount: c.min, MaxImageCount: c.max}
		if got := chooseImageCount(caps); got != c.want {
			t.Errorf("min %d max %d: got %d, want %d", c.min, c.max, got, c.want)
		}
	}
}
