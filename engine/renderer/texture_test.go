package renderer

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

func TestTextureFormatChannels(t *testing.T) {
	cases := []struct {
		name     string
		channels int
		vkFormat vk.Format
	}{
		{"r8_srgb", 1, vk.FormatR8Srgb},
		{"rg8_srgb", 2, vk.FormatR8g8Srgb},
		{"RGB8_SRGB", 3, vk.FormatR8g8b8Srgb},
		{" rgba8_srgb ", 4, vk.FormatR8g8b8a8Srgb},
	}
	for _, c := range cases {
		f, err := ParseTextureFormat(c.name)
		if err != nil {
			t.Fatalf("ParseTextureFormat(%q): %v", c.name, err)
		}
		if f.Channels() != c.channels || f.VkFormat() != c.vkFormat {
			t.Errorf("%q: channels=%d format=%d", c.name, f.Channels(), f.VkFormat())
		}
		back, err := FormatForChannels(c.channels)
		if err != nil || back != f {
			t.Errorf("FormatForChannels(%d) = %v, %v", c.channels, back, err)
		}
	}
}

func TestTextureFormatRejectsUnknown(t *testing.T) {
	if _, err := ParseTextureFormat("bc7"); !errors.Is(err, core.ErrFormatNotSupported) {
		t.Fatalf("err = %v", err)
	}
	for _, n := range []int{0, 5} {
		if _, err := FormatForChannels(n); !errors.Is(err, core.ErrFormatNotSupported) {
			t.Fatalf("FormatForChannels(%d) err = %v", n, err)
		}
	}
}

func TestSamplerAnisotropy(t *testing.T) {
	off := samplerCreateInfo(0)
	if off.AnisotropyEnable != vk.False {
		t.Fatalf("anisotropy enabled without device support")
	}
	on := samplerCreateInfo(16)
	if on.AnisotropyEnable != vk.True || on.MaxAnisotropy != 16 {
		t.Fatalf("anisotropy: enable=%d max=%v", on.AnisotropyEnable, on.MaxAnisotropy)
	}
	if on.MaxLod != lodClampNone || on.MinLod != 0 || on.AddressModeU != vk.SamplerAddressModeRepeat {
		t.Fatalf("unexpected sampler parameters %+v", on)
	}
}
