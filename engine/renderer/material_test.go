package renderer

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

func TestTextureBindings(t *testing.T) {
	bindings := TextureBindings(3)
	if len(bindings) != 3 {
		t.Fatalf("len = %d", len(bindings))
	}
	for i, b := range bindings {
		if b.Binding != uint32(i) {
			t.Errorf("binding %d numbered %d", i, b.Binding)
		}
		if b.DescriptorType != vk.DescriptorTypeCombinedImageSampler || b.DescriptorCount != 1 {
			t.Errorf("binding %d: type=%d count=%d", i, b.DescriptorType, b.DescriptorCount)
		}
		if b.StageFlags != vk.ShaderStageFlags(vk.ShaderStageFragmentBit) {
			t.Errorf("binding %d visible to stages %d", i, b.StageFlags)
		}
	}
	if len(TextureBindings(0)) != 0 {
		t.Fatalf("zero textures must give no bindings")
	}
}

func TestMakeMaterialChecksArity(t *testing.T) {
	mt := &MaterialType{Name: "brick", Bindings: TextureBindings(2)}
	_, err := mt.MakeMaterial(nil, &Texture{})
	if !errors.Is(err, core.ErrResourceCreationFailed) {
		t.Fatalf("err = %v", err)
	}
	_, err = mt.MakeMaterial(nil, &Texture{}, nil)
	if !errors.Is(err, core.ErrResourceCreationFailed) {
		t.Fatalf("nil texture: err = %v", err)
	}
}
