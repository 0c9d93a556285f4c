package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

func TestFindMemoryType(t *testing.T) {
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

	vc := &VulkanContext{Device: &VulkanDevice{}}
	vc.Device.Memory.MemoryTypeCount = 3
	vc.Device.Memory.MemoryTypes[0].PropertyFlags = deviceLocal
	vc.Device.Memory.MemoryTypes[1].PropertyFlags = hostVisible
	vc.Device.Memory.MemoryTypes[2].PropertyFlags = hostVisible | deviceLocal

	tests := []struct {
		typeBits uint32
		flags    vk.MemoryPropertyFlags
		want     uint32
		fail     bool
	}{
		{0b111, deviceLocal, 0, false},
		{0b111, hostVisible, 1, false},
		{0b101, hostVisible, 2, false},
		{0b001, hostVisible, 0, true},
		{0b1000, deviceLocal, 0, true},
	}
	for _, tt := range tests {
		got, err := vc.FindMemoryType(tt.typeBits, tt.flags)
		if tt.fail {
			if !errors.Is(err, core.ErrNoSuitableMemoryType) {
				t.Errorf("FindMemoryType(%#b, %#x) err = %v", tt.typeBits, uint32(tt.flags), err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FindMemoryType(%#b, %#x) = %d, %v, want %d", tt.typeBits, uint32(tt.flags), got, err, tt.want)
		}
	}
}
