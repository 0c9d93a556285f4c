package vulkan

import (
	vk "github.com/goki/vulkan"
)

// AssetPool owns long-lived GPU objects until the whole pool is destroyed.
// There is no per-object release. Store returns the handle it was given so
// creation and ownership transfer read as one expression.
type AssetPool struct {
	memory     []vk.DeviceMemory
	buffers    []vk.Buffer
	images     []vk.Image
	imageViews []vk.ImageView
	samplers   []vk.Sampler
}

func NewAssetPool() *AssetPool {
	return &AssetPool{}
}

func (ap *AssetPool) StoreMemory(m vk.DeviceMemory) vk.DeviceMemory {
	ap.memory = append(ap.memory, m)
	return m
}

func (ap *AssetPool) StoreBuffer(b vk.Buffer) vk.Buffer {
	ap.buffers = append(ap.buffers, b)
	return b
}

func (ap *AssetPool) StoreImage(i vk.Image) vk.Image {
	ap.images = append(ap.images, i)
	return i
}

func (ap *AssetPool) StoreImageView(v vk.ImageView) vk.ImageView {
	ap.imageViews = append(ap.imageViews, v)
	return v
}

func (ap *AssetPool) StoreSampler(s vk.Sampler) vk.Sampler {
	ap.samplers = append(ap.samplers, s)
	return s
}

func (ap *AssetPool) StoreBufferWithMemory(b vk.Buffer, m vk.DeviceMemory) (vk.Buffer, vk.DeviceMemory) {
	return ap.StoreBuffer(b), ap.StoreMemory(m)
}

func (ap *AssetPool) StoreImageWithMemory(i vk.Image, m vk.DeviceMemory) (vk.Image, vk.DeviceMemory) {
	return ap.StoreImage(i), ap.StoreMemory(m)
}

// Len is the number of objects currently owned.
func (ap *AssetPool) Len() int {
	return len(ap.memory) + len(ap.buffers) + len(ap.images) + len(ap.imageViews) + len(ap.samplers)
}

// Destroy releases users before what they depend on: samplers and views,
// then images and buffers, then the memory backing them. The device must be
// idle.
func (ap *AssetPool) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	ap.release(
		func(i int) { vk.DestroySampler(device, ap.samplers[i], context.Allocator) },
		func(i int) { vk.DestroyImageView(device, ap.imageViews[i], context.Allocator) },
		func(i int) { vk.DestroyImage(device, ap.images[i], context.Allocator) },
		func(i int) { vk.DestroyBuffer(device, ap.buffers[i], context.Allocator) },
		func(i int) { vk.FreeMemory(device, ap.memory[i], context.Allocator) },
	)
}

// release walks every kind in teardown order, newest first within a kind.
func (ap *AssetPool) release(sampler, view, image, buffer, memory func(int)) {
	for i := len(ap.samplers) - 1; i >= 0; i-- {
		sampler(i)
	}
	for i := len(ap.imageViews) - 1; i >= 0; i-- {
		view(i)
	}
	for i := len(ap.images) - 1; i >= 0; i-- {
		image(i)
	}
	for i := len(ap.buffers) - 1; i >= 0; i-- {
		buffer(i)
	}
	for i := len(ap.memory) - 1; i >= 0; i-- {
		memory(i)
	}
	ap.samplers, ap.imageViews, ap.images, ap.buffers, ap.memory = nil, nil, nil, nil, nil
}
