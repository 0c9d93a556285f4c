package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

var fakeHandles [16]byte

func fakeBuffer(n int) vk.Buffer       { return vk.Buffer(unsafe.Pointer(&fakeHandles[n])) }
func fakeMemory(n int) vk.DeviceMemory { return vk.DeviceMemory(unsafe.Pointer(&fakeHandles[n])) }
func fakeImage(n int) vk.Image         { return vk.Image(unsafe.Pointer(&fakeHandles[n])) }
func fakeView(n int) vk.ImageView      { return vk.ImageView(unsafe.Pointer(&fakeHandles[n])) }
func fakeSampler(n int) vk.Sampler     { return vk.Sampler(unsafe.Pointer(&fakeHandles[n])) }

func TestAssetPoolStoreReturnsHandle(t *testing.T) {
	pool := NewAssetPool()
	b, m := pool.StoreBufferWithMemory(fakeBuffer(0), fakeMemory(1))
	if b != fakeBuffer(0) || m != fakeMemory(1) {
		t.Fatalf("store must hand back the handles it was given")
	}
	img, _ := pool.StoreImageWithMemory(fakeImage(2), fakeMemory(3))
	if img != fakeImage(2) {
		t.Fatalf("StoreImageWithMemory returned the wrong image")
	}
	pool.StoreImageView(fakeView(4))
	pool.StoreSampler(fakeSampler(5))
	if pool.Len() != 6 {
		t.Fatalf("pool owns %d objects, want 6", pool.Len())
	}
}

func TestAssetPoolReleaseOrder(t *testing.T) {
	pool := NewAssetPool()
	pool.StoreBufferWithMemory(fakeBuffer(0), fakeMemory(1))
	pool.StoreImageWithMemory(fakeImage(2), fakeMemory(3))
	pool.StoreImageView(fakeView(4))
	pool.StoreSampler(fakeSampler(5))

	var order []string
	mark := func(kind string) func(int) {
		return func(i int) { order = append(order, kind) }
	}
	pool.release(mark("sampler"), mark("view"), mark("image"), mark("buffer"), mark("memory"))

	want := []string{"sampler", "view", "image", "buffer", "memory", "memory"}
	if len(order) != len(want) {
		t.Fatalf("released %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("released %v, want %v", order, want)
		}
	}
	if pool.Len() != 0 {
		t.Fatalf("pool still owns %d objects after release", pool.Len())
	}
}
