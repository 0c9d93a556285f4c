package renderer

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// Largest level of detail a sampler may select: no clamp.
const lodClampNone float32 = 1000.0

type TextureFormat int

const (
	TEXTURE_FORMAT_R8_SRGB TextureFormat = iota
	TEXTURE_FORMAT_R8G8_SRGB
	TEXTURE_FORMAT_R8G8B8_SRGB
	TEXTURE_FORMAT_R8G8B8A8_SRGB
)

var textureFormatNames = map[string]TextureFormat{
	"r8_srgb":    TEXTURE_FORMAT_R8_SRGB,
	"rg8_srgb":   TEXTURE_FORMAT_R8G8_SRGB,
	"rgb8_srgb":  TEXTURE_FORMAT_R8G8B8_SRGB,
	"rgba8_srgb": TEXTURE_FORMAT_R8G8B8A8_SRGB,
}

func ParseTextureFormat(name string) (TextureFormat, error) {
	f, ok := textureFormatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown texture format %q: %w", name, core.ErrFormatNotSupported)
	}
	return f, nil
}

// FormatForChannels maps a decoded image's channel count to a format.
func FormatForChannels(channels int) (TextureFormat, error) {
	if channels < 1 || channels > 4 {
		return 0, fmt.Errorf("%d channels: %w", channels, core.ErrFormatNotSupported)
	}
	return TextureFormat(channels - 1), nil
}

func (f TextureFormat) Channels() int {
	return int(f) + 1
}

func (f TextureFormat) VkFormat() vk.Format {
	switch f {
	case TEXTURE_FORMAT_R8_SRGB:
		return vk.FormatR8Srgb
	case TEXTURE_FORMAT_R8G8_SRGB:
		return vk.FormatR8g8Srgb
	case TEXTURE_FORMAT_R8G8B8_SRGB:
		return vk.FormatR8g8b8Srgb
	default:
		return vk.FormatR8g8b8a8Srgb
	}
}

// Texture is a sampled, fully mipmapped image. Its objects live in the asset
// pool it was created with.
type Texture struct {
	Image     vk.Image
	View      vk.ImageView
	Sampler   vk.Sampler
	MipLevels uint32
	Width     uint32
	Height    uint32
	Format    TextureFormat
}

// NewTexture uploads width*height tightly packed pixels and generates mips.
func NewTexture(context *vulkan.VulkanContext, pool *vulkan.AssetPool, pixels []byte, width, height uint32, format TextureFormat) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("texture has zero extent %dx%d: %w", width, height, core.ErrResourceCreationFailed)
	}
	if want := int(width) * int(height) * format.Channels(); len(pixels) != want {
		return nil, fmt.Errorf("texture %dx%d with %d channels needs %d bytes, got %d: %w",
			width, height, format.Channels(), want, len(pixels), core.ErrResourceCreationFailed)
	}

	mips := vulkan.MipLevels(width, height)
	image, memory, err := context.CreateDeviceLocalImage(pixels, width, height, format.VkFormat(), mips)
	if err != nil {
		return nil, err
	}
	pool.StoreImageWithMemory(image, memory)

	view, err := context.CreateImageView(image, format.VkFormat(), vk.ImageAspectFlags(vk.ImageAspectColorBit), mips)
	if err != nil {
		return nil, err
	}
	pool.StoreImageView(view)

	sampler, err := createSampler(context, context.Device.MaxAnisotropy)
	if err != nil {
		return nil, err
	}
	pool.StoreSampler(sampler)

	return &Texture{
		Image:     image,
		View:      view,
		Sampler:   sampler,
		MipLevels: mips,
		Width:     width,
		Height:    height,
		Format:    format,
	}, nil
}

func samplerCreateInfo(maxAnisotropy float32) vk.SamplerCreateInfo {
	anisotropy := vk.Bool32(vk.False)
	if maxAnisotropy != 0 {
		anisotropy = vk.True
	}
	return vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		MipLodBias:              0,
		AnisotropyEnable:        anisotropy,
		MaxAnisotropy:           maxAnisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  lodClampNone,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
}

func createSampler(context *vulkan.VulkanContext, maxAnisotropy float32) (vk.Sampler, error) {
	info := samplerCreateInfo(maxAnisotropy)
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &info, context.Allocator, &sampler); res != vk.Success {
		return nil, fmt.Errorf("vkCreateSampler: %s: %w", vulkan.VulkanResultString(res, true), core.ErrResourceCreationFailed)
	}
	return sampler, nil
}
