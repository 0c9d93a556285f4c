package vulkan

import vk "github.com/goki/vulkan"

const (
	// Frames the CPU may record ahead of the GPU when the configuration does not say.
	DEFAULT_MAX_FRAMES_IN_FLIGHT uint32 = 1

	// One column-major 4x4 float matrix.
	PUSH_CONSTANT_MVP_SIZE uint32 = 64

	VALIDATION_LAYER_NAME = "VK_LAYER_KHRONOS_validation"
	PORTABILITY_SUBSET    = "VK_KHR_portability_subset"

	// Sentinel a surface reports when the window decides the extent.
	UNDEFINED_EXTENT uint32 = 0xFFFFFFFF

	DEPTH_FORMAT = vk.FormatD32Sfloat

	SHADER_ENTRY_POINT = "main"
)

// Vertex layout consumed by the forward pipeline: vec3 position, vec2 uv.
const (
	VERTEX_STRIDE          uint32 = 20
	VERTEX_POSITION_OFFSET uint32 = 0
	VERTEX_UV_OFFSET       uint32 = 12
)
