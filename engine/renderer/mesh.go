package renderer

import (
	"encoding/binary"
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// Mesh is immutable geometry resident in device-local memory. The buffers
// belong to the asset pool the mesh was created with.
type Mesh struct {
	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	VertexCount  uint32
	IndexCount   uint32
	Indexed      bool
}

// NewMesh uploads vertices and, when indices is non-empty, an index buffer.
func NewMesh(context *vulkan.VulkanContext, pool *vulkan.AssetPool, vertices []math.Vertex, indices []uint32) (*Mesh, error) {
	vb, vm, err := context.CreateDeviceLocalBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vertexBytes(vertices))
	if err != nil {
		return nil, err
	}
	mesh := &Mesh{VertexCount: uint32(len(vertices))}
	mesh.VertexBuffer, _ = pool.StoreBufferWithMemory(vb, vm)

	if len(indices) == 0 {
		return mesh, nil
	}
	ib, im, err := context.CreateDeviceLocalBuffer(vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), indexBytes(indices))
	if err != nil {
		return nil, err
	}
	mesh.IndexBuffer, _ = pool.StoreBufferWithMemory(ib, im)
	mesh.IndexCount = uint32(len(indices))
	mesh.Indexed = true
	return mesh, nil
}

// vertexBytes packs vertices in the pipeline's input layout.
func vertexBytes(vertices []math.Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(vulkan.VERTEX_STRIDE))
	for _, v := range vertices {
		for _, f := range [5]float32{v.Position.X, v.Position.Y, v.Position.Z, v.Texcoord.X, v.Texcoord.Y} {
			out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(f))
		}
	}
	return out
}

func indexBytes(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}
