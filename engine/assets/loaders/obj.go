package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

type objIndex struct {
	position int
	texcoord int
}

// LoadOBJ reads a Wavefront OBJ file into an indexed triangle list.
func LoadOBJ(path string) ([]math.Vertex, []uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	vertices, indices, err := ParseOBJ(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return vertices, indices, nil
}

/**
 * @brief Parses positions, texture coordinates and faces. Polygons are
 * fanned into triangles. Corners with equal position and uv share one
 * vertex; v is flipped so images load top row first.
 */
func ParseOBJ(r io.Reader) ([]math.Vertex, []uint32, error) {
	var positions []math.Vec3
	var texcoords []math.Vec2
	var vertices []math.Vertex
	var indices []uint32
	seen := make(map[math.Vertex]uint32)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			f, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, math.NewVec3(f[0], f[1], f[2]))
		case "vt":
			f, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			texcoords = append(texcoords, math.NewVec2(f[0], f[1]))
		case "f":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("line %d: face with %d corners", lineNo, len(fields)-1)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, field := range fields[1:] {
				idx, err := parseFaceCorner(field, len(positions), len(texcoords))
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				vertex := math.Vertex{Position: positions[idx.position]}
				if idx.texcoord >= 0 {
					uv := texcoords[idx.texcoord]
					vertex.Texcoord = math.NewVec2(uv.X, 1-uv.Y)
				}
				index, ok := seen[vertex]
				if !ok {
					index = uint32(len(vertices))
					seen[vertex] = index
					vertices = append(vertices, vertex)
				}
				corners = append(corners, index)
			}
			for i := 1; i+1 < len(corners); i++ {
				indices = append(indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return vertices, indices, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceCorner reads "v", "v/vt", "v//vn" or "v/vt/vn". Negative
// references count back from the latest element.
func parseFaceCorner(field string, positions, texcoords int) (objIndex, error) {
	parts := strings.Split(field, "/")
	pos, err := resolveIndex(parts[0], positions)
	if err != nil {
		return objIndex{}, fmt.Errorf("position in %q: %w", field, err)
	}
	idx := objIndex{position: pos, texcoord: -1}
	if len(parts) > 1 && parts[1] != "" {
		if idx.texcoord, err = resolveIndex(parts[1], texcoords); err != nil {
			return objIndex{}, fmt.Errorf("texcoord in %q: %w", field, err)
		}
	}
	return idx, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range 1..%d", i, count)
	}
}
