package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// LoadShader reads a compiled SPIR-V binary. The magic number is checked
// when the module is created; here only the size is.
func LoadShader(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrShaderUnreadable)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a whole number of SPIR-V words: %w", path, len(data), core.ErrShaderUnreadable)
	}
	return data, nil
}
