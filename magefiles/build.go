//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to <name>.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles shaders and then the engine binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := runCmd("go", withArgs("build", "-o", filepath.Join("bin", "anima-forward"), "."), withStream())
	return err
}

func buildShaders() error {
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources under %s", shaderDir)
	}
	for _, src := range sources {
		name := filepath.Base(src)
		if _, err := runCmd("glslc", withArgs(name, "-o", name+".spv"), withDir(shaderDir)); err != nil {
			return err
		}
	}
	return nil
}
