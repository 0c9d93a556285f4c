//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the package tests. None of them need a GPU.
func (Test) Unit() error {
	_, err := runCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the end-to-end scenario against a real Vulkan driver and window.
func (Test) Integration() error {
	if err := buildShaders(); err != nil {
		return err
	}
	_, err := runCmd("go", withArgs("test", "-tags", "integration", "-count=1", "-run", "Integration", "./engine/..."), withStream())
	return err
}
