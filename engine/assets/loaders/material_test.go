package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMaterial(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMaterialDescription(t *testing.T) {
	path := writeMaterial(t, "brick.material.toml", `
textures = ["textures/brick.png", "/abs/normal.png"]
format = "rgb8_srgb"
instances = 4
`)
	desc, err := LoadMaterialDescription(path)
	if err != nil {
		t.Fatalf("LoadMaterialDescription: %v", err)
	}
	if desc.Name != "brick" {
		t.Errorf("name defaults to the file name, got %q", desc.Name)
	}
	if desc.Format != "rgb8_srgb" || desc.Instances != 4 {
		t.Errorf("format=%q instances=%d", desc.Format, desc.Instances)
	}
	paths := desc.TexturePaths("/assets")
	if paths[0] != filepath.Join("/assets", "textures/brick.png") || paths[1] != "/abs/normal.png" {
		t.Errorf("TexturePaths = %v", paths)
	}
}

func TestLoadMaterialDescriptionDefaults(t *testing.T) {
	desc, err := LoadMaterialDescription(writeMaterial(t, "x.material.toml", `name = "grass"
textures = ["grass.png"]`))
	if err != nil {
		t.Fatalf("LoadMaterialDescription: %v", err)
	}
	if desc.Name != "grass" || desc.Format != "rgba8_srgb" || desc.Instances != DEFAULT_MATERIAL_INSTANCES {
		t.Fatalf("defaults not applied: %+v", desc)
	}
}

func TestLoadMaterialDescriptionErrors(t *testing.T) {
	cases := map[string]string{
		"no textures":  `name = "empty"`,
		"empty path":   `textures = [""]`,
		"unknown key":  "textures = [\"a.png\"]\nshininess = 3\n",
		"invalid toml": `textures = [`,
	}
	for name, body := range cases {
		_, err := LoadMaterialDescription(writeMaterial(t, "m.material.toml", body))
		if err == nil {
			t.Errorf("%s: expected an error", name)
		}
		if name == "unknown key" && err != nil && !strings.Contains(err.Error(), "shininess") {
			t.Errorf("unknown key error should name the key: %v", err)
		}
	}
}
