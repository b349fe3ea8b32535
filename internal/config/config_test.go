package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soypat/geometry/ms3"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	level, err := cfg.Log.ParseLevel()
	if err != nil || level != log.InfoLevel {
		t.Errorf("default level %v, %v", level, err)
	}
	want := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	if cfg.Mesh.Bounds() != want {
		t.Errorf("bounds %v", cfg.Mesh.Bounds())
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[log]
level = "debug"

[mesh]
cells = 128
algorithm = "octree"
bounds_min = [-1.0, -2.0, -3.0]
bounds_max = [1.0, 2.0, 3.0]
normal_step = 0.01

[render]
version = "#version 460"

[script]
timeout = "250ms"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Mesh.Cells != 128 || cfg.Mesh.Algorithm != "octree" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Mesh.BoundsMin != [3]float32{-1, -2, -3} || cfg.Mesh.NormalStep != 0.01 {
		t.Errorf("unexpected mesh config %+v", cfg.Mesh)
	}
	if cfg.Script.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("timeout %v", cfg.Script.Timeout)
	}
	if sdfx := cfg.Mesh.SDFX(); sdfx.Cells != 128 || sdfx.Algorithm != "octree" {
		t.Errorf("sdfx config %+v", sdfx)
	}

	// Keys not present keep their defaults.
	cfg, err = Parse([]byte("[mesh]\ncells = 16\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mesh.Algorithm != Default().Mesh.Algorithm || cfg.Script.Timeout != Default().Script.Timeout {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad algorithm", "[mesh]\nalgorithm = \"dual\"", "mesh.algorithm"},
		{"too few cells", "[mesh]\ncells = 1", "mesh.cells"},
		{"too many cells", "[mesh]\ncells = 100000", "mesh.cells"},
		{"inverted bounds", "[mesh]\nbounds_min = [1.0, 0.0, 0.0]\nbounds_max = [0.0, 1.0, 1.0]", "bounds_min"},
		{"negative step", "[mesh]\nnormal_step = -1.0", "normal_step"},
		{"bad level", "[log]\nlevel = \"loud\"", "log.level"},
		{"bad timeout", "[script]\ntimeout = \"soon\"", "decoding config"},
		{"zero timeout", "[script]\ntimeout = \"0s\"", "script.timeout"},
		{"unknown key", "[mesh]\nresolution = 3", "unknown config key"},
		{"syntax", "[mesh\n", "decoding config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level %q", cfg.Log.Level)
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	t.Chdir(dir)
	cfg, err = LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("LoadDefault without file = %+v", cfg)
	}
}
