// Package config loads csgsdf settings from TOML files.
//
// Example file:
//
//	[log]
//	level = "debug"
//
//	[mesh]
//	cells = 128
//	algorithm = "octree"
//	bounds_min = [-2.0, -2.0, -2.0]
//	bounds_max = [2.0, 2.0, 2.0]
//
//	[script]
//	timeout = "10s"
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/soypat/csgsdf/glrender"
	"github.com/soypat/geometry/ms3"
)

// DefaultFile is read when present in the working directory and no file is named explicitly.
const DefaultFile = "csgsdf.toml"

type Config struct {
	Log    Log    `toml:"log"`
	Mesh   Mesh   `toml:"mesh"`
	Render Render `toml:"render"`
	Script Script `toml:"script"`
}

type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

type Mesh struct {
	Cells     int        `toml:"cells"`
	Algorithm string     `toml:"algorithm"`
	BoundsMin [3]float32 `toml:"bounds_min"`
	BoundsMax [3]float32 `toml:"bounds_max"`
	// NormalStep of zero derives the step from the cell size.
	NormalStep float32 `toml:"normal_step"`
}

type Render struct {
	// Template is a path to a GLSL file replacing the built in raymarch template.
	Template string `toml:"template"`
	// Version replaces the #version directive line of the renderer.
	Version string `toml:"version"`
}

type Script struct {
	Timeout Duration `toml:"timeout"`
}

// Duration is a time.Duration decoded from TOML strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Mesh: Mesh{
			Cells:     64,
			Algorithm: glrender.AlgorithmUniform,
			BoundsMin: [3]float32{-2, -2, -2},
			BoundsMax: [3]float32{2, 2, 2},
		},
		Script: Script{Timeout: Duration{5 * time.Second}},
	}
}

// Load decodes the TOML file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// LoadDefault loads [DefaultFile] if it exists, otherwise it returns [Default].
func LoadDefault() (Config, error) {
	cfg, err := Load(DefaultFile)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes TOML data over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all values are in range.
func (c Config) Validate() error {
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	if c.Mesh.Cells < 2 || c.Mesh.Cells > 4096 {
		return fmt.Errorf("mesh.cells must be in [2, 4096], got %d", c.Mesh.Cells)
	}
	switch c.Mesh.Algorithm {
	case glrender.AlgorithmUniform, glrender.AlgorithmOctree:
	default:
		return fmt.Errorf("mesh.algorithm must be %q or %q, got %q", glrender.AlgorithmUniform, glrender.AlgorithmOctree, c.Mesh.Algorithm)
	}
	for i := range c.Mesh.BoundsMin {
		if !(c.Mesh.BoundsMin[i] < c.Mesh.BoundsMax[i]) {
			return fmt.Errorf("mesh.bounds_min must be smaller than mesh.bounds_max on every axis, got %v and %v", c.Mesh.BoundsMin, c.Mesh.BoundsMax)
		}
	}
	if c.Mesh.NormalStep < 0 {
		return errors.New("mesh.normal_step must not be negative")
	}
	if c.Script.Timeout.Duration <= 0 {
		return errors.New("script.timeout must be positive")
	}
	return nil
}

// ParseLevel returns the charmbracelet log level named by Level.
func (l Log) ParseLevel() (log.Level, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Bounds returns the configured meshing region.
func (m Mesh) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: m.BoundsMin[0], Y: m.BoundsMin[1], Z: m.BoundsMin[2]},
		Max: ms3.Vec{X: m.BoundsMax[0], Y: m.BoundsMax[1], Z: m.BoundsMax[2]},
	}
}

// SDFX returns the marching cubes configuration.
func (m Mesh) SDFX() glrender.SDFXConfig {
	return glrender.SDFXConfig{Cells: m.Cells, Algorithm: m.Algorithm}
}
