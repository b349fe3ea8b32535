package csgaux

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	math "github.com/chewxy/math32"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/csgsdf/glrender"
	"github.com/soypat/geometry/ms3"
)

type RenderConfig struct {
	// Bounds is the region of space meshed. It must have volume.
	Bounds       ms3.Box
	STLOutput    io.Writer
	ShaderOutput io.Writer
	// IndexedMesh builds and returns the indexed mesh even when no STL output is set.
	IndexedMesh bool
	Mesh        glrender.SDFXConfig
	// NormalStep is the central difference step for mesh normals.
	// Zero uses a quarter of the mesh cell size.
	NormalStep float32
	UseGPU     bool
	// Programmer writes the shader outputs. Nil uses [glbuild.NewDefaultProgrammer].
	Programmer *glbuild.Programmer
}

// Render is an auxiliary function to aid users in getting setup in using csgsdf quickly.
// It writes the preview shader and meshes the shape according to cfg, logging stage timings to logger.
// A nil logger discards all messages. The indexed mesh is returned when meshing ran.
func Render(s csgsdf.Shape, cfg RenderConfig, logger *log.Logger) (mesh glrender.Mesh, err error) {
	if cfg.STLOutput == nil && cfg.ShaderOutput == nil && !cfg.IndexedMesh {
		return mesh, errors.New("Render requires output parameter in config")
	} else if s == nil {
		return mesh, errors.New("nil shape")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	prog := cfg.Programmer
	if prog == nil {
		prog = glbuild.NewDefaultProgrammer()
	}
	logger.Debug("compiling shape", "nodes", glbuild.CountNodes(s), "depth", glbuild.Depth(s))

	if cfg.ShaderOutput != nil {
		watch := stopwatch()
		n, err := prog.WriteRenderer(cfg.ShaderOutput, s)
		if err != nil {
			return mesh, fmt.Errorf("writing renderer GLSL: %w", err)
		}
		logger.Info("wrote "+outputName(cfg.ShaderOutput, "GLSL renderer"), "bytes", n, "took", watch())
	}
	if cfg.STLOutput == nil && !cfg.IndexedMesh {
		return mesh, nil
	}

	watch := stopwatch()
	var sdf gleval.SDF3
	if cfg.UseGPU {
		logger.Info("using GPU")
		terminate, err := gleval.Init1x1GLFW()
		if err != nil {
			return mesh, err
		}
		defer terminate()
		var source bytes.Buffer
		_, err = prog.WriteComputeSDF3(&source, s)
		if err != nil {
			return mesh, err
		}
		invocX, _, _ := prog.ComputeInvocations()
		gpu, err := gleval.NewComputeGPUSDF3(&source, cfg.Bounds, gleval.ComputeConfig{InvocX: invocX})
		if err != nil {
			return mesh, fmt.Errorf("instantiating GPU SDF: %w", err)
		}
		defer gpu.Release()
		sdf = gpu
	} else {
		logger.Info("using CPU")
		sdf, err = gleval.NewCPUSDF3(s, cfg.Bounds)
		if err != nil {
			return mesh, fmt.Errorf("instantiating SDF: %w", err)
		}
	}
	logger.Debug("instantiated evaluation SDF", "took", watch())

	renderer, err := glrender.NewSDFXRenderer(sdf, cfg.Mesh)
	if err != nil {
		return mesh, err
	}
	watch = stopwatch()
	triangles, err := glrender.RenderAll(renderer, nil)
	if err != nil {
		return mesh, fmt.Errorf("rendering triangles: %w", err)
	}
	logger.Info("rendered triangles", "count", len(triangles), "cells", cfg.Mesh.Cells, "took", watch())
	if len(triangles) == 0 {
		logger.Warn("shape surface does not intersect the mesh bounds")
	}

	if cfg.STLOutput != nil {
		watch = stopwatch()
		n, err := glrender.WriteBinarySTL(cfg.STLOutput, triangles)
		if err != nil {
			return mesh, fmt.Errorf("writing STL file: %w", err)
		}
		logger.Info("wrote "+outputName(cfg.STLOutput, "STL"), "bytes", n, "took", watch())
	}
	if cfg.IndexedMesh && len(triangles) > 0 {
		step := cfg.NormalStep
		if step == 0 {
			sz := cfg.Bounds.Size()
			step = max(sz.X, sz.Y, sz.Z) / float32(cfg.Mesh.Cells) / 4
		}
		watch = stopwatch()
		mesh, err = glrender.NewMesh(triangles, sdf, step)
		if err != nil {
			return mesh, err
		}
		logger.Debug("built indexed mesh", "vertices", mesh.VertexCount(), "merged", percent(3*len(triangles)-mesh.VertexCount(), 3*len(triangles)), "took", watch())
	}
	return mesh, nil
}

// RenderSlicePNG renders the z=const cross section of s within the x-y extent of bb
// and encodes it as PNG to w. The image width is sized automatically from the picture height
// to preserve the aspect ratio. A nil color conversion selects distance bands scaled to bb.
func RenderSlicePNG(w io.Writer, s csgsdf.Shape, bb ms3.Box, z float32, picHeight int, colorConversion func(float32) color.Color) error {
	if picHeight <= 0 {
		return errors.New("picture height must be positive")
	}
	sz := bb.Size()
	if colorConversion == nil {
		colorConversion = NewSliceColoring(bb, 0)
	}
	sdf, err := gleval.NewCPUSDF3(s, bb)
	if err != nil {
		return err
	}
	pixPerUnit := float64(picHeight) / float64(sz.Y)
	picWidth := max(1, int(pixPerUnit*float64(sz.X)))
	img := image.NewRGBA(image.Rect(0, 0, picWidth, picHeight))
	renderer, err := glrender.NewImageRendererSlice(max(4096, picWidth), colorConversion)
	if err != nil {
		return err
	}
	err = renderer.Render(sdf, z, img, nil)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start).Round(time.Microsecond)
	}
}

func percent(num, denom int) float32 {
	if denom == 0 {
		return 0
	}
	return math.Trunc(10000*float32(num)/float32(denom)) / 100
}
