package cli

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/csgsdf/csgaux"
	"github.com/soypat/csgsdf/gleval"
	"github.com/soypat/geometry/ms3"
	"github.com/spf13/cobra"
)

const (
	shaderRenderer = "renderer"
	shaderMap      = "map"
	shaderCompute  = "compute"
)

func newShaderCmd() *cobra.Command {
	var (
		output      string
		kind        string
		invocations int
	)
	cmd := &cobra.Command{
		Use:   "shader [script]",
		Short: "Compile a shape script to GLSL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			prog, err := programmer(cfg)
			if err != nil {
				return err
			}
			shape, err := loadShape(cmd, args[0])
			if err != nil {
				return err
			}
			w, closeOut, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			switch kind {
			case shaderRenderer:
				_, err = prog.WriteRenderer(w, shape)
			case shaderMap:
				_, err = prog.WriteMap(w, shape)
			case shaderCompute:
				if invocations <= 0 {
					err = fmt.Errorf("invocations must be positive, got %d", invocations)
					break
				}
				prog.SetComputeInvocations(invocations, 1, 1)
				_, err = prog.WriteComputeSDF3(w, shape)
			default:
				err = fmt.Errorf("unknown shader kind %q, expected %s, %s or %s", kind, shaderRenderer, shaderMap, shaderCompute)
			}
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&kind, "kind", "k", shaderRenderer, "program to write: renderer, map or compute")
	cmd.Flags().IntVar(&invocations, "invocations", 32, "compute work group size along x")
	return cmd
}

func newMeshCmd() *cobra.Command {
	var (
		output       string
		shaderOutput string
		cells        int
		algorithm    string
		useGPU       bool
	)
	cmd := &cobra.Command{
		Use:   "mesh [script]",
		Short: "Extract a triangle mesh with marching cubes and write binary STL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			if cmd.Flags().Changed("cells") {
				cfg.Mesh.Cells = cells
			}
			if cmd.Flags().Changed("algorithm") {
				cfg.Mesh.Algorithm = algorithm
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			prog, err := programmer(cfg)
			if err != nil {
				return err
			}
			shape, err := loadShape(cmd, args[0])
			if err != nil {
				return err
			}
			stl, closeSTL, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeSTL()
			renderCfg := csgaux.RenderConfig{
				Bounds:      cfg.Mesh.Bounds(),
				STLOutput:   stl,
				IndexedMesh: true,
				Mesh:        cfg.Mesh.SDFX(),
				NormalStep:  cfg.Mesh.NormalStep,
				UseGPU:      useGPU,
				Programmer:  prog,
			}
			if shaderOutput != "" {
				w, closeShader, err := createOutput(shaderOutput, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				defer closeShader()
				renderCfg.ShaderOutput = w
			}
			logger := loggerFromContext(ctx)
			mesh, err := csgaux.Render(shape, renderCfg, logger)
			if err != nil {
				return err
			}
			if err := mesh.Validate(); err != nil {
				return fmt.Errorf("invalid mesh: %w", err)
			}
			logger.Info("mesh done", "triangles", mesh.TriangleCount(), "vertices", mesh.VertexCount())
			return closeSTL()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.stl", "STL output file, - for stdout")
	cmd.Flags().StringVar(&shaderOutput, "shader", "", "also write the GLSL renderer to this file")
	cmd.Flags().IntVar(&cells, "cells", 0, "cells along the longest bounding box axis (overrides config)")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "marching cubes algorithm: uniform or octree (overrides config)")
	cmd.Flags().BoolVar(&useGPU, "gpu", false, "evaluate the SDF with a GPU compute shader")
	return cmd
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [script] [x y z]...",
		Short: "Print the signed distance at points",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 4 || (len(args)-1)%3 != 0 {
				return fmt.Errorf("requires a script followed by one or more x y z triples, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[1:])
			if err != nil {
				return err
			}
			shape, err := loadShape(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range points {
				fmt.Fprintf(out, "%g %g %g %g\n", p.X, p.Y, p.Z, shape.Eval(p))
			}
			return nil
		},
	}
	return cmd
}

func parsePoints(args []string) ([]ms3.Vec, error) {
	coords := make([]float32, len(args))
	for i, arg := range args {
		f, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", arg, err)
		}
		coords[i] = float32(f)
	}
	points := make([]ms3.Vec, len(coords)/3)
	for i := range points {
		points[i] = ms3.Vec{X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
	}
	return points, nil
}

func newSliceCmd() *cobra.Command {
	var (
		output   string
		z        float32
		height   int
		gradient float32
	)
	cmd := &cobra.Command{
		Use:   "slice [script]",
		Short: "Render the cross section at constant z to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			shape, err := loadShape(cmd, args[0])
			if err != nil {
				return err
			}
			bb := cfg.Mesh.Bounds()
			conv := csgaux.NewSliceColoring(bb, gradient)
			w, closeOut, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			p := newProgress(loggerFromContext(ctx))
			err = csgaux.RenderSlicePNG(w, shape, bb, z, height, conv)
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			p.done("rendered slice", "z", z, "height", height)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "slice.png", "PNG output file, - for stdout")
	cmd.Flags().Float32Var(&z, "z", 0, "height of the cross section")
	cmd.Flags().IntVar(&height, "height", 512, "image height in pixels, width follows the bounds aspect ratio")
	cmd.Flags().Float32Var(&gradient, "gradient", 0, "use a black and white gradient of this length instead of distance bands")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		numPoints int
		seed      int64
		tol       float32
	)
	cmd := &cobra.Command{
		Use:   "check [script]",
		Short: "Compare the native evaluator against the interpreted GLSL map function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if numPoints <= 0 {
				return fmt.Errorf("points must be positive, got %d", numPoints)
			}
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			logger := loggerFromContext(ctx)
			shape, err := loadShape(cmd, args[0])
			if err != nil {
				return err
			}
			bb := cfg.Mesh.Bounds()
			interp, err := gleval.NewMapSDF3(shape, bb)
			if err != nil {
				return fmt.Errorf("interpreting shader: %w", err)
			}
			rng := rand.New(rand.NewSource(seed))
			size := bb.Size()
			pos := make([]ms3.Vec, numPoints)
			for i := range pos {
				pos[i] = ms3.Add(bb.Min, ms3.MulElem(size, ms3.Vec{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()}))
			}
			dist := make([]float32, numPoints)
			p := newProgress(logger)
			err = interp.Evaluate(pos, dist, nil)
			if err != nil {
				return err
			}
			p.done("interpreted shader", "points", numPoints)
			var (
				maxDev float32
				worst  ms3.Vec
			)
			for i, pt := range pos {
				native := shape.Eval(pt)
				dev := math32.Abs(native-dist[i]) / math32.Max(1, math32.Abs(native))
				if dev > maxDev || math32.IsNaN(dev) {
					maxDev, worst = dev, pt
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "max deviation %g at %v over %d points\n", maxDev, worst, numPoints)
			if !(maxDev <= tol) {
				return fmt.Errorf("%w: deviation %g exceeds tolerance %g", errCheckFailed, maxDev, tol)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numPoints, "points", 1000, "number of random points within the mesh bounds")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float32Var(&tol, "tol", 1e-4, "maximum relative deviation")
	return cmd
}
