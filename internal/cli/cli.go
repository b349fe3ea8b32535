// Package cli implements the csgsdf command-line interface.
//
// Every command takes a shape script (see package script) as its first
// argument, or "-" to read it from standard input:
//   - shader: write the GLSL renderer, map function or compute program
//   - mesh: extract a triangle mesh with marching cubes and write binary STL
//   - eval: print the signed distance at points
//   - slice: render a z cross section to PNG
//   - check: compare the native evaluator against the interpreted shader
//
// All commands support --verbose (-v) for debug-level logging and --config
// to read a TOML configuration file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/soypat/csgsdf"
	"github.com/soypat/csgsdf/glbuild"
	"github.com/soypat/csgsdf/internal/config"
	"github.com/soypat/csgsdf/internal/script"
	"github.com/spf13/cobra"
)

const appName = "csgsdf"

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)
	root := &cobra.Command{
		Use:           appName,
		Short:         "Build signed distance field shapes from scripts",
		Long:          `csgsdf evaluates shape scripts into signed distance fields and compiles them to GLSL shaders, STL meshes and PNG cross sections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg config.Config
				err error
			)
			if configPath != "" {
				cfg, err = config.Load(configPath)
			} else {
				cfg, err = config.LoadDefault()
			}
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			level, err := cfg.Log.ParseLevel()
			if err != nil {
				return err
			}
			if verbose {
				level = log.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(withConfig(ctx, cfg))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file (default "+config.DefaultFile+" if present)")

	root.AddCommand(newShaderCmd())
	root.AddCommand(newMeshCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newSliceCmd())
	root.AddCommand(newCheckCmd())
	return root
}

// loadShape evaluates the script named by path, "-" being standard input.
// Script print output and errors go to the command's error stream.
func loadShape(cmd *cobra.Command, path string) (csgsdf.Shape, error) {
	var (
		source []byte
		err    error
	)
	if path == "-" {
		source, err = io.ReadAll(cmd.InOrStdin())
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	cfg := configFromContext(ctx)
	logger := loggerFromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, cfg.Script.Timeout.Duration)
	defer cancel()

	p := newProgress(logger)
	shape, err := script.NewEngine(cmd.ErrOrStderr()).Eval(ctx, string(source))
	if err != nil {
		// Cancellation from the parent context surfaces as such for exit codes.
		if parentErr := cmd.Context().Err(); parentErr != nil {
			return nil, parentErr
		}
		return nil, fmt.Errorf("evaluating %s: %w", path, err)
	}
	p.done("evaluated script", "nodes", glbuild.CountNodes(shape), "depth", glbuild.Depth(shape))
	return shape, nil
}

// programmer returns a shader programmer with the configured template and version header.
func programmer(cfg config.Config) (*glbuild.Programmer, error) {
	prog := glbuild.NewDefaultProgrammer()
	if cfg.Render.Template != "" {
		template, err := os.ReadFile(cfg.Render.Template)
		if err != nil {
			return nil, fmt.Errorf("reading render template: %w", err)
		}
		prog.SetTemplate(template)
	}
	if cfg.Render.Version != "" {
		prog.SetHeader([]byte(cfg.Render.Version + "\n"))
	}
	return prog, nil
}

// createOutput opens the named file for writing, "-" or empty being w.
func createOutput(name string, w io.Writer) (io.Writer, func() error, error) {
	if name == "" || name == "-" {
		return w, func() error { return nil }, nil
	}
	fp, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return fp, fp.Close, nil
}

var errCheckFailed = errors.New("shader and native evaluator disagree")
