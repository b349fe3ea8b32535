// Command csgsdf builds signed distance field shapes from scripts and
// exports them as GLSL shaders, STL meshes and PNG cross sections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soypat/csgsdf/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if errors.Is(err, context.Canceled) {
		os.Exit(130)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "csgsdf:", err)
		os.Exit(1)
	}
}
