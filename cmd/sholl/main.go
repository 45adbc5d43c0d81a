// Command sholl samples Sholl profiles from images and fits them.
//
//	sholl sample neuron.tif --center 212,198 --config sholl.yaml --out results
//	sholl analyze results/neuron_profile.csv --html
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sholl/internal/fsutil"
)

// Main runs the command line and returns the process exit code.
func Main() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(&app{fsys: fsutil.OSFileSystem{}})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
