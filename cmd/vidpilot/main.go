// Command vidpilot generates social captions, posts, video story scripts
// and voice-overs through a prioritized chain of AI providers, falling back
// to a local generator when every provider fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "vidpilot: %v\n", err)
		}
		return 1
	}
	return 0
}
