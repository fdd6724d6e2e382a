// Command feed-replay generates synthetic achievement feeds and replays them
// against a trophycase service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/okian/trophycase/internal/feedreplay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := feedreplay.NewRootCommand().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "feed-replay: %v\n", err)
		stop()
		os.Exit(1)
	}
}
