package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/revet-dev/revet/internal/engine"
)

// watchCommand reviews continuously until interrupted. The fail-on threshold
// does not apply in watch mode; findings stream as the workspace evolves.
func watchCommand(c *cli.Context) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eng, err := engine.New(cfg, root)
	if err != nil {
		return err
	}
	watcher, err := engine.NewWatcher(eng, c.Duration("debounce"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	watcher.Start(ctx)
	if !c.Bool("json") {
		fmt.Printf("Watching %s for changes (Ctrl-C to stop)\n", root)
	}

	for {
		select {
		case sig := <-sigCh:
			if !c.Bool("json") {
				fmt.Printf("\nReceived %v, shutting down\n", sig)
			}
			cancel()
			watcher.Stop()
			return nil
		case result, ok := <-watcher.Results():
			if !ok {
				return nil
			}
			if c.Bool("json") {
				if err := outputReviewJSON(root, result, 0); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))
			outputReviewHuman(result, 0)
		}
	}
}
