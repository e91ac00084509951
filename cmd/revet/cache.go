package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/revet-dev/revet/internal/engine"
)

// cacheClearCommand drops the parse cache and the diff baseline so the next
// review starts from scratch.
func cacheClearCommand(c *cli.Context) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eng, err := engine.New(cfg, root)
	if err != nil {
		return err
	}
	if err := eng.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	if !c.Bool("json") {
		fmt.Println("Cache cleared")
	}
	return nil
}
