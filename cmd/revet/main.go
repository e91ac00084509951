package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/revet-dev/revet/internal/config"
	"github.com/revet-dev/revet/internal/version"
)

var Version = version.Version

// loadConfigWithOverrides loads configuration from the project root and
// applies CLI flag overrides on top.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, string, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	var cfg *config.Config
	if configPath := c.String("config"); configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(absRoot)
	}
	if err != nil {
		return nil, "", err
	}

	if failOn := c.String("fail-on"); failOn != "" {
		cfg.General.FailOn = failOn
	}
	if c.IsSet("workers") {
		cfg.General.Workers = c.Int("workers")
	}
	if c.IsSet("max-depth") {
		cfg.General.MaxImpactDepth = c.Int("max-depth")
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if ignore := c.StringSlice("ignore"); len(ignore) > 0 {
		cfg.Ignore.Paths = append(cfg.Ignore.Paths, ignore...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, absRoot, nil
}

func main() {
	app := &cli.App{
		Name:    "revet",
		Usage:   "Change-impact code review across a multi-language codebase",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: .revet.toml found from the root upward)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to analyze",
			},
			&cli.StringFlag{
				Name:  "fail-on",
				Usage: "Severity threshold for a non-zero exit: error, warning, info, never",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel parse workers (0 = number of CPUs)",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Impact traversal depth bound (0 = unbounded)",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the on-disk parse cache",
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Additional ignore glob (e.g. --ignore 'generated/**')",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "review",
				Aliases: []string{"rv"},
				Usage:   "Analyze the workspace and report change-impact findings",
				Action:  reviewCommand,
			},
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Re-review continuously as files change",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period after the last change before a run starts",
					},
				},
				Action: watchCommand,
			},
			{
				Name:  "cache",
				Usage: "Manage the on-disk parse cache",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Drop the parse cache and the diff baseline",
						Action: cacheClearCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
