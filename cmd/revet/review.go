package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/revet-dev/revet/internal/engine"
	"github.com/revet-dev/revet/internal/finding"
)

// ReviewReport is the JSON shape of one review run.
type ReviewReport struct {
	Timestamp  time.Time             `json:"timestamp"`
	Root       string                `json:"root"`
	DurationMs int64                 `json:"duration_ms"`
	Summary    finding.ReviewSummary `json:"summary"`
	Findings   []finding.Finding     `json:"findings"`
}

// reviewCommand runs a single analysis pass and exits non-zero when the
// findings exceed the configured fail-on threshold.
func reviewCommand(c *cli.Context) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eng, err := engine.New(cfg, root)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := eng.Review(c.Context)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if c.Bool("json") {
		if err := outputReviewJSON(root, result, elapsed); err != nil {
			return err
		}
	} else {
		outputReviewHuman(result, elapsed)
	}

	if result.Summary.ExceedsThreshold(cfg.General.FailOn) {
		return cli.Exit("", 1)
	}
	return nil
}

func outputReviewJSON(root string, result *engine.Result, elapsed time.Duration) error {
	report := ReviewReport{
		Timestamp:  time.Now(),
		Root:       root,
		DurationMs: elapsed.Milliseconds(),
		Summary:    result.Summary,
		Findings:   result.Findings,
	}
	if report.Findings == nil {
		report.Findings = []finding.Finding{}
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func outputReviewHuman(result *engine.Result, elapsed time.Duration) {
	for _, f := range result.Findings {
		fmt.Printf("%s: %s:%d: %s [%s]\n", f.Severity, f.File, f.Line, f.Message, f.ID)
		if f.Suggestion != "" {
			fmt.Printf("  suggestion: %s\n", f.Suggestion)
		}
	}
	if len(result.Findings) > 0 {
		fmt.Println()
	}

	s := result.Summary
	if elapsed > 0 {
		fmt.Printf("Analyzed %d files (%d nodes) in %s\n", s.FilesAnalyzed, s.NodesParsed, formatDuration(elapsed))
	} else {
		fmt.Printf("Analyzed %d files (%d nodes)\n", s.FilesAnalyzed, s.NodesParsed)
	}
	if s.FilesSkipped > 0 {
		fmt.Printf("Skipped %d unparseable file(s)\n", s.FilesSkipped)
	}
	fmt.Printf("Findings: %d error(s), %d warning(s), %d info\n", s.Errors, s.Warnings, s.Info)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}
