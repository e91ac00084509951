package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revet-dev/revet/internal/config"
	"github.com/revet-dev/revet/internal/finding"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestEngine(t *testing.T, root string, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	e, err := New(cfg, root)
	require.NoError(t, err)
	return e
}

func TestReviewEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")
	writeFile(t, root, "b.py", "from a import f\n\ndef g():\n    return f()\n")

	e := newTestEngine(t, root, nil)
	ctx := context.Background()

	first, err := e.Review(ctx)
	require.NoError(t, err)
	assert.False(t, first.Superseded)
	assert.Equal(t, 2, first.Summary.FilesAnalyzed)
	assert.Zero(t, first.Summary.FilesSkipped)
	assert.Zero(t, first.Summary.Total(), "a fresh workspace is all additions, which are safe")
	assert.Greater(t, first.Summary.NodesParsed, 2)

	// Changing f's body keeps its identity but not its content.
	writeFile(t, root, "a.py", "def f():\n    return 2\n")

	second, err := e.Review(ctx)
	require.NoError(t, err)
	require.Len(t, second.Findings, 1)

	f := second.Findings[0]
	assert.Equal(t, finding.SeverityWarning, f.Severity)
	assert.True(t, strings.HasPrefix(f.ID, "IMPACT-"))
	assert.Equal(t, "a.py", f.File)
	assert.Contains(t, f.Message, "modified")
	assert.Contains(t, f.Message, `"f"`)
	assert.Equal(t, 1, f.AffectedDependents, "g calls f across files")
	assert.Equal(t, 1, second.Summary.Warnings)
}

func TestReviewRemovalUsesPreviousGraph(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")
	writeFile(t, root, "b.py", "from a import f\n\ndef g():\n    return f()\n")

	e := newTestEngine(t, root, nil)
	ctx := context.Background()

	_, err := e.Review(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.py")))

	res, err := e.Review(ctx)
	require.NoError(t, err)

	var removal *finding.Finding
	for i := range res.Findings {
		if strings.Contains(res.Findings[i].Message, "removed") &&
			strings.Contains(res.Findings[i].Message, `"f"`) {
			removal = &res.Findings[i]
		}
	}
	require.NotNil(t, removal, "removing f must surface a finding")
	assert.Equal(t, finding.SeverityWarning, removal.Severity)
	assert.Equal(t, 1, removal.AffectedDependents,
		"dependents of a removed node come from the graph that still had it")
}

func TestReviewParseFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.py", "def ok():\n    return 1\n")
	writeFile(t, root, "bad.py", "def broken(:\n")

	e := newTestEngine(t, root, nil)
	res, err := e.Review(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.FilesAnalyzed)
	assert.Equal(t, 1, res.Summary.FilesSkipped)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad.py", res.Failures[0].File)
}

func TestReviewSkipsIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "def main():\n    return 0\n")
	writeFile(t, root, "vendor/dep.py", "def vendored():\n    return 0\n")

	e := newTestEngine(t, root, func(cfg *config.Config) {
		cfg.Ignore.Paths = []string{"vendor/"}
	})
	res, err := e.Review(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.FilesAnalyzed)
	for _, n := range res.Graph.Nodes() {
		assert.NotContains(t, n.File, "vendor/")
	}
}

func TestReviewSuppressedFindings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	e := newTestEngine(t, root, func(cfg *config.Config) {
		cfg.Ignore.Findings = []string{"IMPACT-"}
	})
	ctx := context.Background()

	_, err := e.Review(ctx)
	require.NoError(t, err)

	writeFile(t, root, "a.py", "def f():\n    return 2\n")
	res, err := e.Review(ctx)
	require.NoError(t, err)

	assert.Empty(t, res.Findings, "suppressed prefixes drop matching findings")
}

func TestReviewCacheHitsOnSecondRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")
	writeFile(t, root, "b.py", "def g():\n    return 2\n")

	cfg := config.Default()
	e, err := New(cfg, root)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Review(ctx)
	require.NoError(t, err)
	hits, misses := e.CacheStats()
	assert.Zero(t, hits)
	assert.Equal(t, int64(2), misses)

	res, err := e.Review(ctx)
	require.NoError(t, err)
	hits, _ = e.CacheStats()
	assert.Equal(t, int64(2), hits, "unchanged files parse from cache")
	assert.Zero(t, res.Summary.Total())
}

func TestBaselinePersistsAcrossEngines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	cfg := config.Default()
	ctx := context.Background()

	e1, err := New(cfg, root)
	require.NoError(t, err)
	_, err = e1.Review(ctx)
	require.NoError(t, err)

	// A new engine over the same root diffs against the stored baseline,
	// so an unchanged workspace reports nothing.
	e2, err := New(cfg, root)
	require.NoError(t, err)
	res, err := e2.Review(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Total())

	writeFile(t, root, "a.py", "def f():\n    return 2\n")
	e3, err := New(cfg, root)
	require.NoError(t, err)
	res, err = e3.Review(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Warnings)
}

func TestClearCacheResetsBaseline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	cfg := config.Default()
	e, err := New(cfg, root)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Review(ctx)
	require.NoError(t, err)
	require.NoError(t, e.ClearCache())

	// With the baseline gone everything is an addition again.
	res, err := e.Review(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Total())
}

func TestReviewRejectsUnreadableRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	e, err := New(cfg, filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	_, err = e.Review(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable")
}

func TestSupersededGeneration(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), nil)

	gen := e.generation.Add(1)
	assert.False(t, e.superseded(gen))

	e.generation.Add(1)
	assert.True(t, e.superseded(gen), "an older generation yields to a newer one")
}

func TestSeedBaselineFromGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	gitArgs := [][]string{
		{"init", "-b", "main"},
		{"add", "."},
		{"-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "-m", "initial"},
	}
	for _, args := range gitArgs {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	// The working tree diverges from main before the first review.
	writeFile(t, root, "a.py", "def f():\n    return 2\n")

	e := newTestEngine(t, root, func(cfg *config.Config) {
		cfg.General.DiffBase = "main"
	})
	res, err := e.Review(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Warnings,
		"the first review diffs against the base ref, not an empty baseline")
}

func TestResolutionSuggestion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def compute_total():\n    return 1\n")
	writeFile(t, root, "b.py", "def g():\n    return compute_totl()\n")

	e := newTestEngine(t, root, nil)
	res, err := e.Review(context.Background())
	require.NoError(t, err)

	var hint *finding.Finding
	for i := range res.Findings {
		if strings.HasPrefix(res.Findings[i].ID, "RESOLVE-") {
			hint = &res.Findings[i]
		}
	}
	require.NotNil(t, hint, "a near-miss reference earns a suggestion")
	assert.Equal(t, finding.SeverityInfo, hint.Severity)
	assert.Contains(t, hint.Message, "compute_totl")
	assert.Contains(t, hint.Suggestion, `"compute_total"`)
	assert.Equal(t, "b.py", hint.File)
}
