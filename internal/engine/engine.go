package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hbollon/go-edlib"
	"golang.org/x/sync/errgroup"

	"github.com/revet-dev/revet/internal/cache"
	"github.com/revet-dev/revet/internal/config"
	"github.com/revet-dev/revet/internal/diff"
	"github.com/revet-dev/revet/internal/discovery"
	"github.com/revet-dev/revet/internal/finding"
	"github.com/revet-dev/revet/internal/git"
	"github.com/revet-dev/revet/internal/graph"
	"github.com/revet-dev/revet/internal/idcodec"
	"github.com/revet-dev/revet/internal/parser"
	"github.com/revet-dev/revet/pkg/pathutil"
)

const baselineFileName = "baseline.json"

// suggestionThreshold is the minimum Jaro-Winkler similarity for an
// unresolved reference to earn a "did you mean" finding.
const suggestionThreshold = 0.8

// Engine orchestrates one workspace's analysis runs: discovery, parallel
// parsing, graph assembly, diffing, and impact analysis. It is safe to call
// Review from multiple goroutines; each call is a new generation and a run
// superseded by a newer generation abandons its writes.
type Engine struct {
	cfg        *config.Config
	root       string
	dispatcher *parser.Dispatcher
	cache      *cache.GraphCache

	generation atomic.Uint64

	mu           sync.Mutex
	lastGraph    *graph.CodeGraph
	lastSnapshot diff.Snapshot
}

// Result is the outcome of a single analysis run.
type Result struct {
	Generation uint64

	// Superseded marks a run abandoned because a newer generation started
	// before it could publish; its findings must not be acted on.
	Superseded bool

	Findings []finding.Finding
	Summary  finding.ReviewSummary
	Report   *diff.Report
	Graph    *graph.CodeGraph
	Failures []parser.ParseError
}

// New creates an engine rooted at root.
func New(cfg *config.Config, root string) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	dispatcher, err := parser.NewDispatcher()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		root:       abs,
		dispatcher: dispatcher,
	}
	if cfg.Cache.Enabled {
		e.cache = cache.Open(filepath.Join(abs, cfg.Cache.Dir, cache.DefaultFileName))
		e.lastSnapshot = loadSnapshot(e.baselinePath())
	}
	return e, nil
}

// Root returns the absolute workspace root.
func (e *Engine) Root() string { return e.root }

// Dispatcher exposes the parser set, e.g. for watch-mode event filtering.
func (e *Engine) Dispatcher() *parser.Dispatcher { return e.dispatcher }

// Review runs one full analysis generation and returns its findings.
// Per-file parse failures are recorded, not fatal; only configuration and
// root-path problems abort the run.
func (e *Engine) Review(ctx context.Context) (*Result, error) {
	gen := e.generation.Add(1)

	e.seedBaseline(ctx)

	walker, err := discovery.New(e.root, e.dispatcher.SupportedExtensions(), e.cfg.Ignore.Paths)
	if err != nil {
		return nil, err
	}
	files, err := walker.Discover()
	if err != nil {
		return nil, err
	}

	results, err := e.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}
	if e.superseded(gen) {
		return &Result{Generation: gen, Superseded: true}, nil
	}

	cg := graph.New()
	var failures []parser.ParseError
	analyzed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.failure != nil {
			failures = append(failures, *r.failure)
			continue
		}
		if err := cg.Merge(r.parse); err != nil {
			return nil, err
		}
		analyzed++
	}
	cg.ResolvePending()

	e.mu.Lock()
	before := e.lastGraph
	beforeSnap := e.lastSnapshot
	e.mu.Unlock()

	snap := diff.Capture(cg)
	changes := diff.Classify(beforeSnap, snap)
	report := diff.NewAnalyzer(before, cg).
		WithMaxDepth(e.cfg.General.MaxImpactDepth).
		Analyze(changes)

	findings := impactFindings(report)
	findings = append(findings, resolutionFindings(cg)...)
	findings = suppress(findings, e.cfg.Ignore.Findings)

	summary := finding.Summarize(findings, analyzed, cg.NodeCount(), len(failures))
	for _, f := range failures {
		log.Printf("Warning: skipped %s: %s", f.File, f.Message)
	}

	if e.superseded(gen) {
		return &Result{Generation: gen, Superseded: true}, nil
	}

	// Publish: later runs diff against this graph, and cache writes land
	// only for runs that survived to this point.
	e.mu.Lock()
	e.lastGraph = cg
	e.lastSnapshot = snap
	e.mu.Unlock()

	if e.cache != nil {
		for _, r := range results {
			if r != nil && r.failure == nil && !r.fromCache {
				e.cache.Put(r.parse.File, r.fingerprint, r.parse)
			}
		}
		if err := e.cache.Flush(); err != nil {
			log.Printf("Warning: cache flush failed: %v", err)
		}
		if err := saveSnapshot(e.baselinePath(), snap); err != nil {
			log.Printf("Warning: baseline save failed: %v", err)
		}
	}

	return &Result{
		Generation: gen,
		Findings:   findings,
		Summary:    summary,
		Report:     report,
		Graph:      cg,
		Failures:   failures,
	}, nil
}

// ClearCache drops the parse cache and the diff baseline.
func (e *Engine) ClearCache() error {
	if e.cache != nil {
		if err := e.cache.Clear(); err != nil {
			return err
		}
	}
	if err := os.Remove(e.baselinePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	e.mu.Lock()
	e.lastGraph = nil
	e.lastSnapshot = nil
	e.mu.Unlock()
	return nil
}

// CacheStats returns parse-cache hit and miss counts for this engine.
func (e *Engine) CacheStats() (hits, misses int64) {
	if e.cache == nil {
		return 0, 0
	}
	return e.cache.Stats()
}

// seedBaseline builds the before-graph from the configured git base ref when
// no stored baseline exists, so the first review in a repository diffs
// against the base branch instead of reporting everything as added. Outside
// a git repository this is a no-op.
func (e *Engine) seedBaseline(ctx context.Context) {
	base := e.cfg.General.DiffBase
	if base == "" {
		return
	}

	e.mu.Lock()
	seeded := e.lastGraph != nil || e.lastSnapshot != nil
	e.mu.Unlock()
	if seeded {
		return
	}

	provider, err := git.NewProvider(e.root)
	if err != nil {
		return
	}
	if !provider.RefExists(ctx, base) {
		log.Printf("Warning: diff base %q not found, starting from an empty baseline", base)
		return
	}

	// The engine root may sit below the repository root; git paths are
	// repository-relative, analysis paths root-relative.
	prefix, err := filepath.Rel(provider.RepoRoot(), e.root)
	if err != nil {
		return
	}
	prefix = filepath.ToSlash(prefix)

	walker, err := discovery.New(e.root, e.dispatcher.SupportedExtensions(), e.cfg.Ignore.Paths)
	if err != nil {
		return
	}
	files, err := provider.ListFiles(ctx, base)
	if err != nil {
		log.Printf("Warning: cannot list files at %q: %v", base, err)
		return
	}

	cg := graph.New()
	for _, repoPath := range files {
		rel := repoPath
		if prefix != "." {
			if !strings.HasPrefix(repoPath, prefix+"/") {
				continue
			}
			rel = repoPath[len(prefix)+1:]
		}
		if hiddenPath(rel) || walker.Ignored(rel) || !e.dispatcher.Supports(rel) {
			continue
		}
		content, err := provider.ShowFile(ctx, base, repoPath)
		if err != nil {
			continue
		}
		fp, err := e.dispatcher.Parse(content, rel)
		if err != nil || fp == nil {
			continue
		}
		if err := cg.Merge(fp); err != nil {
			continue
		}
	}
	cg.ResolvePending()

	e.mu.Lock()
	if e.lastGraph == nil && e.lastSnapshot == nil {
		e.lastGraph = cg
		e.lastSnapshot = diff.Capture(cg)
	}
	e.mu.Unlock()
}

// hiddenPath mirrors discovery's hidden-entry rule for git-sourced paths.
func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (e *Engine) superseded(gen uint64) bool {
	return e.generation.Load() != gen
}

func (e *Engine) baselinePath() string {
	return filepath.Join(e.root, e.cfg.Cache.Dir, baselineFileName)
}

type parseResult struct {
	parse       *graph.FileParse
	fingerprint uint64
	fromCache   bool
	failure     *parser.ParseError
}

// parseAll parallel-maps parsing across the discovered files. Workers share
// nothing but the read-side of the cache; per-file output lands in a
// distinct slice slot.
func (e *Engine) parseAll(ctx context.Context, files []string) ([]*parseResult, error) {
	results := make([]*parseResult, len(files))

	workers := e.cfg.General.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rel := pathutil.ToSlashRelative(path, e.root)

			content, err := readFileRetry(path)
			if err != nil {
				results[i] = &parseResult{failure: &parser.ParseError{
					File: rel, Line: 1, Message: err.Error(),
				}}
				return nil
			}

			fprint := cache.Fingerprint(content)
			if e.cache != nil {
				if fp, ok := e.cache.Get(rel, fprint); ok {
					results[i] = &parseResult{parse: fp, fingerprint: fprint, fromCache: true}
					return nil
				}
			}

			fp, err := e.dispatcher.Parse(content, rel)
			if err != nil {
				var perr *parser.ParseError
				if errors.As(err, &perr) {
					results[i] = &parseResult{failure: perr}
					return nil
				}
				return err
			}
			if fp != nil {
				results[i] = &parseResult{parse: fp, fingerprint: fprint}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readFileRetry reads a file, retrying once on a transient error.
func readFileRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	time.Sleep(10 * time.Millisecond)
	return os.ReadFile(path)
}

// impactFindings turns non-safe changes into findings. Breaking changes are
// errors, potentially-breaking ones warnings.
func impactFindings(report *diff.Report) []finding.Finding {
	var findings []finding.Finding
	for _, ci := range report.Changes {
		if ci.Classification == diff.Safe {
			continue
		}

		severity := finding.SeverityWarning
		if ci.Classification == diff.Breaking {
			severity = finding.SeverityError
		}

		node := ci.Change.Node
		message := fmt.Sprintf("%s %s %q affects %d dependent(s)",
			ci.Change.Kind, node.Kind, node.Name, len(ci.Dependents))
		if ci.Change.Kind == diff.Renamed {
			message = fmt.Sprintf("renamed %s %q to %q, affects %d dependent(s)",
				node.Kind, ci.Change.OldName, node.Name, len(ci.Dependents))
		}

		f := finding.Finding{
			ID:                 idcodec.FindingID("IMPACT", node.ID),
			Severity:           severity,
			Message:            message,
			File:               node.File,
			Line:               node.Line,
			AffectedDependents: len(ci.Dependents),
		}
		switch ci.Change.Kind {
		case diff.Removed:
			f.Suggestion = "update or remove the references that depended on it"
		case diff.Renamed:
			f.Suggestion = fmt.Sprintf("update references from %q to %q", ci.Change.OldName, node.Name)
			f.Fix = &finding.Fix{
				Kind:        finding.FixReplacePattern,
				Pattern:     ci.Change.OldName,
				Replacement: node.Name,
			}
		}
		findings = append(findings, f)
	}
	return findings
}

// resolutionFindings surfaces unresolved call and inheritance references
// that look like typos of an exported symbol. Unresolved imports are
// expected (external packages) and stay silent.
func resolutionFindings(cg *graph.CodeGraph) []finding.Finding {
	pending := cg.Pending()
	if len(pending) == 0 {
		return nil
	}

	var exported []string
	for _, n := range cg.Nodes() {
		if n.Exported && n.Kind != graph.NodeModule && n.Kind != graph.NodeImport {
			exported = append(exported, n.Name)
		}
	}

	type key struct {
		from   graph.NodeID
		target string
	}
	seen := make(map[key]bool)

	var findings []finding.Finding
	for _, p := range pending {
		if p.Kind == graph.EdgeImports {
			continue
		}
		k := key{from: p.From, target: p.TargetName}
		if seen[k] {
			continue
		}
		seen[k] = true

		suggestion := closestName(p.TargetName, exported)
		if suggestion == "" {
			continue
		}

		from, ok := cg.Node(p.From)
		if !ok {
			continue
		}
		line := from.Line
		if p.Metadata != nil && p.Metadata.CallLine > 0 {
			line = p.Metadata.CallLine
		}
		findings = append(findings, finding.Finding{
			ID:         idcodec.FindingID("RESOLVE", p.From),
			Severity:   finding.SeverityInfo,
			Message:    fmt.Sprintf("unresolved reference %q", p.TargetName),
			File:       from.File,
			Line:       line,
			Suggestion: fmt.Sprintf("did you mean %q?", suggestion),
		})
	}
	return findings
}

// closestName returns the most similar exported name above the suggestion
// threshold, or "".
func closestName(target string, candidates []string) string {
	best := ""
	bestScore := float32(suggestionThreshold)
	for _, c := range candidates {
		if c == target {
			continue
		}
		score, err := edlib.StringsSimilarity(target, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// suppress drops findings whose ID starts with a suppressed prefix.
func suppress(findings []finding.Finding, prefixes []string) []finding.Finding {
	if len(prefixes) == 0 {
		return findings
	}
	kept := findings[:0]
	for _, f := range findings {
		drop := false
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(f.ID, p) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	return kept
}

func loadSnapshot(path string) diff.Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var snap diff.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return snap
}

func saveSnapshot(path string, snap diff.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
