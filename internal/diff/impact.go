package diff

import (
	"github.com/revet-dev/revet/internal/graph"
)

// DefaultMaxDepth bounds impact traversal on high fan-in nodes.
const DefaultMaxDepth = 3

// Analyzer computes the blast radius of a set of changes. It holds both the
// before- and after-graph because a removed node can only be traversed from
// the graph that still contains it.
type Analyzer struct {
	before   *graph.CodeGraph
	after    *graph.CodeGraph
	maxDepth int
}

// NewAnalyzer creates an impact analyzer over the two run graphs.
func NewAnalyzer(before, after *graph.CodeGraph) *Analyzer {
	return &Analyzer{before: before, after: after, maxDepth: DefaultMaxDepth}
}

// WithMaxDepth overrides the traversal depth bound; 0 means unbounded.
func (a *Analyzer) WithMaxDepth(depth int) *Analyzer {
	a.maxDepth = depth
	return a
}

// ChangeImpact is one change plus everything that transitively depends on it.
type ChangeImpact struct {
	Change         Change
	Classification Classification

	// Dependents is the deduplicated transitive dependent set of this
	// change, in traversal order.
	Dependents []graph.NodeID
}

// Summary counts changes by classification.
type Summary struct {
	Breaking            int `json:"breaking"`
	PotentiallyBreaking int `json:"potentially_breaking"`
	Safe                int `json:"safe"`
}

// Report is the result of impact analysis over one change set.
type Report struct {
	Changes []ChangeImpact
	Summary Summary

	// AffectedDependents is the size of the union of all dependent sets.
	// It is never a per-change sum: a node reachable from several changes,
	// or itself changed and depended upon, counts once.
	AffectedDependents int
}

// Analyze computes transitive dependents for each change over the reverse
// impact edges (Calls, Imports, Inherits, ReadsConfig, QueriesModel).
// Removed nodes traverse the before-graph; everything else the after-graph.
func (a *Analyzer) Analyze(changes []Change) *Report {
	report := &Report{}
	union := make(map[graph.NodeID]bool)

	for _, c := range changes {
		g := a.after
		if c.Kind == Removed {
			g = a.before
		}

		var dependents []graph.NodeID
		if g != nil {
			dependents = g.TransitiveDependents(c.Node.ID, a.maxDepth, graph.ImpactKinds...)
		}
		for _, id := range dependents {
			union[id] = true
		}

		impact := ChangeImpact{
			Change:         c,
			Classification: c.Classify(),
			Dependents:     dependents,
		}
		switch impact.Classification {
		case Breaking:
			report.Summary.Breaking++
		case PotentiallyBreaking:
			report.Summary.PotentiallyBreaking++
		default:
			report.Summary.Safe++
		}
		report.Changes = append(report.Changes, impact)
	}

	report.AffectedDependents = len(union)
	return report
}
