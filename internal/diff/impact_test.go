package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revet-dev/revet/internal/graph"
)

// impactFixture builds caller -> callee graphs:
//
//	b calls a, c calls b, d calls a (fan-in on a)
func impactFixture(t *testing.T) (*graph.CodeGraph, [4]graph.Node) {
	t.Helper()
	g := graph.New()
	a := fn("a", "a.py", 1, 1)
	b := fn("b", "b.py", 1, 2)
	c := fn("c", "c.py", 1, 3)
	d := fn("d", "d.py", 1, 4)
	for _, n := range []graph.Node{a, b, c, d} {
		g.AddNode(n)
	}
	require.NoError(t, g.AddEdge(graph.Edge{From: b.ID, To: a.ID, Kind: graph.EdgeCalls}))
	require.NoError(t, g.AddEdge(graph.Edge{From: c.ID, To: b.ID, Kind: graph.EdgeCalls}))
	require.NoError(t, g.AddEdge(graph.Edge{From: d.ID, To: a.ID, Kind: graph.EdgeCalls}))
	return g, [4]graph.Node{a, b, c, d}
}

func modified(n graph.Node) Change {
	return Change{Kind: Modified, Node: SnapshotEntry{
		ID: n.ID, Kind: n.Kind, Name: n.Name, File: n.File, Line: n.Line,
	}}
}

func TestAnalyzeSingleChange(t *testing.T) {
	g, nodes := impactFixture(t)
	a, b, c, d := nodes[0], nodes[1], nodes[2], nodes[3]

	report := NewAnalyzer(nil, g).Analyze([]Change{modified(a)})
	require.Len(t, report.Changes, 1)

	assert.ElementsMatch(t, []graph.NodeID{b.ID, c.ID, d.ID}, report.Changes[0].Dependents)
	assert.Equal(t, 3, report.AffectedDependents)
	assert.Equal(t, PotentiallyBreaking, report.Changes[0].Classification)
	assert.Equal(t, 1, report.Summary.PotentiallyBreaking)
}

func TestAnalyzeUnionNeverDoubleCounts(t *testing.T) {
	g, nodes := impactFixture(t)
	a, b := nodes[0], nodes[1]

	// a and b both changed: c depends on both, b is itself changed and a
	// dependent of a. The union counts each node once.
	report := NewAnalyzer(nil, g).Analyze([]Change{modified(a), modified(b)})

	perChangeSum := 0
	for _, ci := range report.Changes {
		perChangeSum += len(ci.Dependents)
	}
	assert.Greater(t, perChangeSum, report.AffectedDependents,
		"the union must be smaller than the per-change sum when sets overlap")
	assert.Equal(t, 3, report.AffectedDependents) // union of {b,c,d} and {c}
}

func TestAnalyzeRemovedUsesBeforeGraph(t *testing.T) {
	before, nodes := impactFixture(t)
	a, b := nodes[0], nodes[1]

	// After the removal, the after-graph no longer contains a.
	after := graph.New()
	for _, n := range nodes[1:] {
		after.AddNode(n)
	}

	change := Change{Kind: Removed, Node: SnapshotEntry{ID: a.ID, Kind: a.Kind, Name: a.Name, File: a.File}}
	report := NewAnalyzer(before, after).Analyze([]Change{change})

	require.Len(t, report.Changes, 1)
	assert.Contains(t, report.Changes[0].Dependents, b.ID,
		"removed nodes traverse the graph that still contains them")
	assert.Equal(t, 3, report.AffectedDependents)
}

func TestAnalyzeDepthBound(t *testing.T) {
	g, nodes := impactFixture(t)
	a := nodes[0]

	report := NewAnalyzer(nil, g).WithMaxDepth(1).Analyze([]Change{modified(a)})
	assert.Equal(t, 2, report.AffectedDependents, "depth 1 sees only direct callers")
}

func TestAnalyzeIgnoresNonImpactEdges(t *testing.T) {
	g := graph.New()
	a := fn("a", "a.py", 1, 1)
	m := graph.NewNode(graph.NodeModule, "a", "a.py", 1, 50, "python")
	g.AddNode(a)
	g.AddNode(m)
	require.NoError(t, g.AddEdge(graph.Edge{From: m.ID, To: a.ID, Kind: graph.EdgeContains}))

	report := NewAnalyzer(nil, g).Analyze([]Change{modified(a)})
	assert.Equal(t, 0, report.AffectedDependents,
		"containment is not a dependency")
}
