package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(name, file string, line int) Node {
	n := NewNode(NodeFunction, name, file, line, line+5, "python")
	n.Exported = true
	n.ContentHash = uint64(line) * 31
	return n
}

func TestMakeNodeIDDeterministic(t *testing.T) {
	a := MakeNodeID("src/a.py", NodeFunction, "a.helper")
	b := MakeNodeID("src/a.py", NodeFunction, "a.helper")
	assert.Equal(t, a, b)

	// Any component change produces a different ID.
	assert.NotEqual(t, a, MakeNodeID("src/b.py", NodeFunction, "a.helper"))
	assert.NotEqual(t, a, MakeNodeID("src/a.py", NodeClass, "a.helper"))
	assert.NotEqual(t, a, MakeNodeID("src/a.py", NodeFunction, "a.other"))
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := New()
	a := fn("a", "a.py", 1)
	g.AddNode(a)

	err := g.AddEdge(Edge{From: a.ID, To: NodeID(12345), Kind: EdgeCalls})
	require.ErrorIs(t, err, ErrUnknownEndpoint)

	err = g.AddEdge(Edge{From: NodeID(54321), To: a.ID, Kind: EdgeCalls})
	require.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestMergeReplacesFileSubgraph(t *testing.T) {
	g := New()

	a := fn("a", "a.py", 1)
	b := fn("b", "a.py", 10)
	require.NoError(t, g.Merge(&FileParse{
		File:  "a.py",
		Nodes: []Node{a, b},
		Edges: []Edge{{From: b.ID, To: a.ID, Kind: EdgeCalls}},
	}))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	// Re-parse drops b and keeps a.
	require.NoError(t, g.Merge(&FileParse{File: "a.py", Nodes: []Node{a}}))
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	_, ok := g.Node(b.ID)
	assert.False(t, ok)
}

func TestMergeIdempotent(t *testing.T) {
	g := New()
	a := fn("a", "a.py", 1)
	b := fn("b", "a.py", 10)
	sub := &FileParse{
		File:  "a.py",
		Nodes: []Node{a, b},
		Edges: []Edge{{From: b.ID, To: a.ID, Kind: EdgeCalls}},
	}

	require.NoError(t, g.Merge(sub))
	require.NoError(t, g.Merge(sub))

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.EdgesTo(a.ID), 1)
	assert.Len(t, g.EdgesFrom(b.ID), 1)
}

func TestMergeRependsCrossFileEdges(t *testing.T) {
	g := New()
	target := fn("util.helper", "util.py", 1)
	caller := fn("main.run", "main.py", 1)
	require.NoError(t, g.Merge(&FileParse{File: "util.py", Nodes: []Node{target}}))
	require.NoError(t, g.Merge(&FileParse{File: "main.py", Nodes: []Node{caller}}))
	require.NoError(t, g.AddEdge(Edge{From: caller.ID, To: target.ID, Kind: EdgeCalls}))

	// Re-parsing util.py removes the old target node; the caller's edge must
	// fall back to pending rather than dangle.
	renamed := fn("util.helper2", "util.py", 1)
	require.NoError(t, g.Merge(&FileParse{File: "util.py", Nodes: []Node{renamed}}))

	assert.Equal(t, 0, g.EdgeCount())
	pending := g.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, caller.ID, pending[0].From)
	assert.Equal(t, "util.helper", pending[0].TargetName)

	// Unresolvable: the replacement exports a different name.
	assert.Equal(t, 0, g.ResolvePending())
	assert.Len(t, g.Pending(), 1)
}

func TestResolvePendingLinksExportedSymbol(t *testing.T) {
	g := New()
	target := fn("util.helper", "util.py", 1)
	caller := fn("main.run", "main.py", 1)
	require.NoError(t, g.Merge(&FileParse{File: "util.py", Nodes: []Node{target}}))
	require.NoError(t, g.Merge(&FileParse{
		File:  "main.py",
		Nodes: []Node{caller},
		Pending: []PendingEdge{
			{From: caller.ID, Kind: EdgeCalls, TargetName: "util.helper", Metadata: CallMeta(3, true)},
		},
	}))

	assert.Equal(t, 1, g.ResolvePending())
	assert.Empty(t, g.Pending())

	edges := g.EdgesTo(target.ID, EdgeCalls)
	require.Len(t, edges, 1)
	assert.Equal(t, caller.ID, edges[0].From)
	assert.Equal(t, 3, edges[0].Metadata.CallLine)
}

func TestResolvePendingSkipsUnexported(t *testing.T) {
	g := New()
	hidden := NewNode(NodeFunction, "util.secret", "util.py", 1, 4, "python")
	hidden.Exported = false
	caller := fn("main.run", "main.py", 1)
	require.NoError(t, g.Merge(&FileParse{File: "util.py", Nodes: []Node{hidden}}))
	require.NoError(t, g.Merge(&FileParse{
		File:    "main.py",
		Nodes:   []Node{caller},
		Pending: []PendingEdge{{From: caller.ID, Kind: EdgeCalls, TargetName: "util.secret"}},
	}))

	assert.Equal(t, 0, g.ResolvePending())
	assert.Len(t, g.Pending(), 1)
}

func TestResolvePendingTieBreakIsDeterministic(t *testing.T) {
	// Two files export the same qualified name; the candidate with the
	// lexically smallest file path wins.
	g := New()
	first := fn("shared.helper", "aaa.py", 5)
	second := fn("shared.helper", "zzz.py", 1)
	caller := fn("main.run", "main.py", 1)
	require.NoError(t, g.Merge(&FileParse{File: "zzz.py", Nodes: []Node{second}}))
	require.NoError(t, g.Merge(&FileParse{File: "aaa.py", Nodes: []Node{first}}))
	require.NoError(t, g.Merge(&FileParse{
		File:    "main.py",
		Nodes:   []Node{caller},
		Pending: []PendingEdge{{From: caller.ID, Kind: EdgeCalls, TargetName: "shared.helper"}},
	}))

	require.Equal(t, 1, g.ResolvePending())
	edges := g.EdgesFrom(caller.ID, EdgeCalls)
	require.Len(t, edges, 1)
	assert.Equal(t, first.ID, edges[0].To)
}
