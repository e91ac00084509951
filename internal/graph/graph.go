package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownEndpoint is returned by AddEdge when an endpoint is neither an
// existing node nor an explicit pending placeholder.
var ErrUnknownEndpoint = errors.New("edge endpoint is not a known node")

// CodeGraph is the unified, mutable store of nodes and edges across all
// parsed files. Edges are indexed both by source and by target so that
// "what does X depend on" and "what depends on X" are near-constant per hop.
//
// Concurrency contract: mutation (AddNode, AddEdge, Merge, ResolvePending)
// is single-writer; the engine folds per-file subgraphs in sequentially
// after the parallel parse phase. Once a run's graph is stable, read queries
// may run in parallel.
type CodeGraph struct {
	nodes   map[NodeID]Node
	forward map[NodeID][]Edge
	reverse map[NodeID][]Edge

	// fileNodes tracks which nodes each file contributed so a re-parse can
	// replace that file's subgraph atomically.
	fileNodes map[string][]NodeID

	// pending holds edges whose target has not been resolved to a NodeID.
	pending []PendingEdge
}

// New creates an empty code graph.
func New() *CodeGraph {
	return &CodeGraph{
		nodes:     make(map[NodeID]Node),
		forward:   make(map[NodeID][]Edge),
		reverse:   make(map[NodeID][]Edge),
		fileNodes: make(map[string][]NodeID),
	}
}

// AddNode inserts or overwrites a node.
func (g *CodeGraph) AddNode(n Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.fileNodes[n.File] = append(g.fileNodes[n.File], n.ID)
	}
	g.nodes[n.ID] = n
}

// AddEdge inserts a directed edge. Both endpoints must already exist;
// references to symbols that are not in the graph yet belong in the pending
// table via AddPending, not here.
func (g *CodeGraph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("%w: from %d", ErrUnknownEndpoint, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("%w: to %d", ErrUnknownEndpoint, e.To)
	}
	g.forward[e.From] = append(g.forward[e.From], e)
	g.reverse[e.To] = append(g.reverse[e.To], e)
	return nil
}

// AddPending records an edge against an unresolved qualified name.
func (g *CodeGraph) AddPending(p PendingEdge) {
	g.pending = append(g.pending, p)
}

// Node returns the node with the given ID.
func (g *CodeGraph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes, ordered by (file, line, id) for determinism.
func (g *CodeGraph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NodesInFile returns the IDs of nodes contributed by a file.
func (g *CodeGraph) NodesInFile(file string) []NodeID {
	ids := g.fileNodes[file]
	out := make([]NodeID, len(ids))
	copy(out, ids)
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *CodeGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of resolved edges in the graph.
func (g *CodeGraph) EdgeCount() int {
	total := 0
	for _, edges := range g.forward {
		total += len(edges)
	}
	return total
}

// Pending returns the unresolved pending edges.
func (g *CodeGraph) Pending() []PendingEdge {
	out := make([]PendingEdge, len(g.pending))
	copy(out, g.pending)
	return out
}

// Merge replaces any previously stored subgraph for fp.File with fp.
//
// Stale nodes and their edges are removed first. Edges from other files that
// pointed at a removed node are re-pended against the removed node's name,
// to be relinked (or left pending) by the next ResolvePending pass.
func (g *CodeGraph) Merge(fp *FileParse) error {
	g.removeFile(fp.File)

	for _, n := range fp.Nodes {
		g.AddNode(n)
	}
	for _, e := range fp.Edges {
		if err := g.AddEdge(e); err != nil {
			return fmt.Errorf("merge %s: %w", fp.File, err)
		}
	}
	g.pending = append(g.pending, fp.Pending...)
	return nil
}

// removeFile drops a file's nodes, their edges, and their pending entries.
func (g *CodeGraph) removeFile(file string) {
	ids := g.fileNodes[file]
	if len(ids) == 0 {
		return
	}

	removed := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	for _, id := range ids {
		// Drop outgoing edges and their reverse-index entries.
		for _, e := range g.forward[id] {
			g.reverse[e.To] = dropEdges(g.reverse[e.To], removed)
		}
		delete(g.forward, id)

		// Incoming edges from surviving nodes lose their target: re-pend
		// them against the removed node's name so resolution can relink
		// them to whatever replaces it.
		name := g.nodes[id].Name
		for _, e := range g.reverse[id] {
			if removed[e.From] {
				continue
			}
			g.forward[e.From] = dropEdges(g.forward[e.From], removed)
			g.pending = append(g.pending, PendingEdge{
				From:       e.From,
				Kind:       e.Kind,
				TargetName: name,
				Metadata:   e.Metadata,
			})
		}
		delete(g.reverse, id)
		delete(g.nodes, id)
	}

	// Pending edges originating in the removed file go with it.
	kept := g.pending[:0]
	for _, p := range g.pending {
		if !removed[p.From] {
			kept = append(kept, p)
		}
	}
	g.pending = kept

	delete(g.fileNodes, file)
}

func dropEdges(edges []Edge, removed map[NodeID]bool) []Edge {
	kept := edges[:0]
	for _, e := range edges {
		if !removed[e.From] && !removed[e.To] {
			kept = append(kept, e)
		}
	}
	return kept
}

// ResolvePending rewrites pending edges to concrete edges where a matching
// exported symbol exists anywhere in the graph. It runs once per analysis
// run, after all files have been merged.
//
// When several files export the same qualified name the candidates are
// ordered by (file, line, id) ascending and the first wins, so resolution is
// deterministic rather than map-iteration accidental. Edges that still
// cannot be resolved stay pending and are excluded from impact traversal.
//
// Returns the number of edges resolved in this pass.
func (g *CodeGraph) ResolvePending() int {
	index := g.exportIndex()

	resolved := 0
	remaining := g.pending[:0]
	for _, p := range g.pending {
		if _, ok := g.nodes[p.From]; !ok {
			continue // source vanished, drop silently
		}
		candidates := index[p.TargetName]
		if len(candidates) == 0 {
			remaining = append(remaining, p)
			continue
		}
		err := g.AddEdge(Edge{From: p.From, To: candidates[0], Kind: p.Kind, Metadata: p.Metadata})
		if err != nil {
			remaining = append(remaining, p)
			continue
		}
		resolved++
	}
	g.pending = remaining
	return resolved
}

// exportIndex maps exported qualified names to candidate node IDs in
// deterministic (file, line, id) order.
func (g *CodeGraph) exportIndex() map[string][]NodeID {
	index := make(map[string][]NodeID)
	for _, n := range g.Nodes() {
		if n.Exported {
			index[n.Name] = append(index[n.Name], n.ID)
		}
	}
	return index
}
