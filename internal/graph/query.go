package graph

// kindSet builds a membership set from a kind filter; nil means "all kinds".
func kindSet(kinds []EdgeKind) map[EdgeKind]bool {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

func filterEdges(edges []Edge, set map[EdgeKind]bool) []Edge {
	if set == nil {
		out := make([]Edge, len(edges))
		copy(out, edges)
		return out
	}
	var out []Edge
	for _, e := range edges {
		if set[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns the outgoing edges of a node, optionally restricted to
// the given kinds ("what does X depend on").
func (g *CodeGraph) EdgesFrom(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.forward[id], kindSet(kinds))
}

// EdgesTo returns the incoming edges of a node, optionally restricted to
// the given kinds ("what depends on X").
func (g *CodeGraph) EdgesTo(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.reverse[id], kindSet(kinds))
}

// TransitiveDependents walks reverse edges breadth-first from a node and
// returns every node reachable that way, restricted to the given edge kinds.
//
// The graph is not assumed acyclic: a visited set guarantees termination and
// keeps each dependent counted once no matter how many paths reach it. The
// start node is pre-visited, so self-loops never contribute to a node's own
// dependent set. maxDepth caps traversal cost on high fan-in nodes; a value
// of 0 means unbounded.
func (g *CodeGraph) TransitiveDependents(id NodeID, maxDepth int, kinds ...EdgeKind) []NodeID {
	set := kindSet(kinds)

	type item struct {
		id    NodeID
		depth int
	}

	visited := map[NodeID]bool{id: true}
	queue := []item{{id: id}}
	var result []NodeID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}

		for _, e := range g.reverse[cur.id] {
			if set != nil && !set[e.Kind] {
				continue
			}
			if visited[e.From] {
				continue
			}
			visited[e.From] = true
			result = append(result, e.From)
			queue = append(queue, item{id: e.From, depth: cur.depth + 1})
		}
	}

	return result
}

// TransitiveDependencies is the forward counterpart of TransitiveDependents.
func (g *CodeGraph) TransitiveDependencies(id NodeID, maxDepth int, kinds ...EdgeKind) []NodeID {
	set := kindSet(kinds)

	type item struct {
		id    NodeID
		depth int
	}

	visited := map[NodeID]bool{id: true}
	queue := []item{{id: id}}
	var result []NodeID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}

		for _, e := range g.forward[cur.id] {
			if set != nil && !set[e.Kind] {
				continue
			}
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			result = append(result, e.To)
			queue = append(queue, item{id: e.To, depth: cur.depth + 1})
		}
	}

	return result
}
