package diff

import (
	"sort"

	"github.com/revet-dev/revet/internal/graph"
)

// ChangeKind says how a node differs between two snapshots.
type ChangeKind uint8

const (
	// Added: the node exists only in the after-snapshot.
	Added ChangeKind = iota
	// Removed: the node exists only in the before-snapshot.
	Removed
	// Modified: same identity, different content hash.
	Modified
	// Renamed: best-effort pairing of a removed and an added node with the
	// same file, kind, and content hash but a different name.
	Renamed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Classification grades how risky a change is for its dependents.
type Classification uint8

const (
	// Safe: a new addition or a change to something without a contract.
	Safe Classification = iota
	// PotentiallyBreaking: behavior may have changed for callers.
	PotentiallyBreaking
	// Breaking: a contract dependents rely on changed shape.
	Breaking
)

func (c Classification) String() string {
	switch c {
	case Safe:
		return "safe"
	case PotentiallyBreaking:
		return "potentially_breaking"
	case Breaking:
		return "breaking"
	default:
		return "unknown"
	}
}

// SnapshotEntry is the identity-and-content record kept per node; two
// snapshots are compared entry by entry, never by graph structure.
type SnapshotEntry struct {
	ID          graph.NodeID
	Kind        graph.NodeKind
	Name        string
	File        string
	Line        int
	ContentHash uint64
}

// Snapshot is a point-in-time view of a graph's node identities.
type Snapshot map[graph.NodeID]SnapshotEntry

// Capture snapshots a graph's nodes.
func Capture(g *graph.CodeGraph) Snapshot {
	nodes := g.Nodes()
	s := make(Snapshot, len(nodes))
	for _, n := range nodes {
		s[n.ID] = SnapshotEntry{
			ID:          n.ID,
			Kind:        n.Kind,
			Name:        n.Name,
			File:        n.File,
			Line:        n.Line,
			ContentHash: n.ContentHash,
		}
	}
	return s
}

// Change is one classified difference between two snapshots. For Renamed
// changes Node is the after-entry and OldName holds the before-name.
type Change struct {
	Kind    ChangeKind
	Node    SnapshotEntry
	OldName string
}

// Classify compares two snapshots and returns the changes in deterministic
// (file, line, id) order.
func Classify(before, after Snapshot) []Change {
	var removed, added []SnapshotEntry
	var changes []Change

	for id, b := range before {
		a, ok := after[id]
		if !ok {
			removed = append(removed, b)
			continue
		}
		if a.ContentHash != b.ContentHash {
			changes = append(changes, Change{Kind: Modified, Node: a})
		}
	}
	for id, a := range after {
		if _, ok := before[id]; !ok {
			added = append(added, a)
		}
	}

	sortEntries(removed)
	sortEntries(added)

	// Rename detection pairs a removed and an added entry that carry the
	// same content in the same file under a new name. Pairing is greedy in
	// sorted order so it is deterministic.
	type renameKey struct {
		file string
		kind graph.NodeKind
		hash uint64
	}
	pool := make(map[renameKey][]SnapshotEntry)
	for _, r := range removed {
		k := renameKey{file: r.File, kind: r.Kind, hash: r.ContentHash}
		pool[k] = append(pool[k], r)
	}

	matched := make(map[graph.NodeID]bool)
	for _, a := range added {
		k := renameKey{file: a.File, kind: a.Kind, hash: a.ContentHash}
		candidates := pool[k]
		if len(candidates) == 0 || a.ContentHash == 0 {
			changes = append(changes, Change{Kind: Added, Node: a})
			continue
		}
		old := candidates[0]
		pool[k] = candidates[1:]
		matched[old.ID] = true
		changes = append(changes, Change{Kind: Renamed, Node: a, OldName: old.Name})
	}
	for _, r := range removed {
		if !matched[r.ID] {
			changes = append(changes, Change{Kind: Removed, Node: r})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i].Node, changes[j].Node
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.ID < b.ID
	})
	return changes
}

// Classify grades the change by the node's kind: function behavior may have
// changed for callers, while type-shaped entities are contracts. Additions
// are always safe.
func (c Change) Classify() Classification {
	if c.Kind == Added {
		return Safe
	}
	switch c.Node.Kind {
	case graph.NodeFunction:
		return PotentiallyBreaking
	case graph.NodeClass, graph.NodeInterface, graph.NodeType:
		return Breaking
	case graph.NodeEndpoint, graph.NodeModel:
		return Breaking
	default:
		return Safe
	}
}

func sortEntries(entries []SnapshotEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		if entries[i].Line != entries[j].Line {
			return entries[i].Line < entries[j].Line
		}
		return entries[i].ID < entries[j].ID
	})
}
