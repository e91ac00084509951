package graph

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// NodeID is a stable identifier for a node, derived deterministically from
// the defining file, entity kind, and qualified name. Two parses of the same
// content produce the same NodeID, which is what makes snapshot diffing by
// identity possible.
type NodeID uint64

// MakeNodeID derives the NodeID for a (file, kind, qualified-name) triple.
func MakeNodeID(file string, kind NodeKind, name string) NodeID {
	h := xxhash.New()
	_, _ = h.WriteString(file)
	_, _ = h.Write([]byte{0, byte(kind), 0})
	_, _ = h.WriteString(name)
	return NodeID(h.Sum64())
}

// NodeKind classifies the code entity a node represents.
type NodeKind uint8

const (
	NodeFile NodeKind = iota
	NodeModule
	NodeFunction
	NodeClass
	NodeInterface
	NodeType
	NodeVariable
	NodeImport
	NodeEndpoint
	NodeModel
	NodeConfigRef
)

// String returns the string representation of a node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "file"
	case NodeModule:
		return "module"
	case NodeFunction:
		return "function"
	case NodeClass:
		return "class"
	case NodeInterface:
		return "interface"
	case NodeType:
		return "type"
	case NodeVariable:
		return "variable"
	case NodeImport:
		return "import"
	case NodeEndpoint:
		return "endpoint"
	case NodeModel:
		return "model"
	case NodeConfigRef:
		return "config_ref"
	default:
		return "unknown"
	}
}

// Node represents one parsed code entity.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name"` // qualified name
	File     string   `json:"file"`
	Line     int      `json:"line"`
	EndLine  int      `json:"end_line"`
	Language string   `json:"language"`

	// ContentHash fingerprints the entity's source slice so diffing can
	// distinguish Modified (same ID, new hash) from untouched nodes and
	// detect best-effort renames (same hash, new name).
	ContentHash uint64 `json:"content_hash"`

	// Exported marks symbols visible to other files; only exported symbols
	// participate in pending-reference resolution.
	Exported bool `json:"exported"`
}

// NewNode builds a Node with its derived ID.
func NewNode(kind NodeKind, name, file string, line, endLine int, language string) Node {
	return Node{
		ID:       MakeNodeID(file, kind, name),
		Kind:     kind,
		Name:     name,
		File:     file,
		Line:     line,
		EndLine:  endLine,
		Language: language,
	}
}

func (n Node) String() string {
	return fmt.Sprintf("%s %s (%s:%d)", n.Kind, n.Name, n.File, n.Line)
}
