package graph

// EdgeKind classifies the relationship an edge represents.
type EdgeKind uint8

const (
	EdgeImports EdgeKind = iota
	EdgeCalls
	EdgeInherits
	EdgeImplements
	EdgeReturnsType
	EdgeAcceptsParam
	EdgeReadsConfig
	EdgeQueriesModel
	EdgeExposesEndpoint
	EdgeContains
	EdgeReferences
)

// String returns the string representation of an edge kind.
func (k EdgeKind) String() string {
	switch k {
	case EdgeImports:
		return "imports"
	case EdgeCalls:
		return "calls"
	case EdgeInherits:
		return "inherits"
	case EdgeImplements:
		return "implements"
	case EdgeReturnsType:
		return "returns_type"
	case EdgeAcceptsParam:
		return "accepts_param"
	case EdgeReadsConfig:
		return "reads_config"
	case EdgeQueriesModel:
		return "queries_model"
	case EdgeExposesEndpoint:
		return "exposes_endpoint"
	case EdgeContains:
		return "contains"
	case EdgeReferences:
		return "references"
	default:
		return "unknown"
	}
}

// ImpactKinds are the edge kinds traversed in reverse during impact analysis.
var ImpactKinds = []EdgeKind{
	EdgeCalls,
	EdgeImports,
	EdgeInherits,
	EdgeReadsConfig,
	EdgeQueriesModel,
}

// EdgeMetadata carries kind-specific detail. Only the fields relevant to the
// edge's kind are populated; ParamIndex is -1 when absent.
type EdgeMetadata struct {
	CallLine   int    `json:"call_line,omitempty"`
	IsDirect   bool   `json:"is_direct,omitempty"`
	Alias      string `json:"alias,omitempty"`
	IsWildcard bool   `json:"is_wildcard,omitempty"`
	ParamIndex int    `json:"param_index,omitempty"`
}

// CallMeta builds metadata for a Calls edge.
func CallMeta(line int, direct bool) *EdgeMetadata {
	return &EdgeMetadata{CallLine: line, IsDirect: direct, ParamIndex: -1}
}

// ImportMeta builds metadata for an Imports edge.
func ImportMeta(alias string, wildcard bool) *EdgeMetadata {
	return &EdgeMetadata{Alias: alias, IsWildcard: wildcard, ParamIndex: -1}
}

// ParamMeta builds metadata for an AcceptsParam edge.
func ParamMeta(index int) *EdgeMetadata {
	return &EdgeMetadata{ParamIndex: index}
}

// Edge is a directed relationship between two resolved nodes.
type Edge struct {
	From     NodeID        `json:"from"`
	To       NodeID        `json:"to"`
	Kind     EdgeKind      `json:"kind"`
	Metadata *EdgeMetadata `json:"metadata,omitempty"`
}

// PendingEdge is an edge whose target symbol was not known at parse time.
// It points at a qualified name instead of a NodeID and is held in the
// graph's pending table until ResolvePending rewrites it to a concrete edge.
// Pending edges are never traversed by impact analysis.
type PendingEdge struct {
	From       NodeID        `json:"from"`
	Kind       EdgeKind      `json:"kind"`
	TargetName string        `json:"target_name"`
	Metadata   *EdgeMetadata `json:"metadata,omitempty"`
}

// FileParse is the per-file parse output: the subgraph a single file
// contributes before cross-file resolution. It is also the unit stored by
// the cache, which is why it must never contain resolved cross-file edges.
type FileParse struct {
	File    string        `json:"file"`
	Nodes   []Node        `json:"nodes"`
	Edges   []Edge        `json:"edges"`
	Pending []PendingEdge `json:"pending"`
}
