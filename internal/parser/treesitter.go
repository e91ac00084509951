package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/revet-dev/revet/internal/graph"
)

// languageSpec configures one language for the generic tree-sitter parser:
// a grammar, an S-expression query naming the captures the extractor
// understands, and an export rule.
//
// Capture name convention shared by all language queries:
//
//	function, method, class, struct, interface, enum, type, variable
//	    declaration span captures, each paired with "<kind>.name"
//	import        import statement span, paired with "import.path"
//	call          call expression span, paired with "call.name"
//	inherit.name  a base type identifier inside a class match
type languageSpec struct {
	name       string
	extensions []string
	language   *tree_sitter.Language
	query      string

	// exported decides whether a symbol name is visible to other files.
	// nil means every symbol is exported.
	exported func(name string) bool
}

// captureKinds maps declaration capture names to graph node kinds.
var captureKinds = map[string]graph.NodeKind{
	"function":  graph.NodeFunction,
	"method":    graph.NodeFunction,
	"class":     graph.NodeClass,
	"struct":    graph.NodeClass,
	"interface": graph.NodeInterface,
	"enum":      graph.NodeType,
	"type":      graph.NodeType,
	"variable":  graph.NodeVariable,
}

// TreeSitterParser is a query-driven LanguageParser. One instance serves a
// single language; the underlying tree-sitter parsers are pooled because
// they are not safe for concurrent use, while the compiled query is
// read-only and shared.
type TreeSitterParser struct {
	spec  languageSpec
	query *tree_sitter.Query
	pool  sync.Pool
}

func newTreeSitterParser(spec languageSpec) (*TreeSitterParser, error) {
	query, qerr := tree_sitter.NewQuery(spec.language, spec.query)
	if qerr != nil {
		return nil, fmt.Errorf("%s: compiling extraction query: %w", spec.name, qerr)
	}
	if query == nil {
		return nil, fmt.Errorf("%s: extraction query compiled to nil", spec.name)
	}
	p := &TreeSitterParser{spec: spec, query: query}
	p.pool = sync.Pool{New: func() any {
		ps := tree_sitter.NewParser()
		if err := ps.SetLanguage(spec.language); err != nil {
			return nil
		}
		return ps
	}}
	return p, nil
}

func (p *TreeSitterParser) Language() string     { return p.spec.name }
func (p *TreeSitterParser) Extensions() []string { return p.spec.extensions }

// Parse extracts the file's subgraph. A file whose syntax tree contains
// errors is rejected with a ParseError so a half-parsed subgraph never
// enters the code graph.
func (p *TreeSitterParser) Parse(source []byte, path string) (*graph.FileParse, error) {
	ps, _ := p.pool.Get().(*tree_sitter.Parser)
	if ps == nil {
		return nil, &ParseError{File: path, Line: 1, Message: "grammar failed to load"}
	}
	defer p.pool.Put(ps)

	tree := ps.Parse(source, nil)
	if tree == nil {
		return nil, &ParseError{File: path, Line: 1, Message: "tree-sitter returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &ParseError{
			File:    path,
			Line:    firstErrorLine(root),
			Message: "syntax error",
		}
	}

	ex := newExtraction(p.spec, source, path)
	ex.run(p.query, root)
	return ex.finish(), nil
}

// extraction accumulates one file's parse output while walking query matches.
type extraction struct {
	spec   languageSpec
	source []byte
	path   string

	module  graph.Node
	nodes   []graph.Node
	seen    map[graph.NodeID]bool
	spans   map[uint]graph.NodeID
	edges   []graph.Edge
	pending []graph.PendingEdge

	calls    []callSite
	inherits []inheritSite
}

type callSite struct {
	name string
	line int
}

type inheritSite struct {
	from graph.NodeID
	name string
}

func newExtraction(spec languageSpec, source []byte, path string) *extraction {
	module := graph.NewNode(graph.NodeModule, moduleName(path), path, 1,
		bytes.Count(source, []byte("\n"))+1, spec.name)
	module.ContentHash = xxhash.Sum64(source)
	module.Exported = true

	ex := &extraction{
		spec:   spec,
		source: source,
		path:   path,
		module: module,
		seen:   map[graph.NodeID]bool{module.ID: true},
		spans:  make(map[uint]graph.NodeID),
	}
	ex.nodes = append(ex.nodes, module)
	return ex
}

func (ex *extraction) run(query *tree_sitter.Query, root *tree_sitter.Node) {
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	names := query.CaptureNames()
	matches := qc.Matches(query, root, ex.source)
	for {
		m := matches.Next()
		if m == nil {
			break
		}

		spans := make(map[string]*tree_sitter.Node, len(m.Captures))
		var inheritNames []string
		for i := range m.Captures {
			c := &m.Captures[i]
			name := names[c.Index]
			if name == "inherit.name" {
				inheritNames = append(inheritNames, c.Node.Utf8Text(ex.source))
				continue
			}
			if _, dup := spans[name]; !dup {
				spans[name] = &c.Node
			}
		}

		switch {
		case spans["import"] != nil:
			ex.addImport(spans["import"], spans["import.path"])
		case spans["call"] != nil:
			ex.addCall(spans["call"], spans["call.name"])
		default:
			ex.addDeclaration(spans, inheritNames)
		}
	}
}

func (ex *extraction) addDeclaration(spans map[string]*tree_sitter.Node, inheritNames []string) {
	for capture, kind := range captureKinds {
		nameNode := spans[capture+".name"]
		if nameNode == nil {
			continue
		}
		span := spans[capture]
		if span == nil {
			span = nameNode
		}

		// Query patterns may overlap (e.g. a class pattern with and without
		// an inheritance clause). The first match for a span builds the node;
		// later matches only contribute their inheritance captures.
		if id, dup := ex.spans[span.StartByte()]; dup {
			for _, base := range inheritNames {
				ex.inherits = append(ex.inherits, inheritSite{from: id, name: base})
			}
			return
		}

		name := nameNode.Utf8Text(ex.source)
		if capture == "method" || capture == "function" {
			if owner := enclosingTypeName(span, ex.source); owner != "" {
				name = owner + "." + name
			}
		}

		node := graph.NewNode(kind, name, ex.path,
			int(span.StartPosition().Row)+1, int(span.EndPosition().Row)+1, ex.spec.name)
		node.ContentHash = xxhash.Sum64(ex.source[span.StartByte():span.EndByte()])
		node.Exported = ex.isExported(name)
		ex.spans[span.StartByte()] = node.ID
		ex.addNode(node)

		for _, base := range inheritNames {
			ex.inherits = append(ex.inherits, inheritSite{from: node.ID, name: base})
		}
		return
	}
}

func (ex *extraction) addImport(span, pathNode *tree_sitter.Node) {
	if pathNode == nil {
		return
	}
	spec := strings.Trim(pathNode.Utf8Text(ex.source), "\"'`<>")
	if spec == "" {
		return
	}

	node := graph.NewNode(graph.NodeImport, spec, ex.path,
		int(span.StartPosition().Row)+1, int(span.EndPosition().Row)+1, ex.spec.name)
	node.ContentHash = xxhash.Sum64(ex.source[span.StartByte():span.EndByte()])
	ex.addNode(node)

	ex.pending = append(ex.pending, graph.PendingEdge{
		From:       ex.module.ID,
		Kind:       graph.EdgeImports,
		TargetName: importTarget(spec),
		Metadata:   graph.ImportMeta("", strings.HasSuffix(spec, "*")),
	})
}

func (ex *extraction) addCall(span, nameNode *tree_sitter.Node) {
	if nameNode == nil {
		return
	}
	ex.calls = append(ex.calls, callSite{
		name: nameNode.Utf8Text(ex.source),
		line: int(span.StartPosition().Row) + 1,
	})
}

func (ex *extraction) addNode(n graph.Node) {
	if ex.seen[n.ID] {
		return
	}
	ex.seen[n.ID] = true
	ex.nodes = append(ex.nodes, n)
	ex.edges = append(ex.edges, graph.Edge{From: ex.module.ID, To: n.ID, Kind: graph.EdgeContains})
}

// finish links call and inheritance sites now that every declaration in the
// file is known, preferring same-file targets over pending cross-file ones.
func (ex *extraction) finish() *graph.FileParse {
	local := ex.localIndex()

	type pendingKey struct {
		from graph.NodeID
		kind graph.EdgeKind
		name string
	}
	dedup := make(map[pendingKey]bool)

	sort.Slice(ex.calls, func(i, j int) bool { return ex.calls[i].line < ex.calls[j].line })
	for _, c := range ex.calls {
		from := ex.enclosingSymbol(c.line)
		if target, ok := local[c.name]; ok {
			ex.edges = append(ex.edges, graph.Edge{
				From: from, To: target, Kind: graph.EdgeCalls,
				Metadata: graph.CallMeta(c.line, true),
			})
			continue
		}
		key := pendingKey{from: from, kind: graph.EdgeCalls, name: c.name}
		if dedup[key] {
			continue
		}
		dedup[key] = true
		ex.pending = append(ex.pending, graph.PendingEdge{
			From: from, Kind: graph.EdgeCalls, TargetName: c.name,
			Metadata: graph.CallMeta(c.line, true),
		})
	}

	for _, in := range ex.inherits {
		key := pendingKey{from: in.from, kind: graph.EdgeInherits, name: in.name}
		if dedup[key] {
			continue
		}
		dedup[key] = true
		if target, ok := local[in.name]; ok {
			if target != in.from {
				ex.edges = append(ex.edges, graph.Edge{From: in.from, To: target, Kind: graph.EdgeInherits})
			}
			continue
		}
		ex.pending = append(ex.pending, graph.PendingEdge{
			From: in.from, Kind: graph.EdgeInherits, TargetName: in.name,
		})
	}

	return &graph.FileParse{
		File:    ex.path,
		Nodes:   ex.nodes,
		Edges:   ex.edges,
		Pending: ex.pending,
	}
}

// localIndex maps every declared name, plus its unqualified last component,
// to the first node that declared it.
func (ex *extraction) localIndex() map[string]graph.NodeID {
	index := make(map[string]graph.NodeID)
	for _, n := range ex.nodes[1:] { // skip the module node
		if n.Kind == graph.NodeImport {
			continue
		}
		if _, ok := index[n.Name]; !ok {
			index[n.Name] = n.ID
		}
		if i := strings.LastIndex(n.Name, "."); i >= 0 {
			short := n.Name[i+1:]
			if _, ok := index[short]; !ok {
				index[short] = n.ID
			}
		}
	}
	return index
}

// enclosingSymbol finds the innermost declaration whose line span contains
// the given line, falling back to the module node.
func (ex *extraction) enclosingSymbol(line int) graph.NodeID {
	best := ex.module.ID
	bestSpan := ex.module.EndLine - ex.module.Line
	for _, n := range ex.nodes[1:] {
		if n.Kind == graph.NodeImport {
			continue
		}
		if line < n.Line || line > n.EndLine {
			continue
		}
		if span := n.EndLine - n.Line; span <= bestSpan {
			best = n.ID
			bestSpan = span
		}
	}
	return best
}

func (ex *extraction) isExported(name string) bool {
	if ex.spec.exported == nil {
		return true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return ex.spec.exported(name)
}

// moduleName derives a module's qualified name from its file path: the base
// name without extension, matching how import specifiers name modules.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sourceExtensions are the extensions stripped from import specifiers that
// name files directly (includes, relative JS imports).
var sourceExtensions = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cs": true, ".cxx": true,
	".go": true, ".h": true, ".hpp": true, ".java": true, ".js": true,
	".jsx": true, ".mjs": true, ".php": true, ".py": true, ".rs": true,
	".ts": true, ".tsx": true, ".zig": true,
}

// importTarget reduces an import specifier to the module name it should
// resolve against: the last path segment, without quotes or extension.
// Resolution is best-effort; specifiers that name external packages simply
// stay pending.
func importTarget(spec string) string {
	spec = strings.TrimSuffix(spec, ";")
	spec = strings.ReplaceAll(spec, "\\", "/")
	if ext := filepath.Ext(spec); sourceExtensions[strings.ToLower(ext)] {
		spec = strings.TrimSuffix(spec, ext)
	}
	if strings.ContainsRune(spec, '/') {
		spec = strings.Trim(spec, "/")
		if i := strings.LastIndex(spec, "/"); i >= 0 {
			spec = spec[i+1:]
		}
		return spec
	}
	spec = strings.ReplaceAll(spec, "::", ".")
	if i := strings.LastIndex(spec, "."); i >= 0 {
		spec = spec[i+1:]
	}
	return spec
}

// enclosingTypeName walks up from a method declaration to the type that owns
// it, so methods get qualified names like "Service.run".
func enclosingTypeName(n *tree_sitter.Node, source []byte) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		kind := cur.Kind()
		owns := strings.Contains(kind, "class") ||
			strings.Contains(kind, "struct") ||
			strings.Contains(kind, "interface") ||
			strings.Contains(kind, "trait") ||
			strings.Contains(kind, "enum") ||
			kind == "impl_item"
		if !owns {
			continue
		}
		if nameNode := cur.ChildByFieldName("name"); nameNode != nil {
			return nameNode.Utf8Text(source)
		}
		if typeNode := cur.ChildByFieldName("type"); typeNode != nil {
			return typeNode.Utf8Text(source)
		}
	}
	return ""
}

// firstErrorLine locates the first syntax error in a tree for diagnostics.
func firstErrorLine(n *tree_sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPosition().Row) + 1
}
