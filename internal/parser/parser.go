package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/revet-dev/revet/internal/graph"
)

// LanguageParser turns one file's source text into its local subgraph.
//
// Parsing depends only on the given bytes. No parser observes any other
// file's state, which is what makes the parallel parse phase safe.
// Cross-file references whose target symbol is not known at parse time are
// emitted as pending edges carrying the unresolved qualified name.
type LanguageParser interface {
	// Language returns the language name (e.g. "python").
	Language() string

	// Extensions returns the file extensions this parser handles,
	// with leading dots (e.g. [".py", ".pyi"]).
	Extensions() []string

	// Parse produces the file's nodes plus local and pending edges.
	Parse(source []byte, path string) (*graph.FileParse, error)
}

// ParseError reports a per-file parse failure. It is non-fatal to a run:
// the offending file is excluded from the graph and analysis continues.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d: %s", e.File, e.Line, e.Message)
}

// Dispatcher routes files to the matching language parser by extension.
type Dispatcher struct {
	parsers []LanguageParser
	byExt   map[string]LanguageParser
}

// NewDispatcher creates a dispatcher over the default parser set, one
// parser per supported language.
func NewDispatcher() (*Dispatcher, error) {
	parsers, err := DefaultParsers()
	if err != nil {
		return nil, err
	}
	return NewDispatcherWith(parsers), nil
}

// NewDispatcherWith creates a dispatcher over a custom parser set.
func NewDispatcherWith(parsers []LanguageParser) *Dispatcher {
	d := &Dispatcher{
		parsers: parsers,
		byExt:   make(map[string]LanguageParser),
	}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			d.byExt[ext] = p
		}
	}
	return d
}

// FindParser returns the parser for the file's extension, or nil for
// unsupported files. A miss is not an error, the caller skips the file.
func (d *Dispatcher) FindParser(path string) LanguageParser {
	ext := strings.ToLower(filepath.Ext(path))
	return d.byExt[ext]
}

// Parse parses one file with the matching parser. Unsupported files return
// (nil, nil) so callers can skip them without special-casing.
func (d *Dispatcher) Parse(source []byte, path string) (*graph.FileParse, error) {
	p := d.FindParser(path)
	if p == nil {
		return nil, nil
	}
	return p.Parse(source, path)
}

// Supports reports whether any parser handles the file's extension.
func (d *Dispatcher) Supports(path string) bool {
	return d.FindParser(path) != nil
}

// SupportedExtensions returns the union of all parsers' extensions.
func (d *Dispatcher) SupportedExtensions() []string {
	var out []string
	for _, p := range d.parsers {
		out = append(out, p.Extensions()...)
	}
	return out
}
