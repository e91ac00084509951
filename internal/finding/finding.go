package finding

// Severity level of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// FixKind says how a finding's fix can be applied.
type FixKind string

const (
	// FixCommentOut comments the offending line out.
	FixCommentOut FixKind = "comment_out"
	// FixReplacePattern rewrites the line by pattern substitution.
	FixReplacePattern FixKind = "replace_pattern"
	// FixSuggestion is advisory only and never applied automatically.
	FixSuggestion FixKind = "suggestion"
)

// Fix describes an automatable remediation for a finding.
type Fix struct {
	Kind        FixKind `json:"kind"`
	Pattern     string  `json:"pattern,omitempty"`
	Replacement string  `json:"replacement,omitempty"`
}

// Finding is one reviewable result, the bridge between analysis and output.
type Finding struct {
	// ID is a stable identifier, e.g. "IMPACT-9fQ3xA".
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Line     int      `json:"line"`

	// AffectedDependents counts downstream nodes affected by the change
	// behind this finding, union-deduplicated across related changes.
	AffectedDependents int `json:"affected_dependents"`

	Suggestion string `json:"suggestion,omitempty"`
	Fix        *Fix   `json:"fix,omitempty"`
}

// ReviewSummary aggregates an entire run.
type ReviewSummary struct {
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Info          int `json:"info"`
	FilesAnalyzed int `json:"files_analyzed"`
	NodesParsed   int `json:"nodes_parsed"`
	FilesSkipped  int `json:"files_skipped"`
}

// Summarize tallies findings into a summary.
func Summarize(findings []Finding, filesAnalyzed, nodesParsed, filesSkipped int) ReviewSummary {
	s := ReviewSummary{
		FilesAnalyzed: filesAnalyzed,
		NodesParsed:   nodesParsed,
		FilesSkipped:  filesSkipped,
	}
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}

// Total returns the number of findings of any severity.
func (s ReviewSummary) Total() int {
	return s.Errors + s.Warnings + s.Info
}

// ExceedsThreshold decides whether the run fails for the given fail_on
// setting. An unrecognized value is treated as "error", the strict-but-sane
// default for CI.
func (s ReviewSummary) ExceedsThreshold(failOn string) bool {
	switch failOn {
	case "never":
		return false
	case "info":
		return s.Total() > 0
	case "warning":
		return s.Errors > 0 || s.Warnings > 0
	default: // "error" and anything unrecognized
		return s.Errors > 0
	}
}
