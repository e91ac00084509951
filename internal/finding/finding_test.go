package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExceedsThresholdTable(t *testing.T) {
	cases := []struct {
		name    string
		summary ReviewSummary
		failOn  string
		want    bool
	}{
		{"error fails on errors", ReviewSummary{Errors: 3}, "error", true},
		{"error passes on warnings only", ReviewSummary{Warnings: 5, Info: 3}, "error", false},
		{"warning fails on warnings", ReviewSummary{Warnings: 2}, "warning", true},
		{"warning fails on errors", ReviewSummary{Errors: 1}, "warning", true},
		{"warning passes on info only", ReviewSummary{Info: 1}, "warning", false},
		{"info fails on any finding", ReviewSummary{Info: 1}, "info", true},
		{"info passes when clean", ReviewSummary{}, "info", false},
		{"never always passes", ReviewSummary{Errors: 10, Warnings: 20, Info: 30}, "never", false},
		{"unknown value behaves as error", ReviewSummary{Errors: 1}, "bogus", true},
		{"unknown value ignores warnings", ReviewSummary{Warnings: 4}, "bogus", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.summary.ExceedsThreshold(tc.failOn))
		})
	}
}

func TestSummarize(t *testing.T) {
	findings := []Finding{
		{ID: "IMPACT-1", Severity: SeverityError},
		{ID: "IMPACT-2", Severity: SeverityWarning},
		{ID: "IMPACT-3", Severity: SeverityWarning},
		{ID: "IMPACT-4", Severity: SeverityInfo},
	}
	s := Summarize(findings, 12, 340, 1)

	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 2, s.Warnings)
	assert.Equal(t, 1, s.Info)
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, 12, s.FilesAnalyzed)
	assert.Equal(t, 340, s.NodesParsed)
	assert.Equal(t, 1, s.FilesSkipped)
}
