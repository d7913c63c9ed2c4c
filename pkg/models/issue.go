// Package models defines the shared data model for audit results:
// issues, validation results, cache invalidation chains, and integration
// evidence. These types are produced by the validators and consumed by the
// reporting and TUI layers.
package models

import "sort"

// Severity classifies how strongly an issue should affect the audit outcome.
type Severity string

const (
	// SeverityError marks a declared architectural fact that is provably
	// false or absent. Errors fail the audit.
	SeverityError Severity = "error"
	// SeverityWarning marks heuristic evidence of likely drift. Warnings
	// never fail the audit by themselves.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks an observation (orphaned endpoint, undeclared
	// dependency). Info issues never affect pass/fail.
	SeverityInfo Severity = "info"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Rank returns the display ordering for a severity: errors first, then
// warnings, then info. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// IssueType identifies the kind of drift an issue reports.
type IssueType string

const (
	IssueMissingComponent           IssueType = "missing-component"
	IssueAPIMismatch                IssueType = "api-mismatch"
	IssueCacheInvalidationMissing   IssueType = "cache-invalidation-missing"
	IssueCacheKeyInconsistency      IssueType = "cache-key-inconsistency"
	IssueFlowInconsistency          IssueType = "flow-inconsistency"
	IssueUIRefreshMissing           IssueType = "ui-refresh-missing"
	IssueIntegrationEvidenceMissing IssueType = "integration-evidence-missing"
	IssueBrokenFeatureStatus        IssueType = "broken-feature-status"
	IssueMissingComponentDefinition IssueType = "missing-component-definition"
	IssueHandlerFileMismatch        IssueType = "handler-file-mismatch"
	IssueCrossReferenceError        IssueType = "cross-reference-error"
	IssueIntegrationPointError      IssueType = "integration-point-error"
)

// ValidationIssue is a single finding produced by a validator.
type ValidationIssue struct {
	// Type is the kind of drift this issue reports.
	Type IssueType `json:"type"`
	// Severity drives propagation: only errors fail the audit.
	Severity Severity `json:"severity"`
	// Message is the human-readable description of the finding.
	Message string `json:"message"`
	// Location names the map entry or file the finding refers to.
	Location string `json:"location"`
	// Suggestion is an optional remediation hint (e.g. a corrected path).
	Suggestion string `json:"suggestion,omitempty"`
	// Metadata carries structured details such as known issues or scores.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HasErrors returns true if any issue in the slice has error severity.
func HasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of issues with the given severity.
func CountBySeverity(issues []ValidationIssue, sev Severity) int {
	count := 0
	for _, issue := range issues {
		if issue.Severity == sev {
			count++
		}
	}
	return count
}

// SortIssues orders issues by severity, then type, then location, then
// message. Every run over identical inputs produces identical ordering.
func SortIssues(issues []ValidationIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.Message < b.Message
	})
}
