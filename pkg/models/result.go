package models

import "time"

// ValidationMetrics records how much work a validation run performed.
type ValidationMetrics struct {
	// ChecksPerformed counts individual checks executed across validators.
	ChecksPerformed int `json:"checksPerformed"`
	// ExecutionTime is the wall-clock duration of the run.
	ExecutionTime time.Duration `json:"executionTime"`
}

// ValidationResult is the outcome of validating one system map document.
// Passed is derived: true exactly when no issue has error severity.
type ValidationResult struct {
	// Passed is true when the issue list contains no errors.
	Passed bool `json:"passed"`
	// Issues lists every finding, ordered by severity then location.
	Issues []ValidationIssue `json:"issues"`
	// Metrics records check counts and timing for the document.
	Metrics ValidationMetrics `json:"metrics"`
}

// NewResult builds a result from issues, deriving Passed from severity.
func NewResult(issues []ValidationIssue, checks int, elapsed time.Duration) ValidationResult {
	return ValidationResult{
		Passed: !HasErrors(issues),
		Issues: issues,
		Metrics: ValidationMetrics{
			ChecksPerformed: checks,
			ExecutionTime:   elapsed,
		},
	}
}

// Merge folds another result into this one: issues are appended, metrics
// are summed, and Passed is recomputed over the combined issue list.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Issues = append(r.Issues, other.Issues...)
	r.Metrics.ChecksPerformed += other.Metrics.ChecksPerformed
	r.Metrics.ExecutionTime += other.Metrics.ExecutionTime
	r.Passed = !HasErrors(r.Issues)
}

// Errors returns the number of error-severity issues.
func (r ValidationResult) Errors() int {
	return CountBySeverity(r.Issues, SeverityError)
}

// Warnings returns the number of warning-severity issues.
func (r ValidationResult) Warnings() int {
	return CountBySeverity(r.Issues, SeverityWarning)
}

// Infos returns the number of info-severity issues.
func (r ValidationResult) Infos() int {
	return CountBySeverity(r.Issues, SeverityInfo)
}
