package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// Indicator patterns are matched case-insensitively against file content.
var (
	loadingPatterns = []string{"isloading", "ispending", "isfetching", "skeleton", "spinner", "loading"}
	errorPatterns   = []string{"iserror", "onerror", "errorboundary", "error"}
	triggerPatterns = []string{"invalidatequeries", "refetch", "setquerydata"}
)

// optimisticPatterns mark a mutation that updates the cache directly
// instead of invalidating.
var optimisticPatterns = []string{"setQueryData", "onMutate"}

// UIRefreshValidator scores how completely query-holding components
// handle refresh: loading state, error state, and a refresh trigger.
// It also flags mutations that neither invalidate nor update the cache
// optimistically.
type UIRefreshValidator struct {
	actx *AuditContext
	opts Options
}

// NewUIRefreshValidator creates a UI refresh validator for one audit run.
func NewUIRefreshValidator(actx *AuditContext, opts Options) *UIRefreshValidator {
	return &UIRefreshValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *UIRefreshValidator) Name() string { return "ui-refresh" }

// Validate scores every query-holding file the document references and
// checks each mutation block for a cache update path.
func (v *UIRefreshValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	var issues []models.ValidationIssue
	checks := 0

	for _, fp := range documentFiles(v.actx, m) {
		if ctx.Err() != nil {
			break
		}
		data, err := v.actx.ReadFile(fp)
		if err != nil {
			continue
		}
		content := string(data)
		checks++

		if holdsQueries(content) {
			issues = append(issues, v.scoreRefresh(fp, content)...)
		}
		issues = append(issues, v.checkMutationUpdates(fp, content)...)
	}

	return models.NewResult(issues, checks, 0)
}

// scoreRefresh computes the weighted completeness score for one file:
// 0.4 for holding queries at all, plus 0.2 each for loading state, error
// state, and a refresh trigger, capped at 1.0.
func (v *UIRefreshValidator) scoreRefresh(fp, content string) []models.ValidationIssue {
	lower := strings.ToLower(content)
	hasLoading := containsAny(lower, loadingPatterns)
	hasError := containsAny(lower, errorPatterns)
	hasTrigger := containsAny(lower, triggerPatterns)

	score := 0.4
	if hasLoading {
		score += 0.2
	}
	if hasError {
		score += 0.2
	}
	if hasTrigger {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}

	if score >= v.opts.UIRefreshThreshold {
		return nil
	}

	var missing []string
	if !hasLoading {
		missing = append(missing, "loading state")
	}
	if !hasError {
		missing = append(missing, "error state")
	}
	if !hasTrigger {
		missing = append(missing, "refresh trigger")
	}

	return []models.ValidationIssue{{
		Type:     models.IssueUIRefreshMissing,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("%s holds queries but scores %.2f on refresh completeness (missing: %s)",
			fp, score, strings.Join(missing, ", ")),
		Location:   fp,
		Suggestion: fmt.Sprintf("add %s to the component", strings.Join(missing, " and ")),
		Metadata: map[string]interface{}{
			"score":          score,
			"loadingState":   hasLoading,
			"errorState":     hasError,
			"refreshTrigger": hasTrigger,
		},
	}}
}

// checkMutationUpdates warns for each mutation block with neither an
// invalidation nor an optimistic update inside its lookahead window.
func (v *UIRefreshValidator) checkMutationUpdates(fp, content string) []models.ValidationIssue {
	var issues []models.ValidationIssue

	for _, block := range mutationBlocks(content) {
		window := content[block.start:lookaheadEnd(content, block, v.opts.CacheLookahead)]
		if strings.Contains(window, "invalidateQueries") {
			continue
		}
		if containsAny(window, optimisticPatterns) {
			continue
		}
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueUIRefreshMissing,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("mutation in %s may not properly update UI consistency: no invalidation or optimistic update within %d lines",
				fp, v.opts.CacheLookahead),
			Location:   fp,
			Suggestion: "invalidate the affected queries in onSuccess or apply an optimistic update in onMutate",
		})
	}
	return issues
}

// holdsQueries reports whether a file reads from the query cache.
func holdsQueries(content string) bool {
	return strings.Contains(content, "useQuery") ||
		strings.Contains(content, "useInfiniteQuery") ||
		strings.Contains(content, "queryKey")
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
