package validation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// Validator checks one aspect of a system map against the indexed
// codebase. The orchestrator builds a fresh validator set per document,
// so implementations never share mutable state across goroutines.
type Validator interface {
	// Name identifies the validator in logs and timing breakdowns.
	Name() string
	// Validate runs every check the validator owns for one document.
	Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult
}

// Options are the caller-supplied toggles and thresholds for a run.
type Options struct {
	// CheckHandlerFiles enables declared-handler existence checks.
	CheckHandlerFiles bool
	// ValidateSchemas enables request/response schema shape checks.
	ValidateSchemas bool
	// CheckOrphans enables implemented-but-undocumented endpoint detection.
	CheckOrphans bool
	// CheckDatabaseAccess enables persistence-pattern scanning for
	// mutating endpoints.
	CheckDatabaseAccess bool
	// UIRefreshThreshold is the minimum refresh-completeness score before
	// a component draws a warning.
	UIRefreshThreshold float64
	// EvidenceMaxAge is how old verified evidence may be before it is
	// downgraded to outdated.
	EvidenceMaxAge time.Duration
	// CacheLookahead is how many lines after a mutation are searched for
	// invalidation calls.
	CacheLookahead int
	// CacheExpectations maps endpoint prefixes to the cache keys a
	// mutation under that prefix must invalidate.
	CacheExpectations map[string][]string
}

// DefaultOptions returns the standard audit configuration.
func DefaultOptions() Options {
	return Options{
		CheckHandlerFiles:   true,
		ValidateSchemas:     true,
		CheckOrphans:        true,
		CheckDatabaseAccess: false,
		UIRefreshThreshold:  0.75,
		EvidenceMaxAge:      30 * 24 * time.Hour,
		CacheLookahead:      20,
		CacheExpectations:   DefaultCacheExpectations(),
	}
}

// documentFiles resolves every source file a document talks about:
// declared component paths present in the index plus unique candidate
// files for feature component names. Sorted and de-duplicated.
func documentFiles(actx *AuditContext, m *sysmap.SystemMap) []string {
	seen := make(map[string]bool)

	for _, name := range m.ComponentNames() {
		comp := m.Components[name]
		if comp.Path == "" {
			continue
		}
		fp := normalizeDocPath(comp.Path)
		if _, ok := actx.Codebase.Component(fp); ok {
			seen[fp] = true
		}
	}

	for _, feature := range m.Features() {
		for _, name := range feature.Components {
			candidates := actx.CandidateFiles(name)
			if len(candidates) == 1 {
				seen[candidates[0]] = true
			}
		}
	}

	files := make([]string, 0, len(seen))
	for fp := range seen {
		files = append(files, fp)
	}
	sort.Strings(files)
	return files
}

func normalizeDocPath(p string) string {
	p = strings.TrimSpace(p)
	return strings.TrimPrefix(p, "./")
}
