package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// SemanticCacheValidator checks cache-key hygiene across the document's
// files: the same logical key spelled differently, keys read but never
// invalidated, and invalidations nothing reads. All findings are
// warnings or infos; key hygiene alone never fails an audit.
type SemanticCacheValidator struct {
	actx *AuditContext
	opts Options
}

// NewSemanticCacheValidator creates a key-consistency validator for one
// audit run.
func NewSemanticCacheValidator(actx *AuditContext, opts Options) *SemanticCacheValidator {
	return &SemanticCacheValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *SemanticCacheValidator) Name() string { return "cache-keys" }

// keyUsage tracks one raw key spelling: where it is read and where it is
// invalidated.
type keyUsage struct {
	raw           string
	readFiles     []string
	reads         int
	invalidations int
}

// Validate collects every query key and invalidation key in the
// document's files and cross-checks spellings, readers, and writers.
func (v *SemanticCacheValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	files := documentFiles(v.actx, m)

	byRaw := make(map[string]*keyUsage)
	use := func(raw string) *keyUsage {
		u, ok := byRaw[raw]
		if !ok {
			u = &keyUsage{raw: raw}
			byRaw[raw] = u
		}
		return u
	}

	for _, fp := range files {
		if ctx.Err() != nil {
			break
		}
		data, err := v.actx.ReadFile(fp)
		if err != nil {
			continue
		}
		queries, invalidations := extractCacheFacts(string(data))
		for _, q := range queries {
			u := use(q.key)
			u.reads++
			u.readFiles = append(u.readFiles, fp)
		}
		for _, inv := range invalidations {
			use(inv.key).invalidations++
		}
	}

	raws := make([]string, 0, len(byRaw))
	for raw := range byRaw {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	var issues []models.ValidationIssue
	issues = append(issues, v.duplicateSpellings(raws)...)
	issues = append(issues, v.unbalancedUsage(raws, byRaw)...)

	return models.NewResult(issues, len(raws), 0)
}

// duplicateSpellings flags raw spellings that normalize to the same
// logical key. Containment is deliberately not enough here: hierarchical
// keys like a list key and its /overview sibling are distinct on
// purpose, so only identical normalized forms count as duplicates.
func (v *SemanticCacheValidator) duplicateSpellings(raws []string) []models.ValidationIssue {
	groups := make(map[string][]string)
	for _, raw := range raws {
		norm := v.actx.Scorer.NormalizeCacheKey(raw)
		if norm == "" {
			continue
		}
		groups[norm] = append(groups[norm], raw)
	}

	norms := make([]string, 0, len(groups))
	for norm := range groups {
		norms = append(norms, norm)
	}
	sort.Strings(norms)

	var issues []models.ValidationIssue
	for _, norm := range norms {
		spellings := groups[norm]
		if len(spellings) < 2 {
			continue
		}
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCacheKeyInconsistency,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("cache key spelled %d ways for the same logical entry: %s",
				len(spellings), strings.Join(spellings, ", ")),
			Location:   spellings[0],
			Suggestion: "pick one spelling and use it for both queries and invalidations",
			Metadata:   map[string]interface{}{"spellings": spellings},
		})
	}
	return issues
}

// unbalancedUsage flags read-only and write-only keys: a key read in two
// or more places that no invalidation touches is a warning, and an
// invalidation no query reads is an info.
func (v *SemanticCacheValidator) unbalancedUsage(raws []string, byRaw map[string]*keyUsage) []models.ValidationIssue {
	var issues []models.ValidationIssue

	for _, raw := range raws {
		u := byRaw[raw]

		if u.reads >= 2 && !v.hasSimilarInvalidation(raw, raws, byRaw) {
			sort.Strings(u.readFiles)
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCacheKeyInconsistency,
				Severity: models.SeverityWarning,
				Message: fmt.Sprintf("query key '%s' is read in %d places but nothing invalidates it",
					raw, u.reads),
				Location:   u.readFiles[0],
				Suggestion: fmt.Sprintf("invalidate '%s' after the mutations that change its data", raw),
			})
		}

		if u.invalidations > 0 && u.reads == 0 && !v.hasSimilarRead(raw, raws, byRaw) {
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCacheKeyInconsistency,
				Severity: models.SeverityInfo,
				Message:  fmt.Sprintf("cache key '%s' is invalidated but never read in the scanned files", raw),
				Location: raw,
			})
		}
	}
	return issues
}

func (v *SemanticCacheValidator) hasSimilarInvalidation(raw string, raws []string, byRaw map[string]*keyUsage) bool {
	for _, other := range raws {
		if byRaw[other].invalidations > 0 && v.actx.Scorer.KeysSimilar(raw, other) {
			return true
		}
	}
	return false
}

func (v *SemanticCacheValidator) hasSimilarRead(raw string, raws []string, byRaw map[string]*keyUsage) bool {
	for _, other := range raws {
		if byRaw[other].reads > 0 && v.actx.Scorer.KeysSimilar(raw, other) {
			return true
		}
	}
	return false
}
