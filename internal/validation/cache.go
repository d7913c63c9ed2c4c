package validation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// Source patterns for cache fact extraction. Keys live in the first
// string literal of a query-key array; everything after it is params.
var (
	useMutationPattern = regexp.MustCompile(`useMutation\s*[<(]`)
	invalidateCallRe   = regexp.MustCompile(`invalidateQueries\s*\(\s*(?:\{[^{}\[\]]*queryKey\s*:\s*)?\[([^\]]*)\]`)
	queryKeyDeclRe     = regexp.MustCompile(`queryKey\s*:\s*\[([^\]]*)\]`)
	useQueryArrayRe    = regexp.MustCompile(`use(?:Infinite)?Query\s*\(\s*\[([^\]]*)\]`)
	endpointLiteralRe  = regexp.MustCompile("[`'\"](/[A-Za-z0-9_\\-./]+)[`'\"]")
	methodLiteralRe    = regexp.MustCompile(`['"](POST|PUT|PATCH|DELETE|GET)['"]`)
	methodCallRe       = regexp.MustCompile(`\.(post|put|patch|delete)\s*\(`)
	firstStringLiteral = regexp.MustCompile("['\"`]([^'\"`]+)['\"`]")
	successMarkerRe    = regexp.MustCompile(`on(?:Success|Settled)\s*:`)
)

// DefaultCacheExpectations is the endpoint-prefix to query-key table: a
// mutation under a prefix must invalidate every listed key. Overridable
// through configuration.
func DefaultCacheExpectations() map[string][]string {
	return map[string][]string{
		"/api/memories":    {"/api/memories", "/api/memories/overview"},
		"/api/health-data": {"/api/health-data", "/api/health-data/overview"},
		"/api/chat":        {"/api/chat"},
		"/api/settings":    {"/api/settings"},
		"/api/files":       {"/api/files"},
	}
}

// CacheValidator reconstructs cache invalidation chains from mutation
// sites and checks them for completeness and timing, and validates the
// cache-dependency declarations a document carries directly.
type CacheValidator struct {
	actx *AuditContext
	opts Options
}

// NewCacheValidator creates a cache validator for one audit run.
func NewCacheValidator(actx *AuditContext, opts Options) *CacheValidator {
	return &CacheValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *CacheValidator) Name() string { return "cache" }

// Validate checks reconstructed invalidation chains, declared cache
// dependencies, and declared feature statuses for one document.
func (v *CacheValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	var issues []models.ValidationIssue
	checks := 0

	chains, chainIssues := v.analyzeChains(ctx, m)
	issues = append(issues, chainIssues...)
	checks += len(chains)

	issues = append(issues, v.validateDeclaredDependencies(m)...)
	checks++

	issues = append(issues, v.validateFeatureStatuses(m)...)
	checks++

	return models.NewResult(issues, checks, 0)
}

// Chains reconstructs every invalidation chain in the document's files.
// Exposed for reporting; Validate derives its chain issues from the
// same reconstruction.
func (v *CacheValidator) Chains(ctx context.Context, m *sysmap.SystemMap) []models.CacheInvalidationChain {
	chains, _ := v.analyzeChains(ctx, m)
	return chains
}

func (v *CacheValidator) analyzeChains(ctx context.Context, m *sysmap.SystemMap) ([]models.CacheInvalidationChain, []models.ValidationIssue) {
	files := documentFiles(v.actx, m)

	// Readers across the whole scope, for affected-component lookup.
	queriesByFile := make(map[string][]keyOccurrence, len(files))
	for _, fp := range files {
		if data, err := v.actx.ReadFile(fp); err == nil {
			queries, _ := extractCacheFacts(string(data))
			queriesByFile[fp] = queries
		}
	}

	var chains []models.CacheInvalidationChain
	var issues []models.ValidationIssue

	for _, fp := range files {
		if ctx.Err() != nil {
			break
		}
		data, err := v.actx.ReadFile(fp)
		if err != nil {
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCacheInvalidationMissing,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("cannot read %s for cache analysis: %v", fp, err),
				Location: fp,
			})
			continue
		}
		content := string(data)

		for _, block := range mutationBlocks(content) {
			chain, ok := v.buildChain(fp, content, block, queriesByFile)
			if !ok {
				continue
			}
			chains = append(chains, chain)
			issues = append(issues, v.chainIssues(fp, content, block, chain)...)
		}
	}

	return chains, issues
}

// buildChain reconstructs one chain from a useMutation block: the
// endpoint it targets, the keys the expectation table requires, and the
// invalidations actually found in the bounded window after the call.
func (v *CacheValidator) buildChain(fp, content string, block blockRange, queriesByFile map[string][]keyOccurrence) (models.CacheInvalidationChain, bool) {
	body := content[block.start:block.end]

	endpoint := ""
	if m := endpointLiteralRe.FindStringSubmatch(body); m != nil {
		endpoint = m[1]
	}
	if endpoint == "" {
		return models.CacheInvalidationChain{}, false
	}

	expected := v.expectationsFor(endpoint)

	windowEnd := lookaheadEnd(content, block, v.opts.CacheLookahead)
	var actual []string
	for _, occ := range extractInvalidationCalls(content) {
		if occ.offset >= block.start && occ.offset < windowEnd {
			actual = append(actual, occ.key)
		}
	}

	var missing []string
	for _, exp := range expected {
		if !coveredBy(v.actx, exp, actual) {
			missing = append(missing, exp)
		}
	}

	chain := models.CacheInvalidationChain{
		StartingAction:        "mutation " + mutationMethod(body) + " " + endpoint,
		APIEndpoint:           endpoint,
		ExpectedInvalidations: expected,
		ActualInvalidations:   actual,
		MissingInvalidations:  missing,
		ChainComplete:         len(missing) == 0,
		AffectedComponents:    affectedComponents(v.actx, missing, queriesByFile),
		SourceFile:            fp,
	}
	return chain, true
}

// chainIssues converts one chain into findings: an error when expected
// invalidations are missing, and a timing warning when the block's
// invalidations do not follow an onSuccess/onSettled marker.
func (v *CacheValidator) chainIssues(fp, content string, block blockRange, chain models.CacheInvalidationChain) []models.ValidationIssue {
	var issues []models.ValidationIssue

	if !chain.ChainComplete {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCacheInvalidationMissing,
			Severity: models.SeverityError,
			Message: fmt.Sprintf("%s in %s does not invalidate: %s",
				chain.StartingAction, fp, strings.Join(chain.MissingInvalidations, ", ")),
			Location:   fp,
			Suggestion: "invalidate the missing query keys in the mutation's onSuccess handler",
			Metadata: map[string]interface{}{
				"expectedInvalidations": chain.ExpectedInvalidations,
				"actualInvalidations":   chain.ActualInvalidations,
				"missingInvalidations":  chain.MissingInvalidations,
				"affectedComponents":    chain.AffectedComponents,
			},
		})
	}

	// Timing: scoped to this mutation's block, not the whole file, so
	// one file holding several mutations checks each independently.
	body := content[block.start:block.end]
	var inBlock []int
	for _, occ := range extractInvalidationCalls(content) {
		if occ.offset >= block.start && occ.offset < block.end {
			inBlock = append(inBlock, occ.offset-block.start)
		}
	}
	if len(inBlock) > 0 {
		marker := successMarkerRe.FindStringIndex(body)
		afterMarker := false
		if marker != nil {
			for _, off := range inBlock {
				if off > marker[0] {
					afterMarker = true
					break
				}
			}
		}
		if !afterMarker {
			issues = append(issues, models.ValidationIssue{
				Type:       models.IssueCacheInvalidationMissing,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("%s in %s invalidates queries outside an onSuccess/onSettled callback", chain.StartingAction, fp),
				Location:   fp,
				Suggestion: "move invalidateQueries into the mutation's onSuccess or onSettled callback",
			})
		}
	}

	return issues
}

// lookaheadEnd bounds a search window: the block's end, or the given
// number of lines after the block opens, whichever comes first.
func lookaheadEnd(content string, block blockRange, lines int) int {
	starts := lineStarts(content)
	startLine := lineOf(starts, block.start)
	lastLine := startLine + lines
	if lastLine+1 >= len(starts) {
		return block.end
	}
	if end := starts[lastLine+1]; end < block.end {
		return end
	}
	return block.end
}

// expectationsFor returns the table's keys for the longest prefix
// matching the endpoint, on path-segment boundaries.
func (v *CacheValidator) expectationsFor(endpoint string) []string {
	ep := v.actx.Scorer.NormalizeEndpoint(endpoint)

	prefixes := make([]string, 0, len(v.opts.CacheExpectations))
	for p := range v.opts.CacheExpectations {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	best := ""
	for _, p := range prefixes {
		np := v.actx.Scorer.NormalizeEndpoint(p)
		if (ep == np || strings.HasPrefix(ep, np+"/")) && len(np) > len(best) {
			best = p
		}
	}
	if best == "" {
		return nil
	}
	expected := make([]string, len(v.opts.CacheExpectations[best]))
	copy(expected, v.opts.CacheExpectations[best])
	return expected
}

// validateDeclaredDependencies checks cache-dependency declarations in
// both shapes: the top-level cacheDependencies map and each feature's
// apiIntegration block. A self-reported missing invalidation is an
// error, as is a refreshed component the document never defines.
func (v *CacheValidator) validateDeclaredDependencies(m *sysmap.SystemMap) []models.ValidationIssue {
	var issues []models.ValidationIssue
	declared := m.DeclaredComponentSet()

	keys := make([]string, 0, len(m.CacheDependencies))
	for k := range m.CacheDependencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dep := m.CacheDependencies[k]
		issues = append(issues, v.dependencyIssues(k, &dep, declared)...)
	}

	for _, feature := range m.Features() {
		if feature.APIIntegration == nil || feature.APIIntegration.CacheDependencies == nil {
			continue
		}
		issues = append(issues, v.dependencyIssues(feature.Name, feature.APIIntegration.CacheDependencies, declared)...)
	}

	return issues
}

func (v *CacheValidator) dependencyIssues(location string, dep *sysmap.CacheDependency, declared map[string]bool) []models.ValidationIssue {
	var issues []models.ValidationIssue

	if len(dep.MissingInvalidations) > 0 {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCacheInvalidationMissing,
			Severity: models.SeverityError,
			Message: fmt.Sprintf("'%s' declares missing invalidations: %s",
				location, strings.Join(dep.MissingInvalidations, ", ")),
			Location:   location,
			Suggestion: "add the missing invalidations, then clear missingInvalidations in the map",
			Metadata:   map[string]interface{}{"missingInvalidations": dep.MissingInvalidations},
		})
	}

	for _, rc := range dep.RefreshesComponents {
		if !declared[rc] {
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueMissingComponentDefinition,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("'%s' refreshes component '%s' which is not defined in the component set", location, rc),
				Location: location,
			})
		}
	}

	return issues
}

// validateFeatureStatuses flags declared-broken features. A broken
// feature with known issues must always fail the audit.
func (v *CacheValidator) validateFeatureStatuses(m *sysmap.SystemMap) []models.ValidationIssue {
	var issues []models.ValidationIssue

	names := make([]string, 0, len(m.IntegrationStatus))
	for name := range m.IntegrationStatus {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		status := m.IntegrationStatus[name]
		switch {
		case status.Status == sysmap.FeatureBroken && len(status.KnownIssues) > 0:
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueBrokenFeatureStatus,
				Severity: models.SeverityError,
				Message: fmt.Sprintf("feature '%s' is declared broken with known issues: %s",
					name, strings.Join(status.KnownIssues, "; ")),
				Location: name,
				Metadata: map[string]interface{}{"knownIssues": status.KnownIssues},
			})
		case status.Status == sysmap.FeatureBroken:
			issues = append(issues, models.ValidationIssue{
				Type:       models.IssueBrokenFeatureStatus,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("feature '%s' is declared broken but lists no known issues", name),
				Location:   name,
				Suggestion: "record the known issues or update the status",
			})
		case !status.Status.Valid():
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCrossReferenceError,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("feature '%s' has unknown integration status '%s'", name, status.Status),
				Location: name,
			})
		}
	}

	return issues
}

// keyOccurrence is one cache-key reference and its byte offset.
type keyOccurrence struct {
	key    string
	offset int
}

// blockRange is a half-open byte range within one file.
type blockRange struct {
	start, end int
}

// mutationBlocks locates every useMutation call and brace-matches its
// argument list so each mutation is analyzed in isolation. String
// literals are skipped while counting parens.
func mutationBlocks(content string) []blockRange {
	var blocks []blockRange
	for _, loc := range useMutationPattern.FindAllStringIndex(content, -1) {
		open := strings.IndexByte(content[loc[0]:], '(')
		if open < 0 {
			continue
		}
		start := loc[0]
		end := matchParens(content, loc[0]+open)
		blocks = append(blocks, blockRange{start: start, end: end})
	}
	return blocks
}

// matchParens walks from the opening paren at start to its matching
// close, returning the offset just past it. An unterminated call runs
// to the end of the file.
func matchParens(content string, start int) int {
	depth := 0
	var quote byte
	for i := start; i < len(content); i++ {
		c := content[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(content)
}

// extractInvalidationCalls returns every invalidateQueries key in the
// file with its byte offset.
func extractInvalidationCalls(content string) []keyOccurrence {
	var occs []keyOccurrence
	for _, idx := range invalidateCallRe.FindAllStringSubmatchIndex(content, -1) {
		inner := content[idx[2]:idx[3]]
		if m := firstStringLiteral.FindStringSubmatch(inner); m != nil {
			occs = append(occs, keyOccurrence{key: m[1], offset: idx[0]})
		}
	}
	return occs
}

// extractCacheFacts returns the query keys a file reads and the keys it
// invalidates. A queryKey declaration inside an invalidateQueries call
// counts as an invalidation, not a read.
func extractCacheFacts(content string) (queries, invalidations []keyOccurrence) {
	invalidations = extractInvalidationCalls(content)

	invalidateRanges := invalidateCallRe.FindAllStringIndex(content, -1)
	inInvalidate := func(off int) bool {
		for _, r := range invalidateRanges {
			if off >= r[0] && off < r[1] {
				return true
			}
		}
		return false
	}

	for _, idx := range queryKeyDeclRe.FindAllStringSubmatchIndex(content, -1) {
		if inInvalidate(idx[0]) {
			continue
		}
		inner := content[idx[2]:idx[3]]
		if m := firstStringLiteral.FindStringSubmatch(inner); m != nil {
			queries = append(queries, keyOccurrence{key: m[1], offset: idx[0]})
		}
	}
	for _, idx := range useQueryArrayRe.FindAllStringSubmatchIndex(content, -1) {
		inner := content[idx[2]:idx[3]]
		if m := firstStringLiteral.FindStringSubmatch(inner); m != nil {
			queries = append(queries, keyOccurrence{key: m[1], offset: idx[0]})
		}
	}
	return queries, invalidations
}

// mutationMethod guesses the HTTP method a mutation block uses,
// defaulting to POST.
func mutationMethod(body string) string {
	if m := methodLiteralRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := methodCallRe.FindStringSubmatch(body); m != nil {
		return strings.ToUpper(m[1])
	}
	return "POST"
}

// coveredBy reports whether any actual invalidation semantically
// matches the expected key.
func coveredBy(actx *AuditContext, expected string, actual []string) bool {
	for _, act := range actual {
		if actx.Scorer.KeysSimilar(expected, act) {
			return true
		}
	}
	return false
}

// affectedComponents returns the sorted files whose query keys read any
// of the missing invalidations.
func affectedComponents(actx *AuditContext, missing []string, queriesByFile map[string][]keyOccurrence) []string {
	if len(missing) == 0 {
		return nil
	}
	var affected []string
	for fp, queries := range queriesByFile {
		hit := false
		for _, q := range queries {
			for _, miss := range missing {
				if actx.Scorer.KeysSimilar(q.key, miss) {
					hit = true
					break
				}
			}
			if hit {
				break
			}
		}
		if hit {
			affected = append(affected, fp)
		}
	}
	sort.Strings(affected)
	return affected
}

// lineStarts returns the byte offset of each line's first character.
func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf returns the zero-based line holding the given byte offset.
func lineOf(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
