package validation

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// handlerSearchDirs are the conventional locations checked when a
// declared handler file is missing, in priority order.
var handlerSearchDirs = []string{"server/routes", "server/api", "server", "api", "routes"}

// handlerSearchExts are the extensions tried per search directory.
var handlerSearchExts = []string{".ts", ".js"}

// persistencePatterns are the markers scanned for when checking that a
// mutating endpoint's handler touches storage.
var persistencePatterns = []string{
	"db.", "storage.", "prisma.", "knex", "repository.",
	"insert", "update", "delete", "select",
	".create(", ".save(", ".findmany(", ".findone(", ".execute(",
}

// mutatingMethods are the HTTP methods expected to write.
var mutatingMethods = map[string]bool{
	"POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// APIValidator checks declared endpoints against the indexed route
// surface: existence with fuzzy near-miss suggestions, handler file
// accuracy, schema shape, and persistence patterns behind mutations.
type APIValidator struct {
	actx *AuditContext
	opts Options
}

// NewAPIValidator creates an API validator for one audit run.
func NewAPIValidator(actx *AuditContext, opts Options) *APIValidator {
	return &APIValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *APIValidator) Name() string { return "apis" }

// Validate runs every enabled endpoint check for one document. Orphan
// detection is not run here: the orchestrator runs it once over the
// union of all documents so an endpoint documented in a sibling map is
// not misreported.
func (v *APIValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	var issues []models.ValidationIssue
	checks := 0

	for _, ep := range declaredEndpoints(m) {
		if ctx.Err() != nil {
			break
		}

		existIssues, exists := v.validateEndpointExists(ep)
		issues = append(issues, existIssues...)
		checks++

		if v.opts.CheckHandlerFiles && ep.HandlerFile != "" {
			issues = append(issues, v.validateHandlerFile(ep, exists)...)
			checks++
		}
		if v.opts.ValidateSchemas {
			issues = append(issues, v.validateRequestResponse(ep)...)
			checks++
		}
		if v.opts.CheckDatabaseAccess && exists && mutatingMethods[ep.Method] {
			issues = append(issues, v.validateDatabaseAccess(ep)...)
			checks++
		}
	}

	return models.NewResult(issues, checks, 0)
}

// validateEndpointExists looks the endpoint up in the index and falls
// back to fuzzy candidates: same path with a different method, or same
// method with a similar path. Candidates soften the failure to a
// warning; no candidates is an error.
func (v *APIValidator) validateEndpointExists(ep sysmap.APIEndpoint) ([]models.ValidationIssue, bool) {
	key := codebase.EndpointKey(ep.Method, ep.Path)
	if _, ok := v.actx.Codebase.API(ep.Method, ep.Path); ok {
		return nil, true
	}

	candidates := v.endpointCandidates(ep)
	if len(candidates) == 0 {
		return []models.ValidationIssue{{
			Type:     models.IssueAPIMismatch,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("declared endpoint %s not implemented anywhere in the codebase", key),
			Location: key,
		}}, false
	}

	suggested := v.rankEndpointCandidates(key, candidates, 3)
	return []models.ValidationIssue{{
		Type:       models.IssueAPIMismatch,
		Severity:   models.SeverityWarning,
		Message:    fmt.Sprintf("declared endpoint %s not found; similar endpoints exist: %s", key, strings.Join(suggested, ", ")),
		Location:   key,
		Suggestion: fmt.Sprintf("did you mean %s?", suggested[0]),
		Metadata:   map[string]interface{}{"candidates": suggested},
	}}, false
}

// endpointCandidates collects index entries that could be what the
// document meant: the same normalized path under another method, or a
// similar path under the same method.
func (v *APIValidator) endpointCandidates(ep sysmap.APIEndpoint) []string {
	wantPath := v.actx.Scorer.NormalizeEndpoint(ep.Path)
	var candidates []string

	for _, key := range v.actx.Codebase.EndpointKeys() {
		info := v.actx.Codebase.APIs[key]
		samePath := v.actx.Scorer.NormalizeEndpoint(info.Endpoint) == wantPath
		sameMethod := info.Method == ep.Method || info.Method == "ALL"

		switch {
		case samePath && !sameMethod:
			candidates = append(candidates, key)
		case sameMethod && v.actx.Scorer.EndpointsSimilar(info.Endpoint, ep.Path):
			candidates = append(candidates, key)
		}
	}
	sort.Strings(candidates)
	return candidates
}

// rankEndpointCandidates orders candidates by fuzzy relevance and tops
// the list up, in sorted order, with any candidate the fuzzy pass
// dropped. Edit-distance matches are real candidates even when they
// share no subsequence with the target.
func (v *APIValidator) rankEndpointCandidates(target string, candidates []string, limit int) []string {
	ranked := v.actx.Scorer.RankCandidates(target, candidates, limit)
	seen := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		seen[r] = true
	}
	for _, c := range candidates {
		if len(ranked) >= limit {
			break
		}
		if !seen[c] {
			ranked = append(ranked, c)
			seen[c] = true
		}
	}
	return ranked
}

// validateHandlerFile confirms the declared handler exists, searching
// the conventional server directories when it does not, and flags a
// declared handler that disagrees with the file the index recorded as
// registering the route.
func (v *APIValidator) validateHandlerFile(ep sysmap.APIEndpoint, endpointExists bool) []models.ValidationIssue {
	key := codebase.EndpointKey(ep.Method, ep.Path)
	declared := codebase.NormalizePath(ep.HandlerFile)

	if !v.actx.FileExists(declared) {
		if found := v.searchHandler(declared); found != "" {
			return []models.ValidationIssue{{
				Type:       models.IssueHandlerFileMismatch,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("handler for %s declared at %s but found at %s", key, declared, found),
				Location:   key,
				Suggestion: fmt.Sprintf("update the declared handler file to %s", found),
			}}
		}
		return []models.ValidationIssue{{
			Type:     models.IssueHandlerFileMismatch,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("handler file %s for %s not found anywhere", declared, key),
			Location: key,
		}}
	}

	if endpointExists {
		if info, ok := v.actx.Codebase.API(ep.Method, ep.Path); ok && codebase.NormalizePath(info.HandlerFile) != declared {
			return []models.ValidationIssue{{
				Type:       models.IssueHandlerFileMismatch,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("%s is registered in %s, not the declared %s (stale pointer)", key, info.HandlerFile, declared),
				Location:   key,
				Suggestion: fmt.Sprintf("update the declared handler file to %s", info.HandlerFile),
			}}
		}
	}
	return nil
}

// searchHandler tries the conventional directories with each known
// extension for a file whose stem matches the declared handler's.
func (v *APIValidator) searchHandler(declared string) string {
	base := path.Base(declared)
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, dir := range handlerSearchDirs {
		for _, ext := range handlerSearchExts {
			candidate := dir + "/" + stem + ext
			if candidate == declared {
				continue
			}
			if v.actx.FileExists(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// validateRequestResponse checks declared schemas are object-typed.
func (v *APIValidator) validateRequestResponse(ep sysmap.APIEndpoint) []models.ValidationIssue {
	key := codebase.EndpointKey(ep.Method, ep.Path)
	var issues []models.ValidationIssue

	if ep.RequestSchema != nil && !isObjectSchema(ep.RequestSchema) {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueAPIMismatch,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("request schema for %s is not an object", key),
			Location: key,
		})
	}
	if ep.ResponseSchema != nil && !isObjectSchema(ep.ResponseSchema) {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueAPIMismatch,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("response schema for %s is not an object", key),
			Location: key,
		})
	}
	return issues
}

// validateDatabaseAccess scans the implementing file of a mutating
// endpoint for persistence markers. Absence is informational: a
// mutating endpoint may legitimately never touch storage.
func (v *APIValidator) validateDatabaseAccess(ep sysmap.APIEndpoint) []models.ValidationIssue {
	info, ok := v.actx.Codebase.API(ep.Method, ep.Path)
	if !ok {
		return nil
	}
	data, err := v.actx.ReadFile(info.HandlerFile)
	if err != nil {
		return []models.ValidationIssue{{
			Type:     models.IssueAPIMismatch,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("cannot read handler %s: %v", info.HandlerFile, err),
			Location: codebase.EndpointKey(ep.Method, ep.Path),
		}}
	}

	content := strings.ToLower(string(data))
	for _, pattern := range persistencePatterns {
		if strings.Contains(content, pattern) {
			return nil
		}
	}
	return []models.ValidationIssue{{
		Type:     models.IssueAPIMismatch,
		Severity: models.SeverityInfo,
		Message:  fmt.Sprintf("mutating endpoint %s shows no persistence patterns in %s", codebase.EndpointKey(ep.Method, ep.Path), info.HandlerFile),
		Location: codebase.EndpointKey(ep.Method, ep.Path),
	}}
}

// FindOrphans reports every implemented endpoint absent from the given
// declared set. Orphans are undocumented surface area, never failures,
// so each one is an info issue.
func (v *APIValidator) FindOrphans(declared map[string]bool) models.ValidationResult {
	var issues []models.ValidationIssue

	for _, key := range v.actx.Codebase.EndpointKeys() {
		if declared[key] {
			continue
		}
		info := v.actx.Codebase.APIs[key]
		issues = append(issues, models.ValidationIssue{
			Type:       models.IssueAPIMismatch,
			Severity:   models.SeverityInfo,
			Message:    fmt.Sprintf("endpoint %s (registered in %s) is implemented but not documented in any system map", key, info.HandlerFile),
			Location:   key,
			Suggestion: "document the endpoint or remove it",
		})
	}

	return models.NewResult(issues, len(v.actx.Codebase.APIs), 0)
}

// declaredEndpoints collects the document's API surface from both
// shapes: the flat endpoint array and each feature's apiIntegration
// endpoint strings ("METHOD /path"). Sorted by key for determinism.
func declaredEndpoints(m *sysmap.SystemMap) []sysmap.APIEndpoint {
	byKey := make(map[string]sysmap.APIEndpoint)

	for _, ep := range m.APIs {
		ep.Method = strings.ToUpper(strings.TrimSpace(ep.Method))
		byKey[codebase.EndpointKey(ep.Method, ep.Path)] = ep
	}

	for _, feature := range m.Features() {
		if feature.APIIntegration == nil {
			continue
		}
		for _, raw := range feature.APIIntegration.Endpoints {
			ep, ok := parseEndpointRef(raw)
			if !ok {
				continue
			}
			key := codebase.EndpointKey(ep.Method, ep.Path)
			if _, dup := byKey[key]; !dup {
				byKey[key] = ep
			}
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sysmap.APIEndpoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

// DeclaredEndpointKeys returns the canonical keys of every endpoint a
// document declares; the orchestrator unions these across documents for
// orphan detection.
func DeclaredEndpointKeys(m *sysmap.SystemMap) []string {
	eps := declaredEndpoints(m)
	keys := make([]string, 0, len(eps))
	for _, ep := range eps {
		keys = append(keys, codebase.EndpointKey(ep.Method, ep.Path))
	}
	return keys
}

// parseEndpointRef parses "METHOD /path" or a bare "/path" (GET
// assumed) into an endpoint declaration.
func parseEndpointRef(raw string) (sysmap.APIEndpoint, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	switch len(fields) {
	case 1:
		if !strings.HasPrefix(fields[0], "/") {
			return sysmap.APIEndpoint{}, false
		}
		return sysmap.APIEndpoint{Method: "GET", Path: fields[0]}, true
	case 2:
		return sysmap.APIEndpoint{Method: strings.ToUpper(fields[0]), Path: fields[1]}, true
	default:
		return sysmap.APIEndpoint{}, false
	}
}

// isObjectSchema reports whether a decoded schema value is an object.
func isObjectSchema(schema interface{}) bool {
	_, ok := schema.(map[string]interface{})
	return ok
}
