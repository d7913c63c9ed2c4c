package validation

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// verificationDocDir holds written manual-verification records.
const verificationDocDir = "docs/verification"

// workflowDir holds CI workflow definitions. The scanner never descends
// into dot-directories, so workflows are read directly from disk.
const workflowDir = ".github/workflows"

// testDirSegments are directory names that mark a path as test code.
var testDirSegments = []string{"__tests__", "tests", "test", "e2e", "cypress", "playwright"}

// e2eMarkers distinguish end-to-end suites from unit-level checks.
var e2eMarkers = []string{"e2e", "cypress", "playwright"}

// EvidenceValidator discovers the artifacts backing each feature's
// integration claim (tests, verification docs, CI workflows) and rolls
// per-component, API, and flow sub-scores into an overall status per
// feature. A feature without a single verified artifact stays
// unverified no matter how well its sub-scores look.
type EvidenceValidator struct {
	actx *AuditContext
	opts Options
}

// NewEvidenceValidator creates an evidence validator for one audit run.
func NewEvidenceValidator(actx *AuditContext, opts Options) *EvidenceValidator {
	return &EvidenceValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *EvidenceValidator) Name() string { return "evidence" }

// Validate reports evidence gaps for every feature: nothing found at
// all, artifacts recording a failure, and stale verifications.
func (v *EvidenceValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	start := time.Now()
	var issues []models.ValidationIssue
	checks := 0

	for _, feature := range m.Features() {
		checks++
		evidence := v.discoverEvidence(feature)
		if len(evidence) == 0 {
			issues = append(issues, models.ValidationIssue{
				Type:       models.IssueIntegrationEvidenceMissing,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("feature '%s' has no integration evidence: no test, verification doc, or workflow mentions it", feature.Name),
				Location:   feature.Name,
				Suggestion: fmt.Sprintf("add a test or verification record for '%s'", feature.Name),
			})
			continue
		}
		for _, ev := range evidence {
			switch ev.VerificationStatus {
			case models.VerificationFailed:
				issues = append(issues, models.ValidationIssue{
					Type:       models.IssueIntegrationEvidenceMissing,
					Severity:   models.SeverityWarning,
					Message:    fmt.Sprintf("evidence for feature '%s' at %s records a failure", feature.Name, ev.EvidenceLocation),
					Location:   ev.EvidenceLocation,
					Suggestion: fmt.Sprintf("re-verify '%s' and update %s", feature.Name, ev.EvidenceLocation),
				})
			case models.VerificationOutdated:
				issues = append(issues, models.ValidationIssue{
					Type:     models.IssueIntegrationEvidenceMissing,
					Severity: models.SeverityInfo,
					Message:  fmt.Sprintf("evidence for feature '%s' at %s is older than the freshness window", feature.Name, ev.EvidenceLocation),
					Location: ev.EvidenceLocation,
					Metadata: map[string]interface{}{"lastVerified": ev.LastVerified.Format(time.RFC3339)},
				})
			}
		}
	}

	return models.NewResult(issues, checks, time.Since(start))
}

// FeatureStatuses builds the per-feature integration rollup for a
// feature-group document. The issues argument is the merged output of
// the other validators; its error-severity entries become blockers on
// the features whose names, components, endpoints, or flows they cite.
func (v *EvidenceValidator) FeatureStatuses(m *sysmap.SystemMap, issues []models.ValidationIssue) []models.FeatureIntegrationStatus {
	features := m.Features()
	if len(features) == 0 {
		return nil
	}

	statuses := make([]models.FeatureIntegrationStatus, 0, len(features))
	for _, feature := range features {
		st := models.FeatureIntegrationStatus{FeatureName: feature.Name}

		for _, name := range feature.Components {
			st.Components = append(st.Components, models.ComponentIntegrationStatus{
				Name:  name,
				Score: v.componentScore(name, m),
			})
		}
		if feature.APIIntegration != nil {
			for _, raw := range feature.APIIntegration.Endpoints {
				score := 0.0
				if ep, ok := parseEndpointRef(raw); ok {
					score = v.apiScore(ep)
				}
				st.APIs = append(st.APIs, models.APIIntegrationStatus{Endpoint: raw, Score: score})
			}
		}
		if len(feature.UserFlow) > 0 {
			st.Flows = append(st.Flows, models.FlowIntegrationStatus{
				Name:  feature.Group + "/" + feature.Name + " user flow",
				Score: flowScore(feature.UserFlow),
			})
		}
		if len(feature.SystemFlow) > 0 {
			st.Flows = append(st.Flows, models.FlowIntegrationStatus{
				Name:  feature.Group + "/" + feature.Name + " system flow",
				Score: flowScore(feature.SystemFlow),
			})
		}

		st.Evidence = v.discoverEvidence(feature)
		st.OverallStatus = models.DeriveOverallStatus(st.AverageScore(), st.HasVerifiedEvidence())
		st.Blockers = v.featureBlockers(feature, st, m, issues)
		statuses = append(statuses, st)
	}
	return statuses
}

// discoverEvidence finds the artifacts backing one feature: indexed test
// files whose path carries the feature name, manual verification docs,
// CI workflow files, and top-level docs that mention it.
func (v *EvidenceValidator) discoverEvidence(feature sysmap.Feature) []models.IntegrationEvidence {
	tokens := featureTokens(feature.Name)

	seen := make(map[string]bool)
	var out []models.IntegrationEvidence
	add := func(rel string, kind models.EvidenceType) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		out = append(out, v.evidenceFor(feature, rel, kind))
	}

	for _, fp := range v.actx.Codebase.ComponentPaths() {
		if isTestPath(fp) && mentionsFeature(strings.ToLower(fp), tokens) {
			add(fp, testEvidenceType(fp))
		}
	}

	for _, rel := range v.listDir(verificationDocDir) {
		if mentionsFeature(strings.ToLower(rel), tokens) || v.contentMentions(rel, tokens) {
			add(rel, models.EvidenceManualVerification)
		}
	}

	for _, rel := range v.listDir(workflowDir) {
		lower := strings.ToLower(rel)
		if !strings.HasSuffix(lower, ".yml") && !strings.HasSuffix(lower, ".yaml") {
			continue
		}
		if mentionsFeature(lower, tokens) || v.contentMentions(rel, tokens) {
			add(rel, models.EvidenceAutomatedCheck)
		}
	}

	// Top-level docs count only on a content mention; matching their
	// filenames against short feature words would drag in every README.
	for _, rel := range v.listDir(".") {
		if !strings.HasSuffix(strings.ToLower(rel), ".md") {
			continue
		}
		if v.contentMentions(rel, tokens) {
			add(rel, models.EvidenceManualVerification)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EvidenceLocation < out[j].EvidenceLocation })
	return out
}

// evidenceFor builds one evidence entry: status from the artifact's
// content, timestamp from its mtime, downgraded to outdated when a
// verified artifact is older than the freshness window.
func (v *EvidenceValidator) evidenceFor(feature sysmap.Feature, rel string, kind models.EvidenceType) models.IntegrationEvidence {
	ev := models.IntegrationEvidence{
		FeatureName:        feature.Name,
		EvidenceType:       kind,
		EvidenceLocation:   rel,
		VerificationStatus: models.VerificationNeedsVerification,
		RequiredFor:        append([]string(nil), feature.Components...),
	}
	if info, err := os.Stat(v.actx.ResolvePath(rel)); err == nil {
		ev.LastVerified = info.ModTime()
	}
	if data, err := v.actx.ReadFile(rel); err == nil {
		ev.VerificationStatus = scanVerification(data)
	}
	if ev.VerificationStatus == models.VerificationVerified && v.opts.EvidenceMaxAge > 0 &&
		!ev.LastVerified.IsZero() && v.actx.Now().Sub(ev.LastVerified) > v.opts.EvidenceMaxAge {
		ev.VerificationStatus = models.VerificationOutdated
	}
	return ev
}

// scanVerification derives a status from the artifact's own words.
// Failure markers outrank success markers.
func scanVerification(content []byte) models.VerificationStatus {
	upper := strings.ToUpper(string(content))
	switch {
	case strings.Contains(upper, "FAILED") || strings.Contains(upper, "BROKEN"):
		return models.VerificationFailed
	case strings.Contains(upper, "VERIFIED") || strings.Contains(upper, "PASSED"):
		return models.VerificationVerified
	default:
		return models.VerificationNeedsVerification
	}
}

// componentScore rates one feature component: resolving to a real file
// is most of the score, being imported somewhere picks up the rest.
// A name with several candidate files but no declared path scores half.
func (v *EvidenceValidator) componentScore(name string, m *sysmap.SystemMap) float64 {
	fp, ok := resolveComponentFile(v.actx, name, m)
	if !ok {
		if len(v.actx.CandidateFiles(name)) > 0 {
			return 0.5
		}
		return 0
	}
	score := 0.6
	if len(v.actx.Codebase.ImportersOf(fp)) > 0 {
		score += 0.4
	}
	return score
}

// apiScore rates one declared endpoint: an exact index match is full
// credit, a near match on the path earns half.
func (v *EvidenceValidator) apiScore(ep sysmap.APIEndpoint) float64 {
	if _, ok := v.actx.Codebase.API(ep.Method, ep.Path); ok {
		return 1.0
	}
	for _, key := range v.actx.Codebase.EndpointKeys() {
		if v.actx.Scorer.EndpointsSimilar(v.actx.Codebase.APIs[key].Endpoint, ep.Path) {
			return 0.5
		}
	}
	return 0
}

// flowScore rates a plain-text flow: the share of steps that name a
// concrete outcome.
func flowScore(steps []string) float64 {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, step := range steps {
		if hasTerminalKeyword(step) {
			done++
		}
	}
	return float64(done) / float64(len(steps))
}

// featureBlockers picks the error-severity issues whose location names
// this feature, one of its components (by name or resolved file), its
// endpoints, or one of its flows. Matching is by exact location.
func (v *EvidenceValidator) featureBlockers(feature sysmap.Feature, st models.FeatureIntegrationStatus, m *sysmap.SystemMap, issues []models.ValidationIssue) []models.ValidationIssue {
	locations := map[string]bool{
		feature.Name:                       true,
		feature.Group + "/" + feature.Name: true,
	}
	for _, name := range feature.Components {
		locations[name] = true
		if fp, ok := resolveComponentFile(v.actx, name, m); ok {
			locations[fp] = true
		}
	}
	if feature.APIIntegration != nil {
		for _, raw := range feature.APIIntegration.Endpoints {
			locations[strings.TrimSpace(raw)] = true
			if ep, ok := parseEndpointRef(raw); ok {
				locations[ep.Method+" "+ep.Path] = true
			}
		}
	}
	for _, fl := range st.Flows {
		locations[fl.Name] = true
	}

	var blockers []models.ValidationIssue
	for _, issue := range issues {
		if issue.Severity == models.SeverityError && locations[issue.Location] {
			blockers = append(blockers, issue)
		}
	}
	return blockers
}

// listDir returns root-relative paths of the regular files directly in
// one directory, or nil when the directory does not exist.
func (v *EvidenceValidator) listDir(rel string) []string {
	entries, err := os.ReadDir(v.actx.ResolvePath(rel))
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, path.Join(rel, entry.Name()))
	}
	return files
}

// contentMentions reports whether a file's text mentions the feature,
// in any of its name forms. Unreadable files never match.
func (v *EvidenceValidator) contentMentions(rel string, tokens []string) bool {
	data, err := v.actx.ReadFile(rel)
	if err != nil {
		return false
	}
	return mentionsFeature(strings.ToLower(string(data)), tokens)
}

func mentionsFeature(lowerText string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(lowerText, tok) {
			return true
		}
	}
	return false
}

// featureTokens are the forms a feature name is searched under: the
// name lowercased as written plus kebab, snake, and spaced renderings
// of its camel-case words.
func featureTokens(name string) []string {
	tokens := []string{strings.ToLower(name)}
	words := splitCamelWords(name)
	if len(words) > 1 {
		tokens = append(tokens,
			strings.Join(words, "-"),
			strings.Join(words, "_"),
			strings.Join(words, " "),
		)
	}
	return tokens
}

// splitCamelWords breaks a camelCase, kebab-case, or snake_case name
// into lowercased words.
func splitCamelWords(name string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// isTestPath reports whether an indexed file is a test by naming
// convention: a .test. or .spec. infix, or a test directory segment.
func isTestPath(fp string) bool {
	lower := strings.ToLower(fp)
	if strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.") {
		return true
	}
	for _, seg := range strings.Split(lower, "/") {
		for _, dir := range testDirSegments {
			if seg == dir {
				return true
			}
		}
	}
	return false
}

// testEvidenceType classifies a test file: anything under an e2e-style
// tree is end-to-end, the rest are automated checks.
func testEvidenceType(fp string) models.EvidenceType {
	lower := strings.ToLower(fp)
	for _, marker := range e2eMarkers {
		if strings.Contains(lower, marker) {
			return models.EvidenceEndToEndTest
		}
	}
	return models.EvidenceAutomatedCheck
}
