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

// terminalKeywords are the outcomes a flow step must name. A step that
// resolves to none of them leaves the user nowhere.
var terminalKeywords = []string{"complete", "navigate", "submit"}

// capabilityMarkers are the handler and lifecycle tokens a component
// file is scanned for when matching a step's declared action.
var capabilityMarkers = []string{
	"onClick", "onSubmit", "onChange", "onSelect", "onValidate",
	"onSave", "onDelete", "navigate", "redirect", "submit", "render",
}

var envVarPattern = regexp.MustCompile(`(?:process\.env|import\.meta\.env)\.([A-Z][A-Z0-9_]*)`)

// runtimeProvidedEnv are variables the runtime injects; their absence
// from the audit environment says nothing about the deployed system.
var runtimeProvidedEnv = map[string]bool{"NODE_ENV": true}

// FlowValidator replays declared user flows against the index: per-step
// component and API existence, capability matching, sequence analysis
// (circular navigation, dead ends, missing error handling), cross-feature
// component sharing, and environment integration points.
type FlowValidator struct {
	actx *AuditContext
	opts Options
}

// NewFlowValidator creates a flow validator for one audit run.
func NewFlowValidator(actx *AuditContext, opts Options) *FlowValidator {
	return &FlowValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *FlowValidator) Name() string { return "flows" }

// Validate checks every flow in the document plus the document-wide
// sharing and integration-point analyses.
func (v *FlowValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	var issues []models.ValidationIssue
	checks := 0

	for _, flow := range m.Flows {
		if ctx.Err() != nil {
			break
		}
		issues = append(issues, v.validateFlow(flow, m)...)
		checks++
	}

	issues = append(issues, v.validateCrossFeatureSharing(m)...)
	checks++

	issues = append(issues, v.validateIntegrationPoints(ctx, m)...)
	checks++

	return models.NewResult(issues, checks, 0)
}

// validateFlow walks one flow's steps in order, then analyzes the
// sequence as a whole.
func (v *FlowValidator) validateFlow(flow sysmap.UserFlow, m *sysmap.SystemMap) []models.ValidationIssue {
	var issues []models.ValidationIssue
	declared := m.DeclaredComponentSet()
	visits := make(map[string]int)

	for i, step := range flow.Steps {
		stepNo := i + 1

		if step.Component != "" {
			visits[step.Component]++
			if !declared[step.Component] && len(v.actx.CandidateFiles(step.Component)) == 0 {
				issues = append(issues, models.ValidationIssue{
					Type:     models.IssueFlowInconsistency,
					Severity: models.SeverityError,
					Message: fmt.Sprintf("flow '%s' step %d references component '%s' which is neither declared nor present in the codebase",
						flow.Name, stepNo, step.Component),
					Location: flow.Name,
				})
			} else if step.Action != "" {
				issues = append(issues, v.checkCapability(flow, stepNo, step, m)...)
			}
		}

		if step.API != "" {
			issues = append(issues, v.checkStepAPI(flow, stepNo, step)...)
			if !stepHandlesErrors(step) {
				issues = append(issues, models.ValidationIssue{
					Type:     models.IssueFlowInconsistency,
					Severity: models.SeverityWarning,
					Message: fmt.Sprintf("flow '%s' step %d calls %s without any declared error handling",
						flow.Name, stepNo, step.API),
					Location:   flow.Name,
					Suggestion: "describe how failures are handled or add an errorHandling field",
				})
			}
		}

		if !hasTerminalKeyword(step.Step) {
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueFlowInconsistency,
				Severity: models.SeverityError,
				Message: fmt.Sprintf("flow '%s' step %d is a dead end: %q names no complete/navigate/submit outcome",
					flow.Name, stepNo, step.Step),
				Location:   flow.Name,
				Suggestion: "state where the step leads, e.g. \"submits the form\" or \"navigates to the overview\"",
			})
		}
	}

	repeated := make([]string, 0)
	for name, count := range visits {
		if count >= 2 {
			repeated = append(repeated, name)
		}
	}
	sort.Strings(repeated)
	for _, name := range repeated {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueFlowInconsistency,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("flow '%s' visits component '%s' %d times (circular navigation)",
				flow.Name, name, visits[name]),
			Location: flow.Name,
		})
	}

	return issues
}

// checkStepAPI verifies the step's endpoint reference parses and is
// implemented.
func (v *FlowValidator) checkStepAPI(flow sysmap.UserFlow, stepNo int, step sysmap.FlowStep) []models.ValidationIssue {
	ep, ok := parseEndpointRef(step.API)
	if !ok {
		return []models.ValidationIssue{{
			Type:     models.IssueFlowInconsistency,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("flow '%s' step %d has an unparseable api reference %q",
				flow.Name, stepNo, step.API),
			Location: flow.Name,
		}}
	}
	if _, found := v.actx.Codebase.API(ep.Method, ep.Path); !found {
		return []models.ValidationIssue{{
			Type:     models.IssueFlowInconsistency,
			Severity: models.SeverityError,
			Message: fmt.Sprintf("flow '%s' step %d calls %s %s which is not implemented",
				flow.Name, stepNo, ep.Method, ep.Path),
			Location: flow.Name,
		}}
	}
	return nil
}

// checkCapability matches the step's action against the tokens found in
// the component's file. A mismatch is heuristic evidence only, never an
// error.
func (v *FlowValidator) checkCapability(flow sysmap.UserFlow, stepNo int, step sysmap.FlowStep, m *sysmap.SystemMap) []models.ValidationIssue {
	fp, ok := resolveComponentFile(v.actx, step.Component, m)
	if !ok {
		return nil
	}
	data, err := v.actx.ReadFile(fp)
	if err != nil {
		return nil
	}

	content := string(data)
	var capabilities []string
	for _, marker := range capabilityMarkers {
		if strings.Contains(content, marker) {
			capabilities = append(capabilities, marker)
		}
	}

	action := strings.ToLower(strings.TrimSpace(step.Action))
	for _, capability := range capabilities {
		if strings.Contains(strings.ToLower(capability), action) {
			return nil
		}
	}

	return []models.ValidationIssue{{
		Type:     models.IssueFlowInconsistency,
		Severity: models.SeverityWarning,
		Message: fmt.Sprintf("flow '%s' step %d: component '%s' exposes no capability matching action '%s' (found: %s)",
			flow.Name, stepNo, step.Component, step.Action, joinOrNone(capabilities)),
		Location: flow.Name,
	}}
}

// resolveComponentFile maps a component name to the file backing it: the
// declared path when it exists, otherwise a unique index candidate.
func resolveComponentFile(actx *AuditContext, name string, m *sysmap.SystemMap) (string, bool) {
	if comp, ok := m.Components[name]; ok && comp.Path != "" {
		fp := normalizeDocPath(comp.Path)
		if actx.FileExists(fp) {
			return fp, true
		}
	}
	if candidates := actx.CandidateFiles(name); len(candidates) == 1 {
		return candidates[0], true
	}
	return "", false
}

// validateCrossFeatureSharing counts how many features use each
// component. Shared by one or two is normal, three or four is worth a
// look, five or more is a coupling problem.
func (v *FlowValidator) validateCrossFeatureSharing(m *sysmap.SystemMap) []models.ValidationIssue {
	features := m.Features()
	if len(features) == 0 {
		return nil
	}

	sharedBy := make(map[string]map[string]bool)
	for _, feature := range features {
		key := feature.Group + "/" + feature.Name
		for _, name := range feature.Components {
			if sharedBy[name] == nil {
				sharedBy[name] = make(map[string]bool)
			}
			sharedBy[name][key] = true
		}
	}

	names := make([]string, 0, len(sharedBy))
	for name := range sharedBy {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []models.ValidationIssue
	for _, name := range names {
		users := make([]string, 0, len(sharedBy[name]))
		for f := range sharedBy[name] {
			users = append(users, f)
		}
		sort.Strings(users)

		switch n := len(users); {
		case n >= 5:
			issues = append(issues, models.ValidationIssue{
				Type:       models.IssueCrossReferenceError,
				Severity:   models.SeverityError,
				Message:    fmt.Sprintf("component '%s' is used by %d features; this coupling level is problematic", name, n),
				Location:   name,
				Suggestion: fmt.Sprintf("split '%s' per feature or promote it to a shared library layer", name),
				Metadata:   map[string]interface{}{"features": users},
			})
		case n >= 3:
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCrossReferenceError,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("component '%s' is shared by %d features", name, n),
				Location: name,
				Metadata: map[string]interface{}{"features": users},
			})
		}
	}
	return issues
}

// validateIntegrationPoints discovers environment variables referenced
// by the document's files and checks each against the audit environment.
// External HTTP endpoints are treated as reachable: probing them would
// make the audit nondeterministic.
func (v *FlowValidator) validateIntegrationPoints(ctx context.Context, m *sysmap.SystemMap) []models.ValidationIssue {
	usedBy := make(map[string]map[string]bool)

	for _, fp := range documentFiles(v.actx, m) {
		if ctx.Err() != nil {
			break
		}
		data, err := v.actx.ReadFile(fp)
		if err != nil {
			continue
		}
		for _, match := range envVarPattern.FindAllStringSubmatch(string(data), -1) {
			name := match[1]
			if runtimeProvidedEnv[name] {
				continue
			}
			if usedBy[name] == nil {
				usedBy[name] = make(map[string]bool)
			}
			usedBy[name][fp] = true
		}
	}

	names := make([]string, 0, len(usedBy))
	for name := range usedBy {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []models.ValidationIssue
	for _, name := range names {
		if _, ok := v.actx.LookupEnv(name); ok {
			continue
		}
		files := make([]string, 0, len(usedBy[name]))
		for fp := range usedBy[name] {
			files = append(files, fp)
		}
		sort.Strings(files)
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueIntegrationPointError,
			Severity: models.SeverityError,
			Message: fmt.Sprintf("environment variable %s (referenced in %s) is not set",
				name, strings.Join(files, ", ")),
			Location:   name,
			Suggestion: fmt.Sprintf("set %s in the environment or remove the dead reference", name),
		})
	}
	return issues
}

// stepHandlesErrors reports whether a step documents failure handling,
// either through its errorHandling field or its description.
func stepHandlesErrors(step sysmap.FlowStep) bool {
	if strings.TrimSpace(step.ErrorHandling) != "" {
		return true
	}
	text := strings.ToLower(step.Step)
	return strings.Contains(text, "error") || strings.Contains(text, "handle")
}

// hasTerminalKeyword reports whether a step's description names an
// outcome.
func hasTerminalKeyword(text string) bool {
	t := strings.ToLower(text)
	for _, keyword := range terminalKeywords {
		if strings.Contains(t, keyword) {
			return true
		}
	}
	return false
}
