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

// ComponentValidator checks that declared components exist where the map
// says they do, export their declared names, are actually used, and that
// declared dependencies line up with real imports.
type ComponentValidator struct {
	actx *AuditContext
	opts Options
}

// NewComponentValidator creates a component validator for one audit run.
func NewComponentValidator(actx *AuditContext, opts Options) *ComponentValidator {
	return &ComponentValidator{actx: actx, opts: opts}
}

// Name identifies the validator in logs and timing breakdowns.
func (v *ComponentValidator) Name() string { return "components" }

// Validate runs existence, dependency, and usage checks for every
// declared component in the document.
func (v *ComponentValidator) Validate(ctx context.Context, m *sysmap.SystemMap) models.ValidationResult {
	var issues []models.ValidationIssue
	checks := 0

	for _, name := range m.ComponentNames() {
		if ctx.Err() != nil {
			break
		}
		comp := m.Components[name]

		existIssues, resolved := v.validateExists(comp)
		issues = append(issues, existIssues...)
		checks++

		if resolved != "" {
			issues = append(issues, v.validateDependencies(comp, resolved, m)...)
			issues = append(issues, v.validateUsagePatterns(comp, resolved)...)
			checks += 2
		}
	}

	return models.NewResult(issues, checks, 0)
}

// validateExists resolves the declared path. A present file must export
// the declared name; a missing file triggers a candidate search by
// component name. Returns the path the remaining checks should use, or
// "" when nothing resolved.
func (v *ComponentValidator) validateExists(comp sysmap.Component) ([]models.ValidationIssue, string) {
	var issues []models.ValidationIssue

	declared := codebase.NormalizePath(comp.Path)
	if comp.Path != "" && v.actx.FileExists(declared) {
		if facts, ok := v.actx.Facts(declared); ok {
			if !exportsName(facts.Exports, comp.Name) {
				issues = append(issues, models.ValidationIssue{
					Type:       models.IssueMissingComponent,
					Severity:   models.SeverityError,
					Message:    fmt.Sprintf("component '%s' is not exported by %s (exports: %s)", comp.Name, declared, joinOrNone(facts.Exports)),
					Location:   comp.Name,
					Suggestion: fmt.Sprintf("export '%s' from %s or correct the declared name", comp.Name, declared),
				})
			}
		}
		return issues, declared
	}

	candidates := v.actx.CandidateFiles(comp.Name)
	switch len(candidates) {
	case 0:
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueMissingComponent,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("component '%s' not found at %s or anywhere in the codebase, create it", comp.Name, orUnset(declared)),
			Location: comp.Name,
		})
		return issues, ""
	case 1:
		issues = append(issues, models.ValidationIssue{
			Type:       models.IssueMissingComponent,
			Severity:   models.SeverityWarning,
			Message:    fmt.Sprintf("component '%s' not found at %s but exists at %s", comp.Name, orUnset(declared), candidates[0]),
			Location:   comp.Name,
			Suggestion: fmt.Sprintf("update the declared path to %s", candidates[0]),
		})
		return issues, candidates[0]
	default:
		issues = append(issues, models.ValidationIssue{
			Type:       models.IssueMissingComponent,
			Severity:   models.SeverityWarning,
			Message:    fmt.Sprintf("component '%s' not found at %s; multiple candidates exist: %s", comp.Name, orUnset(declared), strings.Join(candidates, ", ")),
			Location:   comp.Name,
			Suggestion: "disambiguate the declared path to one of the candidates",
			Metadata:   map[string]interface{}{"candidates": candidates},
		})
		return issues, ""
	}
}

// validateDependencies cross-checks declared dependencies against the
// resolved file's relative imports, in both directions.
func (v *ComponentValidator) validateDependencies(comp sysmap.Component, resolved string, m *sysmap.SystemMap) []models.ValidationIssue {
	var issues []models.ValidationIssue

	facts, ok := v.actx.Facts(resolved)
	if !ok {
		return nil
	}

	relative := relativeImports(facts.Imports)

	for _, dep := range comp.Dependencies {
		if importsDependency(relative, dep) {
			continue
		}
		if v.dependencyExists(dep, m) {
			issues = append(issues, models.ValidationIssue{
				Type:       models.IssueCrossReferenceError,
				Severity:   models.SeverityWarning,
				Message:    fmt.Sprintf("declared dependency '%s' exists in the codebase but is not imported by %s", dep, resolved),
				Location:   comp.Name,
				Suggestion: fmt.Sprintf("import '%s' in %s or drop it from the declared dependencies", dep, resolved),
			})
			continue
		}
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCrossReferenceError,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("declared dependency '%s' of component '%s' not found in codebase", dep, comp.Name),
			Location: comp.Name,
		})
	}

	declared := make(map[string]bool, len(comp.Dependencies))
	for _, dep := range comp.Dependencies {
		declared[strings.ToLower(dep)] = true
	}
	for _, name := range undeclaredImportNames(relative, declared) {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCrossReferenceError,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("%s imports '%s' which is not declared as a dependency of '%s'", resolved, name, comp.Name),
			Location: comp.Name,
		})
	}

	return issues
}

// validateUsagePatterns flags components nothing imports and declared
// types that disagree with the inferred one.
func (v *ComponentValidator) validateUsagePatterns(comp sysmap.Component, resolved string) []models.ValidationIssue {
	var issues []models.ValidationIssue

	if importers := v.actx.Codebase.ImportersOf(resolved); len(importers) == 0 {
		issues = append(issues, models.ValidationIssue{
			Type:     models.IssueCrossReferenceError,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("component '%s' (%s) is never imported anywhere, likely dead code", comp.Name, resolved),
			Location: comp.Name,
		})
	}

	if comp.Type != "" {
		if facts, ok := v.actx.Facts(resolved); ok && facts.Type != "" && !strings.EqualFold(comp.Type, facts.Type) {
			issues = append(issues, models.ValidationIssue{
				Type:     models.IssueCrossReferenceError,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("component '%s' is declared as '%s' but looks like a '%s'", comp.Name, comp.Type, facts.Type),
				Location: comp.Name,
			})
		}
	}

	return issues
}

// dependencyExists reports whether a declared dependency resolves to
// anything: another declared component with a real file, or any codebase
// candidate.
func (v *ComponentValidator) dependencyExists(dep string, m *sysmap.SystemMap) bool {
	if depComp, ok := m.Components[dep]; ok && depComp.Path != "" {
		if v.actx.FileExists(depComp.Path) {
			return true
		}
	}
	return len(v.actx.CandidateFiles(dep)) > 0
}

// exportsName reports whether the export list carries the name directly
// or via a default export.
func exportsName(exports []string, name string) bool {
	for _, e := range exports {
		if e == name || e == "default" {
			return true
		}
	}
	return false
}

// relativeImports filters an import list down to relative and
// source-root-alias specifiers, the only ones that can reference another
// component file.
func relativeImports(imports []codebase.ImportInfo) []codebase.ImportInfo {
	var rel []codebase.ImportInfo
	for _, imp := range imports {
		if strings.HasPrefix(imp.Module, ".") ||
			strings.HasPrefix(imp.Module, "@/") ||
			strings.HasPrefix(imp.Module, "~/") {
			rel = append(rel, imp)
		}
	}
	return rel
}

// importsDependency reports whether any relative import binds the
// dependency by specifier name or by module path stem.
func importsDependency(imports []codebase.ImportInfo, dep string) bool {
	for _, imp := range imports {
		for _, spec := range imp.Specifiers {
			if strings.EqualFold(spec, dep) {
				return true
			}
		}
		stem := path.Base(imp.Module)
		stem = strings.TrimSuffix(stem, path.Ext(stem))
		if strings.EqualFold(stem, dep) {
			return true
		}
	}
	return false
}

// undeclaredImportNames returns the sorted names of relative imports the
// declaration leaves out. Each import contributes its first bound
// specifier, falling back to the module path stem.
func undeclaredImportNames(imports []codebase.ImportInfo, declared map[string]bool) []string {
	seen := make(map[string]bool)
	var names []string
	for _, imp := range imports {
		name := ""
		if len(imp.Specifiers) > 0 {
			name = imp.Specifiers[0]
		} else {
			stem := path.Base(imp.Module)
			name = strings.TrimSuffix(stem, path.Ext(stem))
		}
		if name == "" || declared[strings.ToLower(name)] || seen[name] {
			continue
		}
		// Style and asset imports are not component dependencies.
		if isAssetModule(imp.Module) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isAssetModule reports whether an import specifier points at a style or
// asset file rather than code.
func isAssetModule(module string) bool {
	switch strings.ToLower(path.Ext(module)) {
	case ".css", ".scss", ".sass", ".less", ".svg", ".png", ".jpg", ".jpeg", ".gif", ".json":
		return true
	default:
		return false
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orUnset(p string) string {
	if p == "" || p == "." {
		return "(no declared path)"
	}
	return p
}
