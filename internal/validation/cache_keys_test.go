package validation

import (
	"context"
	"reflect"
	"testing"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

func semanticFixture(t *testing.T, files map[string]string) (*SemanticCacheValidator, *sysmap.SystemMap) {
	t.Helper()
	actx := writeProject(t, files)
	comps := make([]sysmap.Component, 0, len(files))
	for rel := range files {
		comps = append(comps, sysmap.Component{Name: rel, Path: rel})
	}
	return NewSemanticCacheValidator(actx, DefaultOptions()), mapWithComponents(comps...)
}

func TestSemanticCacheValidator_DuplicateSpellings(t *testing.T) {
	v, m := semanticFixture(t, map[string]string{
		"src/hooks/useSettings.ts": `export function useSettings() {
  return useQuery({ queryKey: ['user-settings'] });
}
`,
		"src/hooks/useSaveSettings.ts": `export function useSaveSettings() {
  return useMutation({
    onSuccess: () => queryClient.invalidateQueries({ queryKey: ['userSettings'] }),
  });
}
`,
	})

	res := v.Validate(context.Background(), m)
	if len(res.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(res.Issues), res.Issues)
	}
	issue := res.Issues[0]
	if issue.Type != models.IssueCacheKeyInconsistency || issue.Severity != models.SeverityWarning {
		t.Errorf("got %s/%s, want cache-key-inconsistency/warning", issue.Type, issue.Severity)
	}
	spellings, ok := issue.Metadata["spellings"].([]string)
	if !ok || !reflect.DeepEqual(spellings, []string{"user-settings", "userSettings"}) {
		t.Errorf("spellings = %v", issue.Metadata["spellings"])
	}
}

func TestSemanticCacheValidator_ReadButNeverInvalidated(t *testing.T) {
	v, m := semanticFixture(t, map[string]string{
		"src/pages/RecipeList.tsx": `export function RecipeList() {
  const { data } = useQuery({ queryKey: ['/api/recipes'] });
  return data;
}
`,
		"src/pages/RecipeDetail.tsx": `export function RecipeDetail() {
  const { data } = useQuery(['/api/recipes'], fetchRecipes);
  return data;
}
`,
	})

	res := v.Validate(context.Background(), m)
	warnings := issuesOfSeverity(res.Issues, models.SeverityWarning)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %+v", len(warnings), res.Issues)
	}
	if warnings[0].Location != "src/pages/RecipeDetail.tsx" {
		t.Errorf("Location = %q, want the first reading file", warnings[0].Location)
	}
	if !res.Passed {
		t.Error("key hygiene findings must not fail the audit")
	}
}

func TestSemanticCacheValidator_InvalidatedButNeverRead(t *testing.T) {
	v, m := semanticFixture(t, map[string]string{
		"src/hooks/useClearAudit.ts": `export function useClearAudit() {
  return useMutation({
    onSuccess: () => queryClient.invalidateQueries({ queryKey: ['/api/audit-log'] }),
  });
}
`,
	})

	res := v.Validate(context.Background(), m)
	infos := issuesOfSeverity(res.Issues, models.SeverityInfo)
	if len(infos) != 1 {
		t.Fatalf("got %d infos, want 1: %+v", len(infos), res.Issues)
	}
	if got := len(issuesOfSeverity(res.Issues, models.SeverityWarning)); got != 0 {
		t.Errorf("got %d warnings, want 0", got)
	}
}

func TestSemanticCacheValidator_BalancedKeysAreClean(t *testing.T) {
	tests := []struct {
		name        string
		invalidates string
	}{
		{name: "exact key", invalidates: "/api/health-data"},
		{name: "parent key covers child reads", invalidates: "/api/health-data/overview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, m := semanticFixture(t, map[string]string{
				"src/pages/HealthA.tsx": `export function HealthA() {
  return useQuery({ queryKey: ['/api/health-data'] });
}
`,
				"src/pages/HealthB.tsx": `export function HealthB() {
  return useQuery({ queryKey: ['/api/health-data'] });
}
`,
				"src/hooks/useImport.ts": `export function useImport() {
  return useMutation({
    onSuccess: () => queryClient.invalidateQueries({ queryKey: ['` + tt.invalidates + `'] }),
  });
}
`,
			})

			res := v.Validate(context.Background(), m)
			warnings := issuesOfSeverity(res.Issues, models.SeverityWarning)
			if len(warnings) != 0 {
				t.Errorf("got %d warnings, want 0: %+v", len(warnings), warnings)
			}
		})
	}
}
