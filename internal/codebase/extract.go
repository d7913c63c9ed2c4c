package codebase

import (
	"path"
	"regexp"
	"strings"
)

// FactExtractor extracts structural facts from one source file. The
// default implementation scans with regular expressions; validators only
// depend on the facts, so a syntax-aware extractor can be swapped in
// without touching them.
type FactExtractor interface {
	Extract(filePath string, src []byte) FileFacts
}

// RouteFact is one API route registration found in a file.
type RouteFact struct {
	Method string
	Path   string
}

// FileFacts is everything an extractor learned about one file.
type FileFacts struct {
	Exports []string
	Imports []ImportInfo
	Routes  []RouteFact
	Type    string
}

// Extraction patterns for TypeScript/JavaScript sources. Declaration
// scanning is line-oriented; imports may span lines and are matched
// against the whole file.
var (
	exportDeclPattern    = regexp.MustCompile(`^\s*export\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	exportDefaultPattern = regexp.MustCompile(`^\s*export\s+default\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*;?\s*$`)
	exportListPattern    = regexp.MustCompile(`^\s*export\s*\{([^}]*)\}`)
	exportAnonPattern    = regexp.MustCompile(`^\s*export\s+default\s+(?:async\s+)?(?:function\s*\(|\(|\{|class[\s{])`)

	importFromPattern = regexp.MustCompile(`import\s+([^'"]+?)\s+from\s*['"]([^'"]+)['"]`)
	importBarePattern = regexp.MustCompile(`import\s*['"]([^'"]+)['"]`)
	requirePattern    = regexp.MustCompile(`(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)

	routePattern = regexp.MustCompile("(?:app|router|server|api)\\.(get|post|put|patch|delete|options|head|all)\\s*\\(\\s*[`'\"]([^`'\"]+)[`'\"]")

	jsxReturnPattern = regexp.MustCompile(`return\s*\(?\s*<[A-Za-z>]`)
)

// RegexExtractor extracts facts from TypeScript and JavaScript sources
// using the patterns above.
type RegexExtractor struct{}

var _ FactExtractor = (*RegexExtractor)(nil)

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract scans one file's contents for exports, imports, and route
// registrations, then classifies the file.
func (e *RegexExtractor) Extract(filePath string, src []byte) FileFacts {
	content := string(src)
	facts := FileFacts{
		Exports: extractExports(content),
		Imports: extractImports(content),
		Routes:  extractRoutes(content),
	}
	facts.Type = classifyFile(filePath, content, facts)
	return facts
}

func extractExports(content string) []string {
	var exports []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		exports = append(exports, name)
	}

	for _, line := range strings.Split(content, "\n") {
		if m := exportDeclPattern.FindStringSubmatch(line); m != nil {
			add(m[1])
			continue
		}
		if m := exportDefaultPattern.FindStringSubmatch(line); m != nil {
			add(m[1])
			continue
		}
		if m := exportListPattern.FindStringSubmatch(line); m != nil {
			for _, entry := range strings.Split(m[1], ",") {
				entry = strings.TrimSpace(entry)
				if entry == "" {
					continue
				}
				// "a as b" exports b.
				if idx := strings.LastIndex(entry, " as "); idx >= 0 {
					entry = strings.TrimSpace(entry[idx+4:])
				}
				add(entry)
			}
			continue
		}
		if exportAnonPattern.MatchString(line) {
			add("default")
		}
	}
	return exports
}

func extractImports(content string) []ImportInfo {
	var imports []ImportInfo
	seen := make(map[string]bool)

	for _, m := range importFromPattern.FindAllStringSubmatch(content, -1) {
		clause, module := m[1], m[2]
		info := parseImportClause(clause, module)
		key := module + "|" + strings.Join(info.Specifiers, ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		imports = append(imports, info)
	}

	for _, m := range requirePattern.FindAllStringSubmatch(content, -1) {
		name, module := m[1], m[2]
		key := module + "|" + name
		if seen[key] {
			continue
		}
		seen[key] = true
		imports = append(imports, ImportInfo{
			Module:     module,
			Specifiers: []string{name},
			IsDefault:  true,
		})
	}

	// Bare side-effect imports, e.g. import "./styles.css". The pattern
	// also matches the tail of a from-clause, so skip modules already seen.
	known := make(map[string]bool)
	for _, imp := range imports {
		known[imp.Module] = true
	}
	for _, m := range importBarePattern.FindAllStringSubmatch(content, -1) {
		module := m[1]
		if known[module] {
			continue
		}
		known[module] = true
		imports = append(imports, ImportInfo{Module: module})
	}

	return imports
}

// parseImportClause splits the text between "import" and "from" into
// default, namespace, and named bindings.
func parseImportClause(clause, module string) ImportInfo {
	info := ImportInfo{Module: module}
	clause = strings.TrimSpace(clause)

	// Type-only imports bind no runtime name but still reference the module.
	clause = strings.TrimPrefix(clause, "type ")

	if strings.HasPrefix(clause, "* as ") {
		info.Specifiers = append(info.Specifiers, strings.TrimSpace(strings.TrimPrefix(clause, "* as ")))
		return info
	}

	named := ""
	if open := strings.Index(clause, "{"); open >= 0 {
		if close := strings.Index(clause, "}"); close > open {
			named = clause[open+1 : close]
		}
		clause = strings.TrimSpace(clause[:open])
		clause = strings.TrimSpace(strings.TrimSuffix(clause, ","))
	}

	if clause != "" {
		info.IsDefault = true
		info.Specifiers = append(info.Specifiers, clause)
	}

	for _, entry := range strings.Split(named, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if idx := strings.LastIndex(entry, " as "); idx >= 0 {
			entry = strings.TrimSpace(entry[idx+4:])
		}
		info.Specifiers = append(info.Specifiers, entry)
	}
	return info
}

func extractRoutes(content string) []RouteFact {
	var routes []RouteFact
	seen := make(map[string]bool)
	for _, m := range routePattern.FindAllStringSubmatch(content, -1) {
		method := strings.ToUpper(m[1])
		key := method + " " + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		routes = append(routes, RouteFact{Method: method, Path: m[2]})
	}
	return routes
}

// classifyFile infers a file's role from its path, then from its content.
func classifyFile(filePath, content string, facts FileFacts) string {
	fp := NormalizePath(filePath)
	base := path.Base(fp)
	name := strings.TrimSuffix(base, path.Ext(base))
	lower := "/" + strings.ToLower(fp)

	switch {
	case len(facts.Routes) > 0:
		return "route"
	case strings.Contains(lower, "/routes/"):
		return "route"
	case strings.Contains(lower, "/pages/") || strings.HasSuffix(name, "Page"):
		return "page"
	case strings.Contains(lower, "/hooks/") || isHookName(name):
		return "hook"
	case strings.Contains(lower, "/services/") || strings.HasSuffix(name, "Service") || strings.HasSuffix(name, "Client"):
		return "service"
	case strings.Contains(lower, "/components/"):
		return "component"
	case jsxReturnPattern.MatchString(content):
		return "component"
	default:
		return "util"
	}
}

// isHookName matches the React convention useXxx.
func isHookName(name string) bool {
	return len(name) > 3 && strings.HasPrefix(name, "use") && name[3] >= 'A' && name[3] <= 'Z'
}
