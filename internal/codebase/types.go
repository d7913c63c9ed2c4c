// Package codebase builds the indexed view of a scanned project: which
// files exist, what they export and import, and which API routes they
// register. Validators consume the index instead of re-reading the tree.
package codebase

import (
	"path"
	"sort"
	"strings"
)

// ImportInfo describes one import statement found in a source file.
type ImportInfo struct {
	// Module is the import specifier as written, e.g. "./MemoryList"
	// or "react-query".
	Module string `json:"module"`
	// Specifiers lists the names bound by the import.
	Specifiers []string `json:"specifiers,omitempty"`
	// IsDefault is true when the import binds the module's default export.
	IsDefault bool `json:"isDefault,omitempty"`
}

// ComponentInfo holds the structural facts extracted from one file.
type ComponentInfo struct {
	// Exports lists the names the file exports. A default export with no
	// usable name is recorded as "default".
	Exports []string `json:"exports,omitempty"`
	// Imports lists the file's import statements.
	Imports []ImportInfo `json:"imports,omitempty"`
	// Type classifies the file: component, page, hook, service, route,
	// or util.
	Type string `json:"type"`
}

// APIInfo describes one API route registration found during scanning.
type APIInfo struct {
	// Method is the HTTP method in upper case.
	Method string `json:"method"`
	// Endpoint is the registered path, e.g. "/api/memories".
	Endpoint string `json:"endpoint"`
	// HandlerFile is the file that registers the route, relative to the
	// scan root.
	HandlerFile string `json:"handlerFile"`
}

// ParsedCodebase is the queryable result of a scan. Component keys are
// slash-separated paths relative to the scan root; API keys combine
// method and path as produced by EndpointKey.
type ParsedCodebase struct {
	Components map[string]ComponentInfo `json:"components"`
	APIs       map[string]APIInfo       `json:"apis"`
}

// NewParsedCodebase returns an empty index.
func NewParsedCodebase() *ParsedCodebase {
	return &ParsedCodebase{
		Components: make(map[string]ComponentInfo),
		APIs:       make(map[string]APIInfo),
	}
}

// EndpointKey builds the canonical API map key, e.g. "GET /api/memories".
func EndpointKey(method, endpoint string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(endpoint)
}

// Component looks up a file by path, tolerating Windows separators and
// a leading "./".
func (p *ParsedCodebase) Component(filePath string) (ComponentInfo, bool) {
	info, ok := p.Components[NormalizePath(filePath)]
	return info, ok
}

// API looks up a route by method and endpoint path. Routes registered
// for all methods (app.all) satisfy any method.
func (p *ParsedCodebase) API(method, endpoint string) (APIInfo, bool) {
	if info, ok := p.APIs[EndpointKey(method, endpoint)]; ok {
		return info, true
	}
	info, ok := p.APIs[EndpointKey("ALL", endpoint)]
	return info, ok
}

// ComponentPaths returns every indexed file path in sorted order.
func (p *ParsedCodebase) ComponentPaths() []string {
	paths := make([]string, 0, len(p.Components))
	for fp := range p.Components {
		paths = append(paths, fp)
	}
	sort.Strings(paths)
	return paths
}

// EndpointKeys returns every indexed route key in sorted order.
func (p *ParsedCodebase) EndpointKeys() []string {
	keys := make([]string, 0, len(p.APIs))
	for k := range p.APIs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ImportersOf returns the sorted paths of files whose imports resolve to
// target. Only relative and source-root-alias specifiers are resolved;
// package imports never match a file.
func (p *ParsedCodebase) ImportersOf(target string) []string {
	target = NormalizePath(target)
	targetNoExt := stripExt(target)

	var importers []string
	for fp, info := range p.Components {
		if fp == target {
			continue
		}
		for _, imp := range info.Imports {
			if importResolvesTo(fp, imp.Module, target, targetNoExt) {
				importers = append(importers, fp)
				break
			}
		}
	}
	sort.Strings(importers)
	return importers
}

// NormalizePath canonicalizes a file path for index lookups: forward
// slashes, no leading "./".
func NormalizePath(filePath string) string {
	fp := strings.ReplaceAll(strings.TrimSpace(filePath), "\\", "/")
	fp = strings.TrimPrefix(fp, "./")
	return path.Clean(fp)
}

func stripExt(fp string) string {
	ext := path.Ext(fp)
	return strings.TrimSuffix(fp, ext)
}

// importResolvesTo reports whether an import specifier written in "from"
// refers to the target file. Relative specifiers resolve against the
// importing file's directory; "@/" and "~/" aliases resolve against the
// conventional src root.
func importResolvesTo(from, module, target, targetNoExt string) bool {
	var resolved string
	switch {
	case strings.HasPrefix(module, "."):
		resolved = path.Clean(path.Join(path.Dir(from), module))
	case strings.HasPrefix(module, "@/"):
		resolved = path.Clean("src/" + strings.TrimPrefix(module, "@/"))
	case strings.HasPrefix(module, "~/"):
		resolved = path.Clean("src/" + strings.TrimPrefix(module, "~/"))
	default:
		return false
	}

	if resolved == target || resolved == targetNoExt {
		return true
	}
	// Directory imports resolve to the directory's index file.
	return targetNoExt == resolved+"/index"
}
