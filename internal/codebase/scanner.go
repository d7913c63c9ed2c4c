package codebase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the largest file the scanner will read. Larger
// files are skipped so a stray bundle or lockfile cannot stall a scan.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// DefaultExtensions are the source extensions indexed when no override
// is configured.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{
	".git", "node_modules", "dist", "build", "out",
	"coverage", ".next", ".cache", "vendor", "tmp",
}

// Scanner walks a project tree and builds a ParsedCodebase from the
// facts its extractor finds in each source file.
type Scanner struct {
	root        string
	extractor   FactExtractor
	extensions  map[string]bool
	skipDirs    map[string]bool
	maxFileSize int64
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// NewScanner creates a scanner rooted at the given directory with
// default extensions, skip list, and size limit.
func NewScanner(root string, extractor FactExtractor) *Scanner {
	s := &Scanner{
		root:        root,
		extractor:   extractor,
		extensions:  make(map[string]bool),
		skipDirs:    make(map[string]bool),
		maxFileSize: DefaultMaxFileSize,
		debugLog:    func(format string, args ...interface{}) {}, // no-op by default
	}
	s.SetExtensions(DefaultExtensions)
	s.SetSkipDirs(DefaultSkipDirs)
	return s
}

// SetDebugLog sets the debug logging function.
func (s *Scanner) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// SetExtensions replaces the set of indexed file extensions.
func (s *Scanner) SetExtensions(exts []string) {
	s.extensions = make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.extensions[ext] = true
	}
}

// SetSkipDirs replaces the set of directory names excluded from the walk.
func (s *Scanner) SetSkipDirs(dirs []string) {
	s.skipDirs = make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			s.skipDirs[dir] = true
		}
	}
}

// SetMaxFileSize overrides the per-file read limit in bytes.
func (s *Scanner) SetMaxFileSize(n int64) {
	if n > 0 {
		s.maxFileSize = n
	}
}

// Scan walks the root and returns the indexed codebase. Unreadable files
// are skipped; only a walk-level failure is returned as an error.
func (s *Scanner) Scan() (*ParsedCodebase, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", s.root)
	}

	pc := NewParsedCodebase()
	skipped := 0

	err = filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		if info.IsDir() {
			name := info.Name()
			if s.skipDirs[name] || (strings.HasPrefix(name, ".") && name != "." && path != s.root) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !s.extensions[ext] {
			return nil
		}

		if info.Size() > s.maxFileSize {
			skipped++
			s.debugLog("[scanner.Scan] skipping oversized file: %s (%d bytes)", path, info.Size())
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		relPath = NormalizePath(relPath)

		src, err := os.ReadFile(path)
		if err != nil {
			s.debugLog("[scanner.Scan] unreadable file: %s: %v", path, err)
			return nil
		}

		facts := s.extractor.Extract(relPath, src)
		pc.Components[relPath] = ComponentInfo{
			Exports: facts.Exports,
			Imports: facts.Imports,
			Type:    facts.Type,
		}
		for _, route := range facts.Routes {
			key := EndpointKey(route.Method, route.Path)
			if existing, ok := pc.APIs[key]; ok {
				// Duplicate registrations keep the lexically smallest
				// handler path.
				if relPath < existing.HandlerFile {
					existing.HandlerFile = relPath
					pc.APIs[key] = existing
				}
				continue
			}
			pc.APIs[key] = APIInfo{
				Method:      strings.ToUpper(route.Method),
				Endpoint:    route.Path,
				HandlerFile: relPath,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}

	s.debugLog("[scanner.Scan] indexed %d files, %d routes, skipped %d oversized",
		len(pc.Components), len(pc.APIs), skipped)
	return pc, nil
}

// Summary describes an index for human output: counts per file type and
// totals, with deterministic ordering.
type Summary struct {
	Files     int            `json:"files"`
	Routes    int            `json:"routes"`
	ByType    map[string]int `json:"byType"`
	TypeOrder []string       `json:"-"`
}

// Summarize computes index counts for reporting.
func Summarize(pc *ParsedCodebase) Summary {
	sum := Summary{
		Files:  len(pc.Components),
		Routes: len(pc.APIs),
		ByType: make(map[string]int),
	}
	for _, info := range pc.Components {
		sum.ByType[info.Type]++
	}
	for t := range sum.ByType {
		sum.TypeOrder = append(sum.TypeOrder, t)
	}
	sort.Strings(sum.TypeOrder)
	return sum
}
