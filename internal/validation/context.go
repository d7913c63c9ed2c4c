// Package validation implements the drift checks that compare declared
// system maps against the indexed codebase: component existence and
// wiring, API surface, cache invalidation chains, flow sequencing, UI
// refresh completeness, and integration evidence. The orchestrator runs
// the applicable validators per document and merges their results.
package validation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/similarity"
)

// AuditContext is the shared, effectively immutable state every
// validator receives: project root, codebase index, similarity scorer,
// and fact extractor. File reads are cached and size-bounded. Construct
// one per audit run.
type AuditContext struct {
	// Root is the scanned project's root directory.
	Root string
	// Codebase is the index built by the scanner.
	Codebase *codebase.ParsedCodebase
	// Scorer provides fuzzy matching shared by all validators.
	Scorer *similarity.Scorer
	// Extractor parses facts from files read on demand.
	Extractor codebase.FactExtractor
	// MaxFileBytes bounds every on-demand file read.
	MaxFileBytes int64
	// LookupEnv resolves environment variables; swap in tests.
	LookupEnv func(key string) (string, bool)
	// Now supplies the clock used for evidence freshness; swap in tests.
	Now func() time.Time

	mu        sync.Mutex
	fileCache map[string][]byte
	factCache map[string]*codebase.FileFacts
}

// NewAuditContext builds a context with default scorer, extractor, read
// limit, environment, and clock.
func NewAuditContext(root string, cb *codebase.ParsedCodebase) *AuditContext {
	return &AuditContext{
		Root:         root,
		Codebase:     cb,
		Scorer:       similarity.NewScorer(),
		Extractor:    codebase.NewRegexExtractor(),
		MaxFileBytes: codebase.DefaultMaxFileSize,
		LookupEnv:    os.LookupEnv,
		Now:          time.Now,
		fileCache:    make(map[string][]byte),
		factCache:    make(map[string]*codebase.FileFacts),
	}
}

// ResolvePath joins a root-relative path to an absolute one.
func (c *AuditContext) ResolvePath(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(codebase.NormalizePath(rel)))
}

// FileExists reports whether a root-relative path is in the index or on
// disk.
func (c *AuditContext) FileExists(rel string) bool {
	if _, ok := c.Codebase.Component(rel); ok {
		return true
	}
	info, err := os.Stat(c.ResolvePath(rel))
	return err == nil && !info.IsDir()
}

// ReadFile returns a root-relative file's contents, cached for the run.
// Reads are capped at MaxFileBytes; a larger file is an error so one
// pathological input fails loudly instead of stalling the audit.
func (c *AuditContext) ReadFile(rel string) ([]byte, error) {
	key := codebase.NormalizePath(rel)

	c.mu.Lock()
	if data, ok := c.fileCache[key]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	f, err := os.Open(c.ResolvePath(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.MaxFileBytes {
		return nil, fmt.Errorf("read %s: file exceeds %d bytes", rel, c.MaxFileBytes)
	}

	c.mu.Lock()
	c.fileCache[key] = data
	c.mu.Unlock()
	return data, nil
}

// Facts returns the extracted facts for a root-relative path, preferring
// the index and falling back to an on-demand extraction for files the
// scan did not cover.
func (c *AuditContext) Facts(rel string) (codebase.FileFacts, bool) {
	key := codebase.NormalizePath(rel)

	if info, ok := c.Codebase.Component(key); ok {
		return codebase.FileFacts{
			Exports: info.Exports,
			Imports: info.Imports,
			Type:    info.Type,
		}, true
	}

	c.mu.Lock()
	if facts, ok := c.factCache[key]; ok {
		c.mu.Unlock()
		if facts == nil {
			return codebase.FileFacts{}, false
		}
		return *facts, true
	}
	c.mu.Unlock()

	data, err := c.ReadFile(key)
	if err != nil {
		c.mu.Lock()
		c.factCache[key] = nil
		c.mu.Unlock()
		return codebase.FileFacts{}, false
	}

	facts := c.Extractor.Extract(key, data)
	c.mu.Lock()
	c.factCache[key] = &facts
	c.mu.Unlock()
	return facts, true
}

// CandidateFiles returns indexed paths that plausibly implement the
// named component: the file stem matches the name, or the file exports
// it. Results are sorted.
func (c *AuditContext) CandidateFiles(name string) []string {
	if name == "" {
		return nil
	}
	var candidates []string
	for _, fp := range c.Codebase.ComponentPaths() {
		base := filepath.Base(fp)
		stem := base[:len(base)-len(filepath.Ext(base))]
		if strings.EqualFold(stem, name) {
			candidates = append(candidates, fp)
			continue
		}
		info := c.Codebase.Components[fp]
		for _, export := range info.Exports {
			if export == name {
				candidates = append(candidates, fp)
				break
			}
		}
	}
	return candidates
}
