package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/config"
	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

// auditPipeline bundles everything one audit pass needs: scan the
// codebase, load every discovered system map, run the validator suite,
// and wrap the outcome in a report. Build it once; watch reuses it per
// cycle.
type auditPipeline struct {
	root    string
	cfg     *config.Config
	opts    validation.Options
	mapsDir string
	// debug traces pipeline stages to stderr; nil disables tracing.
	debug func(format string, args ...interface{})
}

func (p *auditPipeline) run(ctx context.Context) (report.Report, error) {
	scanner := codebase.NewScanner(p.root, codebase.NewRegexExtractor())
	scanner.SetDebugLog(p.debug)
	p.cfg.Scan.ApplyTo(scanner)
	cb, err := scanner.Scan()
	if err != nil {
		return report.Report{}, fmt.Errorf("scan %s: %w", p.root, err)
	}

	dir, err := p.resolveMapsDir()
	if err != nil {
		return report.Report{}, err
	}
	paths, err := sysmap.Discover(dir)
	if err != nil {
		return report.Report{}, err
	}
	if len(paths) == 0 {
		return report.Report{}, fmt.Errorf("no system map documents under %s", dir)
	}

	docs, failures := p.loadDocuments(paths)

	orch := validation.NewOrchestrator(validation.NewAuditContext(p.root, cb), p.opts)
	orch.SetParallelism(p.cfg.Audit.Parallelism)
	orch.SetDocTimeout(p.cfg.Audit.DocTimeout)
	orch.SetDebugLog(p.debug)
	run := orch.Run(ctx, docs)

	if len(failures) > 0 {
		run.Documents = append(run.Documents, failures...)
		sort.SliceStable(run.Documents, func(i, j int) bool {
			return run.Documents[i].MapPath < run.Documents[j].MapPath
		})
		run.Passed = false
	}

	return report.New(p.root, run), nil
}

// resolveMapsDir picks where to look for documents: the explicit
// override first, then the configured directory when it exists, then
// the default search locations.
func (p *auditPipeline) resolveMapsDir() (string, error) {
	if p.mapsDir != "" {
		dir := p.absPath(p.mapsDir)
		if _, err := os.Stat(dir); err != nil {
			return "", fmt.Errorf("maps path: %w", err)
		}
		return dir, nil
	}
	if p.cfg.Audit.MapsDir != "" {
		dir := p.absPath(p.cfg.Audit.MapsDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return sysmap.FindMapsDir(p.root)
}

// loadDocuments loads every discovered document. A document that fails
// to load becomes one failed result so the rest of the audit still
// runs. Loaded documents are re-labeled relative to the audited root.
func (p *auditPipeline) loadDocuments(paths []string) ([]*sysmap.SystemMap, []validation.DocumentResult) {
	var docs []*sysmap.SystemMap
	var failures []validation.DocumentResult
	for _, path := range paths {
		label := p.relPath(path)
		m, err := sysmap.LoadFile(path)
		if err != nil {
			failures = append(failures, validation.DocumentResult{
				MapPath: label,
				MapName: docStem(path),
				Result: models.NewResult([]models.ValidationIssue{{
					Type:       models.IssueCrossReferenceError,
					Severity:   models.SeverityError,
					Message:    err.Error(),
					Location:   label,
					Suggestion: "fix or remove the document",
				}}, 1, 0),
			})
			continue
		}
		m.Path = label
		docs = append(docs, m)
	}
	return docs, failures
}

// absPath resolves a path from the config or flags against the audited
// root.
func (p *auditPipeline) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.root, path)
}

// relPath renders a document path relative to the audited root when it
// is inside it.
func (p *auditPipeline) relPath(path string) string {
	rel, err := filepath.Rel(p.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// docStem names a document by its file name without the extension.
func docStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
