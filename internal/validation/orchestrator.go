package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// DefaultParallelism bounds how many documents validate concurrently.
const DefaultParallelism = 4

// DefaultDocTimeout is the wall-clock budget for one document.
const DefaultDocTimeout = 30 * time.Second

// DocumentResult is the outcome of validating one system map document.
type DocumentResult struct {
	// MapPath is where the document was loaded from.
	MapPath string `json:"mapPath"`
	// MapName is the document's declared name.
	MapName string `json:"mapName"`
	// Result carries every issue the validator suite produced.
	Result models.ValidationResult `json:"result"`
	// Features is the per-feature integration rollup; empty for
	// standard-format documents.
	Features []models.FeatureIntegrationStatus `json:"features,omitempty"`
}

// RunResult aggregates one audit run over all documents.
type RunResult struct {
	// Documents holds one entry per input document, ordered by path.
	Documents []DocumentResult `json:"documents"`
	// Orphans lists implemented endpoints no document declares.
	Orphans models.ValidationResult `json:"orphans"`
	// Passed is the conjunction of every document's result. Orphan
	// findings are informational and never affect it.
	Passed bool `json:"passed"`
}

// Totals sums check counts and execution time across the documents and
// the orphan scan.
func (r RunResult) Totals() models.ValidationMetrics {
	total := models.ValidationMetrics{
		ChecksPerformed: r.Orphans.Metrics.ChecksPerformed,
		ExecutionTime:   r.Orphans.Metrics.ExecutionTime,
	}
	for _, doc := range r.Documents {
		total.ChecksPerformed += doc.Result.Metrics.ChecksPerformed
		total.ExecutionTime += doc.Result.Metrics.ExecutionTime
	}
	return total
}

// IssueCount returns how many issues of one severity the run produced,
// orphan findings included.
func (r RunResult) IssueCount(sev models.Severity) int {
	n := models.CountBySeverity(r.Orphans.Issues, sev)
	for _, doc := range r.Documents {
		n += models.CountBySeverity(doc.Result.Issues, sev)
	}
	return n
}

// Orchestrator runs the full validator suite over a set of system map
// documents. Documents have no data dependency on each other, so they
// validate on a bounded worker pool; workers share only the immutable
// audit context. The orchestrator is total over its input: validator
// panics, unreadable files, and budget overruns surface as error issues
// on the affected document, never as a crash.
type Orchestrator struct {
	actx *AuditContext
	opts Options

	// parallelism bounds concurrent document validations.
	parallelism int
	// docTimeout is the wall-clock budget per document; zero disables it.
	docTimeout time.Duration
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// NewOrchestrator creates an orchestrator with default parallelism and
// per-document budget.
func NewOrchestrator(actx *AuditContext, opts Options) *Orchestrator {
	return &Orchestrator{
		actx:        actx,
		opts:        opts,
		parallelism: DefaultParallelism,
		docTimeout:  DefaultDocTimeout,
		debugLog:    func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetParallelism bounds how many documents validate at once.
func (o *Orchestrator) SetParallelism(n int) {
	if n > 0 {
		o.parallelism = n
	}
}

// SetDocTimeout overrides the per-document wall-clock budget. Zero
// disables the budget.
func (o *Orchestrator) SetDocTimeout(d time.Duration) {
	if d >= 0 {
		o.docTimeout = d
	}
}

// SetDebugLog sets the debug logging function.
func (o *Orchestrator) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		o.debugLog = fn
	}
}

// Run validates every document and performs one orphan scan across the
// union of their declared endpoints. Output ordering is independent of
// worker scheduling.
func (o *Orchestrator) Run(ctx context.Context, docs []*sysmap.SystemMap) RunResult {
	run := RunResult{Passed: true, Orphans: models.NewResult(nil, 0, 0)}

	if len(docs) > 0 {
		results := make([]DocumentResult, len(docs))
		jobs := make(chan int)
		var wg sync.WaitGroup

		workers := o.parallelism
		if workers < 1 {
			workers = 1
		}
		if workers > len(docs) {
			workers = len(docs)
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = o.validateDocument(ctx, docs[i])
				}
			}()
		}
		for i := range docs {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		sort.SliceStable(results, func(i, j int) bool {
			if results[i].MapPath != results[j].MapPath {
				return results[i].MapPath < results[j].MapPath
			}
			return results[i].MapName < results[j].MapName
		})
		for i := range results {
			if !results[i].Result.Passed {
				run.Passed = false
			}
		}
		run.Documents = results
	}

	if o.opts.CheckOrphans {
		declared := make(map[string]bool)
		for _, m := range docs {
			for _, key := range DeclaredEndpointKeys(m) {
				declared[key] = true
			}
		}
		run.Orphans = NewAPIValidator(o.actx, o.opts).FindOrphans(declared)
	}

	return run
}

// validateDocument runs one document's suite under the wall-clock
// budget. On overrun the in-flight goroutine is abandoned to finish on
// its own; its work is discarded.
func (o *Orchestrator) validateDocument(ctx context.Context, m *sysmap.SystemMap) DocumentResult {
	if o.docTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.docTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	var doc DocumentResult
	go func() {
		defer close(done)
		doc = o.runSuite(ctx, m)
	}()

	select {
	case <-done:
		return doc
	case <-ctx.Done():
		o.debugLog("[orchestrator.validateDocument] %s: %v", documentLabel(m), ctx.Err())
		return DocumentResult{
			MapPath: m.Path,
			MapName: m.Name,
			Result: models.NewResult([]models.ValidationIssue{{
				Type:       models.IssueCrossReferenceError,
				Severity:   models.SeverityError,
				Message:    fmt.Sprintf("validation of %s did not finish within budget: %v", documentLabel(m), ctx.Err()),
				Location:   documentLabel(m),
				Suggestion: "raise the per-document timeout or split the document",
			}}, 0, 0),
		}
	}
}

// runSuite executes every validator for one document and attaches the
// feature rollup. A panicking validator contributes an error issue and
// the rest of the suite still runs.
func (o *Orchestrator) runSuite(ctx context.Context, m *sysmap.SystemMap) DocumentResult {
	start := time.Now()

	evidence := NewEvidenceValidator(o.actx, o.opts)
	validators := []Validator{
		NewComponentValidator(o.actx, o.opts),
		NewAPIValidator(o.actx, o.opts),
		NewCacheValidator(o.actx, o.opts),
		NewSemanticCacheValidator(o.actx, o.opts),
		NewFlowValidator(o.actx, o.opts),
		NewUIRefreshValidator(o.actx, o.opts),
		evidence,
	}

	merged := models.NewResult(nil, 0, 0)
	for _, v := range validators {
		if err := ctx.Err(); err != nil {
			merged.Merge(models.NewResult([]models.ValidationIssue{{
				Type:     models.IssueCrossReferenceError,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("validation budget for %s exhausted before %s ran: %v", documentLabel(m), v.Name(), err),
				Location: documentLabel(m),
			}}, 0, 0))
			break
		}
		res := o.runValidator(ctx, v, m)
		o.debugLog("[orchestrator.runSuite] %s: %s found %d issues in %d checks",
			documentLabel(m), v.Name(), len(res.Issues), res.Metrics.ChecksPerformed)
		merged.Merge(res)
	}

	models.SortIssues(merged.Issues)
	merged.Metrics.ExecutionTime = time.Since(start)

	return DocumentResult{
		MapPath:  m.Path,
		MapName:  m.Name,
		Result:   merged,
		Features: evidence.FeatureStatuses(m, merged.Issues),
	}
}

// runValidator executes one validator, converting a panic into an error
// issue so a single pathological input cannot abort the run.
func (o *Orchestrator) runValidator(ctx context.Context, v Validator, m *sysmap.SystemMap) (res models.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.NewResult([]models.ValidationIssue{{
				Type:     models.IssueCrossReferenceError,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("validator %s panicked on %s: %v", v.Name(), documentLabel(m), r),
				Location: documentLabel(m),
			}}, 0, 0)
		}
	}()
	return v.Validate(ctx, m)
}

// documentLabel names a document in messages: its path when loaded from
// disk, otherwise its declared name.
func documentLabel(m *sysmap.SystemMap) string {
	if m.Path != "" {
		return m.Path
	}
	return m.Name
}
