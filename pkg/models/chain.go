package models

// CacheInvalidationChain records one mutation-to-invalidation chain
// reconstructed from a source file: which endpoint the mutation calls,
// which cache keys the chain is expected to invalidate, and which
// invalidations were actually found near the mutation.
type CacheInvalidationChain struct {
	// StartingAction names the mutation that begins the chain,
	// e.g. "mutation POST /api/memories".
	StartingAction string `json:"startingAction"`
	// APIEndpoint is the endpoint the mutation targets.
	APIEndpoint string `json:"apiEndpoint"`
	// ExpectedInvalidations lists cache keys the endpoint's prefix
	// requires to be invalidated.
	ExpectedInvalidations []string `json:"expectedInvalidations"`
	// ActualInvalidations lists cache keys invalidated near the mutation.
	ActualInvalidations []string `json:"actualInvalidations"`
	// MissingInvalidations is Expected minus Actual (fuzzy-matched).
	MissingInvalidations []string `json:"missingInvalidations"`
	// ChainComplete is true when nothing expected is missing.
	ChainComplete bool `json:"chainComplete"`
	// AffectedComponents lists files whose queries read the missing keys.
	AffectedComponents []string `json:"affectedComponents,omitempty"`
	// SourceFile is the file the chain was reconstructed from.
	SourceFile string `json:"sourceFile,omitempty"`
}
