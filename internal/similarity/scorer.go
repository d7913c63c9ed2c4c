package similarity

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// shortPathLimit is the length at or below which endpoint paths are
// compared by edit distance; longer paths fall back to containment.
const shortPathLimit = 10

// maxEndpointDistance is the edit distance within which two short
// endpoint paths count as similar.
const maxEndpointDistance = 2

// minKeyLength is the normalized length a cache key must exceed before
// substring containment counts as a semantic match.
const minKeyLength = 5

// Scorer bundles the matching rules the validators share. A single
// scorer is built per audit run and is safe for concurrent use once
// constructed.
type Scorer struct {
	// synonyms maps alternate spellings to their canonical form,
	// applied during cache key normalization.
	synonyms map[string]string
}

// NewScorer returns a scorer with the default synonym table.
func NewScorer() *Scorer {
	return &Scorer{
		synonyms: map[string]string{
			"settings":     "setting",
			"visibilities": "visibility",
		},
	}
}

// AddSynonym registers an extra spelling fold applied during cache key
// normalization. Call before the scorer is shared across goroutines.
func (s *Scorer) AddSynonym(from, to string) {
	s.synonyms[strings.ToLower(from)] = strings.ToLower(to)
}

// NormalizeEndpoint canonicalizes an endpoint path: lowercase, single
// leading slash, no trailing slash, no duplicate slashes.
func (s *Scorer) NormalizeEndpoint(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// EndpointsSimilar reports whether two endpoint paths are close enough
// to suggest one as a correction for the other. Short paths are compared
// by edit distance; long paths by substring containment.
func (s *Scorer) EndpointsSimilar(a, b string) bool {
	na := s.NormalizeEndpoint(a)
	nb := s.NormalizeEndpoint(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) <= shortPathLimit && len(nb) <= shortPathLimit {
		return Levenshtein(na, nb) <= maxEndpointDistance
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// NormalizeCacheKey canonicalizes a cache key for semantic comparison:
// lowercase, "query:" prefix stripped, synonyms folded, and separator
// characters removed. Synonyms are applied in sorted order so the result
// does not depend on map iteration.
func (s *Scorer) NormalizeCacheKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "query:")
	folds := make([]string, 0, len(s.synonyms))
	for from := range s.synonyms {
		folds = append(folds, from)
	}
	sort.Strings(folds)
	for _, from := range folds {
		k = strings.ReplaceAll(k, from, s.synonyms[from])
	}
	return stripSeparators(k)
}

// KeysSimilar reports whether two cache keys refer to the same logical
// cache entry despite different spellings. Identical normalized forms
// always match; otherwise one normalized form must contain the other and
// both must be long enough to make containment meaningful.
func (s *Scorer) KeysSimilar(a, b string) bool {
	na := s.NormalizeCacheKey(a)
	nb := s.NormalizeCacheKey(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) <= minKeyLength || len(nb) <= minKeyLength {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// RankCandidates orders candidates by fuzzy relevance to target and
// returns at most limit entries. Ties are broken lexicographically so
// output is stable across runs.
func (s *Scorer) RankCandidates(target string, candidates []string, limit int) []string {
	if target == "" || len(candidates) == 0 || limit <= 0 {
		return nil
	}
	matches := fuzzy.Find(target, candidates)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Str < matches[j].Str
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	ranked := make([]string, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, m.Str)
	}
	return ranked
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '-', '_', '/', ':', '.', ' ', '\t', '[', ']', '\'', '"':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
