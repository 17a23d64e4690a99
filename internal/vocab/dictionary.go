// Package vocab builds the global term↔id vocabulary for a tokenized corpus
// and converts documents into sparse weighted term vectors against it.
package vocab

import (
	"log/slog"
	"sort"
)

// Default pruning thresholds; terms outside the band carry no discriminative
// power (noise on the low end, near-universal terms on the high end).
const (
	DefaultMinDocFreq = 10
	DefaultMaxDocFrac = 0.66
)

// BuildOptions controls vocabulary pruning.
type BuildOptions struct {
	MinDocFreq int     // drop terms seen in fewer documents
	MaxDocFrac float64 // drop terms seen in more than this fraction of documents
}

// DefaultBuildOptions returns the production pruning thresholds.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{MinDocFreq: DefaultMinDocFreq, MaxDocFrac: DefaultMaxDocFrac}
}

// Dictionary is the immutable term↔id mapping shared read-only by every model
// trained against one corpus snapshot.
type Dictionary struct {
	Token2ID map[string]int
	Tokens   []string // id → term
	DocFreq  []int    // id → number of documents containing the term
	NumDocs  int      // corpus size the document frequencies were counted over
}

// Build accumulates document frequencies over the tokenized corpus, prunes
// terms outside the frequency band, and assigns stable integer ids in
// first-seen order.
func Build(tokenized [][]string, opts BuildOptions) *Dictionary {
	df := make(map[string]int)
	firstSeen := make(map[string]int)
	for docIdx, tokens := range tokenized {
		seen := make(map[string]struct{}, len(tokens))
		for pos, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
			if _, ok := firstSeen[tok]; !ok {
				firstSeen[tok] = docIdx<<32 | pos
			}
		}
	}

	maxDF := int(opts.MaxDocFrac * float64(len(tokenized)))
	var kept []string
	for tok, freq := range df {
		if freq < opts.MinDocFreq || freq > maxDF {
			continue
		}
		kept = append(kept, tok)
	}
	sort.Slice(kept, func(i, j int) bool { return firstSeen[kept[i]] < firstSeen[kept[j]] })

	d := &Dictionary{
		Token2ID: make(map[string]int, len(kept)),
		Tokens:   kept,
		DocFreq:  make([]int, len(kept)),
		NumDocs:  len(tokenized),
	}
	for id, tok := range kept {
		d.Token2ID[tok] = id
		d.DocFreq[id] = df[tok]
	}

	slog.Debug("dictionary built",
		"documents", len(tokenized),
		"distinctTerms", len(df),
		"retainedTerms", len(kept))
	return d
}

// Size returns the number of retained terms.
func (d *Dictionary) Size() int {
	return len(d.Tokens)
}

// Term is one entry of a sparse document vector.
type Term struct {
	ID     int
	Weight float64
}

// DocVector is a sparse vocabulary-id → weight mapping, ordered by id.
type DocVector []Term

// BOW converts a token sequence into a sparse raw-count vector against the
// dictionary. Tokens absent from the dictionary are dropped; a query that
// shares no terms with the vocabulary yields an empty vector.
func (d *Dictionary) BOW(tokens []string) DocVector {
	counts := make(map[int]float64)
	for _, tok := range tokens {
		if id, ok := d.Token2ID[tok]; ok {
			counts[id]++
		}
	}

	vec := make(DocVector, 0, len(counts))
	for id, c := range counts {
		vec = append(vec, Term{ID: id, Weight: c})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].ID < vec[j].ID })
	return vec
}
