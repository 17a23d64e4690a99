// Package index provides exact cosine-similarity ranking over a fitted
// model's corpus-space matrix. At the corpus sizes in scope (tens of
// thousands of documents) a full linear scan is fast enough; no approximate
// structure is needed.
package index

import (
	"fmt"
	"math"
	"sort"
)

// Hit is one ranked query result: a document's positional index and its
// cosine similarity to the query.
type Hit struct {
	ID    int
	Score float64
}

// Index ranks documents by cosine similarity to a query vector. Row i holds
// the model-space vector of document i; row order matches document index
// order exactly and is never rearranged.
type Index struct {
	rows     [][]float64
	norms    []float64
	features int
	bestK    int
}

// New builds an index over the transformed corpus. Every row must have
// exactly nFeatures columns. bestK > 0 pre-truncates every query to at most
// bestK hits; zero leaves queries unbounded.
func New(vectors [][]float64, nFeatures, bestK int) (*Index, error) {
	norms := make([]float64, len(vectors))
	for i, row := range vectors {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeatures)
		}
		var n float64
		for _, v := range row {
			n += v * v
		}
		norms[i] = math.Sqrt(n)
	}
	return &Index{rows: vectors, norms: norms, features: nFeatures, bestK: bestK}, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.rows) }

// Features returns the model-space dimensionality.
func (ix *Index) Features() int { return ix.features }

// BestK returns the configured truncation bound, zero when unbounded.
func (ix *Index) BestK() int { return ix.bestK }

// Row returns the stored vector for document i.
func (ix *Index) Row(i int) []float64 { return ix.rows[i] }

// Query ranks all documents by cosine similarity to vec, most similar first,
// truncated to topN (and to the index's bestK bound when set). exclude
// removes one document index from the results (pass a negative value to keep
// all); it is how a corpus-member query strips itself. A zero query vector
// has no defined direction and yields an empty result rather than an error.
func (ix *Index) Query(vec []float64, topN, exclude int) []Hit {
	var qn float64
	for _, v := range vec {
		qn += v * v
	}
	if qn == 0 {
		return nil
	}
	qn = math.Sqrt(qn)

	hits := make([]Hit, 0, len(ix.rows))
	for i, row := range ix.rows {
		if i == exclude || ix.norms[i] == 0 {
			continue
		}
		var dot float64
		for j, v := range vec {
			dot += v * row[j]
		}
		hits = append(hits, Hit{ID: i, Score: dot / (qn * ix.norms[i])})
	}

	// ties broken by document index for a deterministic permutation
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if ix.bestK > 0 && (topN <= 0 || topN > ix.bestK) {
		topN = ix.bestK
	}
	if topN > 0 && len(hits) > topN {
		hits = hits[:topN]
	}
	return hits
}
