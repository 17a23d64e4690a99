package model

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	iindex "github.com/aekrylov/kadrec/internal/index"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// LSI projects TF-IDF document vectors onto the fixed-rank orthogonal
// subspace that retains the most variance (truncated SVD of the term-document
// matrix). Similarity is cosine distance in the reduced space. Fitting is
// deterministic up to floating-point error.
type LSI struct {
	topics int
	nTerms int
	rank   int       // effective rank, may be below topics for small corpora
	u      []float64 // left singular vectors, nTerms×rank row-major
	idf    []float64
	docs   [][]float64
	idx    *iindex.Index
}

// FitLSI builds the dense-subspace model from a vectorized corpus.
func FitLSI(bows []vocab.DocVector, dict *vocab.Dictionary, nTopics int) (*LSI, error) {
	if len(bows) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}
	t0 := time.Now()

	tfidf := vocab.NewTFIDF(dict)
	weighted := tfidf.TransformAll(bows)

	nTerms := dict.Size()
	nDocs := len(weighted)
	a := mat.NewDense(nTerms, nDocs, nil)
	for j, doc := range weighted {
		for _, term := range doc {
			a.Set(term.ID, j, term.Weight)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("SVD did not converge")
	}
	var uFull, vFull mat.Dense
	svd.UTo(&uFull)
	svd.VTo(&vFull)
	sv := svd.Values(nil)

	rank := nTopics
	if rank > len(sv) {
		rank = len(sv)
	}

	u := make([]float64, nTerms*rank)
	for i := 0; i < nTerms; i++ {
		for j := 0; j < rank; j++ {
			u[i*rank+j] = uFull.At(i, j)
		}
	}

	// document vectors in topic space: U_kᵀ a_j = Σ_k v_j
	docs := make([][]float64, nDocs)
	for j := 0; j < nDocs; j++ {
		row := make([]float64, rank)
		for t := 0; t < rank; t++ {
			row[t] = vFull.At(j, t) * sv[t]
		}
		docs[j] = row
	}

	m := &LSI{topics: nTopics, nTerms: nTerms, rank: rank, u: u, idf: tfidf.IDF, docs: docs}
	if err := m.attach(); err != nil {
		return nil, err
	}
	slog.Info("LSI model fitted",
		"topics", nTopics, "rank", rank, "documents", nDocs, "terms", nTerms,
		"elapsed", time.Since(t0))
	return m, nil
}

// attach rebuilds the similarity index from the stored corpus matrix. Called
// after fitting and after deserialization.
func (m *LSI) attach() error {
	idx, err := iindex.New(m.docs, m.rank, 0)
	if err != nil {
		return fmt.Errorf("failed to build LSI index: %w", err)
	}
	m.idx = idx
	return nil
}

// Kind implements Model.
func (m *LSI) Kind() Kind { return KindLSI }

// GetSimilar weights the query bag-of-words, projects it into the subspace
// and ranks the corpus by cosine similarity.
func (m *LSI) GetSimilar(q Query, topN int) []int {
	weighted := (&vocab.TFIDF{IDF: m.idf}).Transform(q.Vec)

	qk := make([]float64, m.rank)
	for _, term := range weighted {
		if term.ID >= m.nTerms {
			continue
		}
		for j := 0; j < m.rank; j++ {
			qk[j] += term.Weight * m.u[term.ID*m.rank+j]
		}
	}

	hits := m.idx.Query(qk, topN, q.Self)
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
