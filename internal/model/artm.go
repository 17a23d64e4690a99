package model

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	iindex "github.com/aekrylov/kadrec/internal/index"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// ARTMOptions controls the regularized factorization fit.
type ARTMOptions struct {
	// Iterations is the number of multiplicative update passes.
	Iterations int
	// SparsityTau is the sparsing regularization strength applied to the
	// term-topic factor; larger values drive more topic weights to zero.
	SparsityTau float64
	// Seed fixes the factor initialization for repeatable fits.
	Seed int64
}

// DefaultARTMOptions returns the production fitting parameters.
func DefaultARTMOptions() ARTMOptions {
	return ARTMOptions{Iterations: 50, SparsityTau: 0.01, Seed: 1}
}

// ARTM factorizes the document-term matrix into nonnegative document-topic
// and term-topic factors under a sparsity regularizer, multiplicative-update
// style. The factorization runs over its own internal term ordering; the
// learned term×topic matrix is re-indexed to the global vocabulary by term
// string, never by position.
type ARTM struct {
	topics  int
	terms   []string    // internal term order (sorted)
	termIDs []int       // internal position → global vocabulary id
	phi     [][]float64 // internal-term×topic
	docs    [][]float64 // document×topic
	nTerms  int         // global vocabulary size

	phiGlobal map[int][]float64 // global id → topic row, built by attach
	idx       *iindex.Index
}

// FitARTM builds the regularized-factorization model from a vectorized
// corpus.
func FitARTM(bows []vocab.DocVector, dict *vocab.Dictionary, nTopics int, opts ARTMOptions) (*ARTM, error) {
	if len(bows) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultARTMOptions().Iterations
	}
	t0 := time.Now()

	// internal vocabulary order: sorted by term string
	terms := append([]string(nil), dict.Tokens...)
	sort.Strings(terms)
	termIDs := make([]int, len(terms))
	col := make(map[int]int, len(terms)) // global id → internal column
	for i, term := range terms {
		id := dict.Token2ID[term]
		termIDs[i] = id
		col[id] = i
	}

	nDocs := len(bows)
	nTerms := len(terms)
	v := mat.NewDense(nDocs, nTerms, nil)
	for d, doc := range bows {
		for _, term := range doc {
			v.Set(d, col[term.ID], term.Weight)
		}
	}

	rnd := rand.New(rand.NewSource(opts.Seed))
	w := randomDense(nDocs, nTopics, rnd)  // document-topic factor
	h := randomDense(nTopics, nTerms, rnd) // topic-term factor

	// each intermediate keeps a constant shape across iterations so the
	// receivers can be reused without reallocation
	const eps = 1e-12
	var wNum, wDen, wh, hNum, hDen, wtw mat.Dense
	for iter := 0; iter < opts.Iterations; iter++ {
		// W ← W ∘ (V Hᵀ) ⊘ (W H Hᵀ)
		wNum.Mul(v, h.T())
		wh.Mul(w, h)
		wDen.Mul(&wh, h.T())
		hadamardUpdate(w, &wNum, &wDen, eps, 0)

		// H ← H ∘ (Wᵀ V) ⊘ (Wᵀ W H + τ); τ sparses the term-topic factor
		hNum.Mul(w.T(), v)
		wtw.Mul(w.T(), w)
		hDen.Mul(&wtw, h)
		hadamardUpdate(h, &hNum, &hDen, eps, opts.SparsityTau)
	}

	phi := make([][]float64, nTerms)
	for i := 0; i < nTerms; i++ {
		row := make([]float64, nTopics)
		for t := 0; t < nTopics; t++ {
			row[t] = h.At(t, i)
		}
		phi[i] = row
	}
	docs := make([][]float64, nDocs)
	for d := 0; d < nDocs; d++ {
		docs[d] = append([]float64(nil), w.RawRowView(d)...)
	}

	m := &ARTM{
		topics:  nTopics,
		terms:   terms,
		termIDs: termIDs,
		phi:     phi,
		docs:    docs,
		nTerms:  dict.Size(),
	}
	if err := m.attach(); err != nil {
		return nil, err
	}
	slog.Info("ARTM model fitted",
		"topics", nTopics, "documents", nDocs, "terms", nTerms,
		"iterations", opts.Iterations, "elapsed", time.Since(t0))
	return m, nil
}

// attach re-indexes the term×topic matrix to global vocabulary ids and
// rebuilds the similarity index. Called after fitting and after
// deserialization.
func (m *ARTM) attach() error {
	m.phiGlobal = make(map[int][]float64, len(m.terms))
	for i, id := range m.termIDs {
		m.phiGlobal[id] = m.phi[i]
	}

	idx, err := iindex.New(m.docs, m.topics, 0)
	if err != nil {
		return fmt.Errorf("failed to build ARTM index: %w", err)
	}
	m.idx = idx
	return nil
}

// Kind implements Model.
func (m *ARTM) Kind() Kind { return KindARTM }

// GetSimilar projects the query's term vector through the learned term×topic
// matrix (plain matrix multiplication, no iterative inference) and ranks the
// corpus against the resulting topic vector.
func (m *ARTM) GetSimilar(q Query, topN int) []int {
	theta := make([]float64, m.topics)
	for _, term := range q.Vec {
		row, ok := m.phiGlobal[term.ID]
		if !ok {
			continue
		}
		for t := 0; t < m.topics; t++ {
			theta[t] += term.Weight * row[t]
		}
	}

	hits := m.idx.Query(theta, topN, q.Self)
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

// randomDense fills a matrix with small positive values.
func randomDense(r, c int, rnd *rand.Rand) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rnd.Float64() + 0.1
	}
	return mat.NewDense(r, c, data)
}

// hadamardUpdate applies x ← x ∘ num ⊘ (den + τ) elementwise, clamping
// negatives to zero to keep the factors nonnegative.
func hadamardUpdate(x, num, den *mat.Dense, eps, tau float64) {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := den.At(i, j) + tau + eps
			v := x.At(i, j) * num.At(i, j) / d
			if v < 0 {
				v = 0
			}
			x.Set(i, j, v)
		}
	}
}
