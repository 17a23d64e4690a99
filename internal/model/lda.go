package model

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/james-bowman/nlp"
	"github.com/james-bowman/sparse"
	"golang.org/x/exp/rand"

	iindex "github.com/aekrylov/kadrec/internal/index"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// LDAOptions controls the probabilistic-mixture fit.
type LDAOptions struct {
	// Iterations bounds the variational inference passes.
	Iterations int
	// Workers sets library-level fitting parallelism; zero uses GOMAXPROCS.
	Workers int
	// Seed fixes the sampler for repeatable fits; zero leaves it randomized.
	Seed uint64
}

// DefaultLDAOptions returns the production fitting parameters.
func DefaultLDAOptions() LDAOptions {
	return LDAOptions{Iterations: 50}
}

// LDA represents each document as a topic-probability distribution fit by
// iterative variational inference over the term-count corpus. Similarity is
// cosine distance between topic distributions.
//
// The fitted inference engine is a native sub-object that cannot be
// serialized; corpus members therefore carry their fitted mixtures, and
// external queries fold the term vector through the learned topic×term
// matrix, which is all the persisted state needs to carry.
type LDA struct {
	topics int
	nTerms int
	phi    [][]float64 // topics×terms
	docs   [][]float64 // documents×topics
	idx    *iindex.Index
}

// FitLDA builds the probabilistic-mixture model from a vectorized corpus.
// Fitting is a randomized iterative process; repeatability across runs is
// only guaranteed with a fixed Seed.
func FitLDA(bows []vocab.DocVector, dict *vocab.Dictionary, nTopics int, opts LDAOptions) (*LDA, error) {
	if len(bows) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}
	t0 := time.Now()

	nTerms := dict.Size()
	nDocs := len(bows)
	dok := sparse.NewDOK(nTerms, nDocs)
	for j, doc := range bows {
		for _, term := range doc {
			dok.Set(term.ID, j, term.Weight)
		}
	}

	lda := nlp.NewLatentDirichletAllocation(nTopics)
	lda.Processes = opts.Workers
	if lda.Processes <= 0 {
		lda.Processes = runtime.GOMAXPROCS(0)
	}
	if opts.Iterations > 0 {
		lda.Iterations = opts.Iterations
		lda.TransformationPasses = opts.Iterations / 2
	}
	if opts.Seed != 0 {
		lda.Rnd = rand.New(rand.NewSource(opts.Seed))
	}

	docsOverTopics, err := lda.FitTransform(dok.ToCSR())
	if err != nil {
		return nil, fmt.Errorf("LDA fitting failed: %w", err)
	}

	// column j of the result is document j's topic distribution
	docs := make([][]float64, nDocs)
	for j := 0; j < nDocs; j++ {
		row := make([]float64, nTopics)
		for t := 0; t < nTopics; t++ {
			row[t] = docsOverTopics.At(t, j)
		}
		docs[j] = row
	}

	topicsOverWords := lda.Components()
	phi := make([][]float64, nTopics)
	for t := 0; t < nTopics; t++ {
		row := make([]float64, nTerms)
		for i := 0; i < nTerms; i++ {
			row[i] = topicsOverWords.At(t, i)
		}
		phi[t] = row
	}

	m := &LDA{topics: nTopics, nTerms: nTerms, phi: phi, docs: docs}
	if err := m.attach(); err != nil {
		return nil, err
	}
	slog.Info("LDA model fitted",
		"topics", nTopics, "documents", nDocs, "terms", nTerms,
		"workers", lda.Processes, "elapsed", time.Since(t0))
	return m, nil
}

func (m *LDA) attach() error {
	idx, err := iindex.New(m.docs, m.topics, 0)
	if err != nil {
		return fmt.Errorf("failed to build LDA index: %w", err)
	}
	m.idx = idx
	return nil
}

// Kind implements Model.
func (m *LDA) Kind() Kind { return KindLDA }

// GetSimilar ranks the corpus against a topic mixture. A corpus-member query
// (Self >= 0) uses the fitted mixture learned during training; an external
// query folds its term counts through the topic×term matrix instead.
func (m *LDA) GetSimilar(q Query, topN int) []int {
	var theta []float64
	if q.Self >= 0 && q.Self < len(m.docs) {
		theta = m.docs[q.Self]
	} else {
		theta = make([]float64, m.topics)
		for _, term := range q.Vec {
			if term.ID < 0 || term.ID >= m.nTerms {
				continue
			}
			for t := 0; t < m.topics; t++ {
				theta[t] += term.Weight * m.phi[t][term.ID]
			}
		}
	}

	hits := m.idx.Query(theta, topN, q.Self)
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
