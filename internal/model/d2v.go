package model

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	iindex "github.com/aekrylov/kadrec/internal/index"
)

// Doc2VecOptions controls the paragraph-embedding fit.
type Doc2VecOptions struct {
	Epochs   int     // training passes over the corpus
	Negative int     // negative samples per positive pair
	Rate     float64 // initial learning rate, decays linearly to a tenth
	MinCount int     // words seen fewer times are skipped
	Seed     int64
}

// DefaultDoc2VecOptions returns the production training parameters.
func DefaultDoc2VecOptions() Doc2VecOptions {
	return Doc2VecOptions{Epochs: 20, Negative: 5, Rate: 0.025, MinCount: 2, Seed: 1}
}

// Doc2Vec learns a fixed-size vector per document with a distributed
// bag-of-words paragraph-embedding procedure: each document vector is trained
// to predict the words it contains against negative samples drawn from the
// unigram distribution. It works directly on raw token sequences, bypassing
// the vocabulary and TF-IDF weighting entirely.
type Doc2Vec struct {
	dim     int
	opts    Doc2VecOptions
	words   map[string]int
	wordVec [][]float64 // output embeddings, per word
	negs    []int       // negative-sampling table (unigram^0.75)
	docs    [][]float64
	idx     *iindex.Index
}

// FitDoc2Vec trains document embeddings of the given dimensionality from raw
// tokenized documents.
func FitDoc2Vec(tokenized [][]string, dim int, opts Doc2VecOptions) (*Doc2Vec, error) {
	if len(tokenized) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}
	if opts.Epochs <= 0 {
		opts = DefaultDoc2VecOptions()
	}
	t0 := time.Now()

	// frequency-pruned word vocabulary
	counts := make(map[string]int)
	for _, doc := range tokenized {
		for _, w := range doc {
			counts[w]++
		}
	}
	words := make(map[string]int)
	var freqs []int
	for _, doc := range tokenized {
		for _, w := range doc {
			if counts[w] < opts.MinCount {
				continue
			}
			if _, ok := words[w]; !ok {
				words[w] = len(words)
				freqs = append(freqs, counts[w])
			}
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no words above MinCount=%d", opts.MinCount)
	}

	m := &Doc2Vec{
		dim:     dim,
		opts:    opts,
		words:   words,
		wordVec: zeroMatrix(len(words), dim),
		negs:    negTable(freqs),
	}

	rnd := rand.New(rand.NewSource(opts.Seed))
	m.docs = make([][]float64, len(tokenized))
	for d := range m.docs {
		m.docs[d] = smallRandomVec(dim, rnd)
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rate := decayedRate(opts.Rate, epoch, opts.Epochs)
		for d, doc := range tokenized {
			m.trainDoc(m.docs[d], doc, rate, rnd, true)
		}
	}

	if err := m.attach(); err != nil {
		return nil, err
	}
	slog.Info("doc2vec model fitted",
		"dim", dim, "documents", len(tokenized), "vocabulary", len(words),
		"epochs", opts.Epochs, "elapsed", time.Since(t0))
	return m, nil
}

// trainDoc runs one pass of negative-sampling updates for a single document
// vector. updateWords is false during inference, freezing the word matrix.
func (m *Doc2Vec) trainDoc(docVec []float64, tokens []string, rate float64, rnd *rand.Rand, updateWords bool) {
	grad := make([]float64, m.dim)
	for _, w := range tokens {
		target, ok := m.words[w]
		if !ok {
			continue
		}
		for i := range grad {
			grad[i] = 0
		}

		// one positive pair plus sampled negatives
		for s := 0; s <= m.opts.Negative; s++ {
			out := target
			label := 1.0
			if s > 0 {
				out = m.negs[rnd.Intn(len(m.negs))]
				if out == target {
					continue
				}
				label = 0
			}
			wv := m.wordVec[out]
			var z float64
			for i := range docVec {
				z += docVec[i] * wv[i]
			}
			g := (label - sigmoid(z)) * rate
			for i := range docVec {
				grad[i] += g * wv[i]
				if updateWords {
					wv[i] += g * docVec[i]
				}
			}
		}
		for i := range docVec {
			docVec[i] += grad[i]
		}
	}
}

// attach rebuilds the similarity index over the stored document embeddings.
func (m *Doc2Vec) attach() error {
	idx, err := iindex.New(m.docs, m.dim, 0)
	if err != nil {
		return fmt.Errorf("failed to build doc2vec index: %w", err)
	}
	m.idx = idx
	return nil
}

// Kind implements Model.
func (m *Doc2Vec) Kind() Kind { return KindDoc2Vec }

// GetSimilar infers a vector for the query tokens with the frozen word
// matrix and ranks the corpus by cosine similarity. A corpus-member query
// (Self >= 0) uses its stored training vector instead of re-inference.
func (m *Doc2Vec) GetSimilar(q Query, topN int) []int {
	var vec []float64
	if q.Self >= 0 && q.Self < len(m.docs) {
		vec = m.docs[q.Self]
	} else {
		vec = m.Infer(q.Tokens)
	}

	hits := m.idx.Query(vec, topN, q.Self)
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

// Infer learns an embedding for a novel token sequence against the frozen
// model. Inference is seeded deterministically so repeated calls rank
// identically.
func (m *Doc2Vec) Infer(tokens []string) []float64 {
	rnd := rand.New(rand.NewSource(m.opts.Seed))
	vec := smallRandomVec(m.dim, rnd)
	for epoch := 0; epoch < m.opts.Epochs; epoch++ {
		m.trainDoc(vec, tokens, decayedRate(m.opts.Rate, epoch, m.opts.Epochs), rnd, false)
	}
	return vec
}

// negTable builds the sampling table proportional to unigram frequency
// raised to 3/4, the standard negative-sampling distribution.
func negTable(freqs []int) []int {
	const tableSize = 100_000
	weights := make([]float64, len(freqs))
	var total float64
	for i, f := range freqs {
		weights[i] = math.Pow(float64(f), 0.75)
		total += weights[i]
	}

	table := make([]int, 0, tableSize)
	for i, w := range weights {
		n := int(w / total * tableSize)
		if n < 1 {
			n = 1
		}
		for k := 0; k < n; k++ {
			table = append(table, i)
		}
	}
	return table
}

func decayedRate(base float64, epoch, epochs int) float64 {
	return base * (1.0 - 0.9*float64(epoch)/float64(epochs))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func zeroMatrix(r, c int) [][]float64 {
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
	}
	return out
}

func smallRandomVec(dim int, rnd *rand.Rand) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = (rnd.Float64() - 0.5) / float64(dim)
	}
	return v
}
