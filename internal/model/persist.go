package model

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Persistence is a two-part contract: each model exports a serializable
// parameter blob (the learned matrices), and attach() reconstructs the
// non-serializable parts (the similarity index, and for ARTM the vocabulary
// re-indexing) after the blob is restored. A loaded model's ranking behavior
// is identical to the freshly fitted one.

type lsiParams struct {
	Topics, NTerms, Rank int
	U                    []float64
	IDF                  []float64
	Docs                 [][]float64
}

type ldaParams struct {
	Topics, NTerms int
	Phi            [][]float64
	Docs           [][]float64
}

type artmParams struct {
	Topics, NTerms int
	Terms          []string
	TermIDs        []int
	Phi            [][]float64
	Docs           [][]float64
}

type d2vParams struct {
	Dim     int
	Opts    Doc2VecOptions
	Words   map[string]int
	WordVec [][]float64
	Negs    []int
	Docs    [][]float64
}

// blob is the on-disk envelope; exactly one field is set.
type blob struct {
	LSI  *lsiParams
	LDA  *ldaParams
	ARTM *artmParams
	D2V  *d2vParams
}

// Save writes a fitted model to path as an opaque serialized blob.
func Save(path string, m Model) error {
	var b blob
	switch m := m.(type) {
	case *LSI:
		b.LSI = &lsiParams{Topics: m.topics, NTerms: m.nTerms, Rank: m.rank, U: m.u, IDF: m.idf, Docs: m.docs}
	case *LDA:
		b.LDA = &ldaParams{Topics: m.topics, NTerms: m.nTerms, Phi: m.phi, Docs: m.docs}
	case *ARTM:
		b.ARTM = &artmParams{Topics: m.topics, NTerms: m.nTerms, Terms: m.terms, TermIDs: m.termIDs, Phi: m.phi, Docs: m.docs}
	case *Doc2Vec:
		b.D2V = &d2vParams{Dim: m.dim, Opts: m.opts, Words: m.words, WordVec: m.wordVec, Negs: m.negs, Docs: m.docs}
	default:
		return fmt.Errorf("unknown model type %T", m)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(&b); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// Load restores a model from a blob written by Save, reattaching the
// in-memory structures the blob cannot carry. Loading is idempotent and
// side-effect-free beyond allocation; the result is safe to share read-only.
func Load(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	var b blob
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	var m interface {
		Model
		attach() error
	}
	switch {
	case b.LSI != nil:
		p := b.LSI
		m = &LSI{topics: p.Topics, nTerms: p.NTerms, rank: p.Rank, u: p.U, idf: p.IDF, docs: p.Docs}
	case b.LDA != nil:
		p := b.LDA
		m = &LDA{topics: p.Topics, nTerms: p.NTerms, phi: p.Phi, docs: p.Docs}
	case b.ARTM != nil:
		p := b.ARTM
		m = &ARTM{topics: p.Topics, nTerms: p.NTerms, terms: p.Terms, termIDs: p.TermIDs, phi: p.Phi, docs: p.Docs}
	case b.D2V != nil:
		p := b.D2V
		m = &Doc2Vec{dim: p.Dim, opts: p.Opts, words: p.Words, wordVec: p.WordVec, negs: p.Negs, docs: p.Docs}
	default:
		return nil, fmt.Errorf("model blob %s has no payload", path)
	}

	if err := m.attach(); err != nil {
		return nil, err
	}
	return m, nil
}
