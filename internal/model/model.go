// Package model implements the similarity-model family: four variants with
// numerically distinct fitting procedures, unified behind one contract. A
// model is fitted once on a vectorized corpus, is immutable afterwards, and
// answers "top-N most similar document indices" for an arbitrary query.
//
// Variants:
//   - LSI: projection onto a fixed-rank orthogonal subspace (truncated SVD)
//   - LDA: topic-probability mixtures fit by variational inference
//   - ARTM: regularized nonnegative matrix factorization
//   - Doc2Vec: paragraph embeddings trained from raw token sequences
package model

import "github.com/aekrylov/kadrec/internal/vocab"

// Kind identifies a model variant; it doubles as the file suffix for
// persisted model blobs.
type Kind string

const (
	KindLSI     Kind = "lsi"
	KindLDA     Kind = "lda"
	KindARTM    Kind = "artm"
	KindDoc2Vec Kind = "d2v"
)

// Kinds lists every model variant in training order.
var Kinds = []Kind{KindLSI, KindLDA, KindARTM, KindDoc2Vec}

// Query is a tagged union over the two query representations. Vector-space
// models (LSI, LDA, ARTM) read Vec, a raw bag-of-words vector against the
// corpus vocabulary; the embedding model reads Tokens. Self is the corpus
// index of the query document when the query is itself a corpus member, and
// is excluded from results; pass -1 for external queries.
type Query struct {
	Vec    vocab.DocVector
	Tokens []string
	Self   int
}

// VectorQuery wraps a bag-of-words vector for a corpus-member document.
func VectorQuery(vec vocab.DocVector, self int) Query {
	return Query{Vec: vec, Self: self}
}

// TokenQuery wraps a raw token sequence for the embedding model.
func TokenQuery(tokens []string, self int) Query {
	return Query{Tokens: tokens, Self: self}
}

// Model is the single polymorphic contract every variant satisfies. The
// Evaluator and the serving layer treat all variants uniformly through it.
//
// GetSimilar returns corpus document indices ordered most-similar first. It
// degrades gracefully: a query sharing no terms with the model's vocabulary
// yields an empty result, never an error.
type Model interface {
	Kind() Kind
	GetSimilar(q Query, topN int) []int
}
