// Package serve exposes the fitted models over HTTP: similarity lookups by
// corpus document, similarity for ad-hoc ruling text, and relevance rating
// collection.
package serve

import (
	"context"
	"errors"
	"fmt"

	"github.com/aekrylov/kadrec/internal/corpus"
	"github.com/aekrylov/kadrec/internal/model"
	"github.com/aekrylov/kadrec/internal/ratings"
	"github.com/aekrylov/kadrec/internal/textproc"
)

var (
	// ErrUnknownDocument means the requested id is not a corpus member.
	ErrUnknownDocument = errors.New("unknown document id")
	// ErrUnknownModel means no fitted model of the requested kind is loaded.
	ErrUnknownModel = errors.New("unknown model kind")
)

// Service answers similarity queries against a corpus snapshot and a set of
// fitted models. The snapshot fixes the positional contract: model document
// indices translate to external document ids through snapshot order.
type Service struct {
	snap   *corpus.Snapshot
	models map[model.Kind]model.Model
	norm   *textproc.Normalizer
	tok    *textproc.Tokenizer
	store  *ratings.Store
	id2idx map[string]int
}

// NewService wires a snapshot, fitted models, and the text pipeline used to
// vectorize ad-hoc queries. store may be nil when rating collection is
// disabled.
func NewService(snap *corpus.Snapshot, models map[model.Kind]model.Model,
	norm *textproc.Normalizer, tok *textproc.Tokenizer, store *ratings.Store) (*Service, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("corpus snapshot: %w", err)
	}
	if len(models) == 0 {
		return nil, errors.New("no fitted models loaded")
	}

	id2idx := make(map[string]int, len(snap.IDs))
	for i, id := range snap.IDs {
		id2idx[id] = i
	}
	return &Service{
		snap:   snap,
		models: models,
		norm:   norm,
		tok:    tok,
		store:  store,
		id2idx: id2idx,
	}, nil
}

// Kinds lists the loaded model variants.
func (s *Service) Kinds() []model.Kind {
	out := make([]model.Kind, 0, len(s.models))
	for _, k := range model.Kinds {
		if _, ok := s.models[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// CorpusSize returns the number of snapshot documents.
func (s *Service) CorpusSize() int { return len(s.snap.IDs) }

// SimilarForDocument ranks corpus documents by similarity to an existing
// corpus member, excluding the member itself. An empty result is a valid
// answer, not an error.
func (s *Service) SimilarForDocument(kind model.Kind, docID string, topN int) ([]string, error) {
	m, ok := s.models[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, kind)
	}
	idx, ok := s.id2idx[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}

	var q model.Query
	if kind == model.KindDoc2Vec {
		// the embedding model keeps per-document training vectors
		q = model.Query{Self: idx}
	} else {
		q = model.VectorQuery(s.snap.Bows[idx], idx)
	}
	return s.toIDs(m.GetSimilar(q, topN)), nil
}

// SimilarForText ranks corpus documents by similarity to raw ruling text.
// The text goes through the same normalization and tokenization as the
// corpus; tokens outside the fitted vocabulary simply drop out.
func (s *Service) SimilarForText(kind model.Kind, raw string, topN int) ([]string, error) {
	m, ok := s.models[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, kind)
	}

	tokens := s.tok.Tokenize(s.norm.Normalize(raw))

	var q model.Query
	if kind == model.KindDoc2Vec {
		q = model.TokenQuery(tokens, -1)
	} else {
		q = model.VectorQuery(s.snap.Dict.BOW(tokens), -1)
	}
	return s.toIDs(m.GetSimilar(q, topN)), nil
}

// RecordRating stores a relevance judgment for a (document, recommendation)
// pair. Both ids must be corpus members so the evaluator can join them back
// to corpus indices.
func (s *Service) RecordRating(ctx context.Context, docID, recID string, value int, reporter string) error {
	if s.store == nil {
		return errors.New("rating collection is disabled")
	}
	docIdx, ok := s.id2idx[docID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	recIdx, ok := s.id2idx[recID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, recID)
	}
	return s.store.Record(ctx, ratings.Rating{
		DocID:            docIdx,
		RecommendationID: recIdx,
		Value:            value,
		Reporter:         reporter,
	})
}

func (s *Service) toIDs(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = s.snap.IDs[idx]
	}
	return out
}
