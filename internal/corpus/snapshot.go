package corpus

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aekrylov/kadrec/internal/textproc"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// Snapshot is the persisted (document-id list, vocabulary, vectorized corpus)
// triple written once by the offline preparation step and read by both
// training and serving. The id list's order defines the positional index
// contract: Bows[i] is the vectorized form of the document IDs[i].
type Snapshot struct {
	IDs  []string
	Dict *vocab.Dictionary
	Bows []vocab.DocVector
}

// BuildSnapshot tokenizes the corpus, builds the pruned dictionary and
// vectorizes every document against it.
func BuildSnapshot(c *Corpus, tok *textproc.Tokenizer, opts vocab.BuildOptions) *Snapshot {
	t0 := time.Now()
	tokenized := make([][]string, c.Len())
	for i, text := range c.Texts {
		tokenized[i] = tok.Tokenize(text)
	}
	slog.Info("corpus tokenized", "documents", c.Len(), "elapsed", time.Since(t0))

	dict := vocab.Build(tokenized, opts)
	bows := make([]vocab.DocVector, len(tokenized))
	for i, tokens := range tokenized {
		bows[i] = dict.BOW(tokens)
	}

	return &Snapshot{IDs: append([]string(nil), c.IDs...), Dict: dict, Bows: bows}
}

// Validate checks the positional invariant: the id list and the vectorized
// corpus must have identical lengths.
func (s *Snapshot) Validate() error {
	if len(s.IDs) != len(s.Bows) {
		return fmt.Errorf("snapshot length mismatch: %d ids, %d vectors", len(s.IDs), len(s.Bows))
	}
	if s.Dict == nil {
		return fmt.Errorf("snapshot has no dictionary")
	}
	return nil
}

// Save writes the snapshot to path.
func (s *Snapshot) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads and validates a snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
