package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aekrylov/kadrec/internal/textproc"
)

// ErrExcluded marks a document that must not enter the corpus: extraction
// failed, the ruling has no operative section, or it was issued in closed
// session. Exclusion is an expected outcome, not a pipeline failure.
var ErrExcluded = errors.New("document excluded from corpus")

// Extractor produces raw document text for an id. Implemented by the
// out-of-scope crawler/extraction layer; see FileExtractor.
type Extractor interface {
	Extract(id string) (string, error)
}

// Cache persists normalized document text, one file per document, so the
// expensive extraction + normalization step runs once per document. Entries
// are written once and read many times; a single offline pass populates the
// cache before serving begins.
type Cache struct {
	dir  string
	norm *textproc.Normalizer
	ext  Extractor
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, norm *textproc.Normalizer, ext Extractor) *Cache {
	return &Cache{dir: dir, norm: norm, ext: ext}
}

// Path returns the cache file location for a document id, sharded by the
// two-character id prefix.
func (c *Cache) Path(id string) string {
	return filepath.Join(c.dir, shardPrefix(id), id+".txt")
}

// GetOrCompute returns the normalized text for a document, computing and
// persisting it on a cache miss. It returns ErrExcluded for documents that
// must not enter the corpus; any other error is an I/O failure on the cache
// itself.
func (c *Cache) GetOrCompute(id string) (string, error) {
	path := c.Path(id)
	if data, err := os.ReadFile(path); err == nil {
		return string(data), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read cache entry %s: %w", path, err)
	}

	raw, err := c.ext.Extract(id)
	if err != nil {
		slog.Info("extraction failed, excluding document", "id", id, "error", err)
		return "", ErrExcluded
	}

	if !textproc.HasOperativePart(raw) {
		slog.Info("no operative section, excluding document", "id", id)
		return "", ErrExcluded
	}
	if textproc.IsClosedSession(raw) {
		slog.Info("closed-session ruling, excluding document", "id", id)
		return "", ErrExcluded
	}

	text := c.norm.Normalize(raw)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache shard: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write cache entry %s: %w", path, err)
	}
	return text, nil
}

// Walk streams cached documents in stable lexical path order, calling fn for
// each until limit documents have been visited (limit <= 0 means all) or fn
// returns an error.
func (c *Cache) Walk(limit int, fn func(id, text string) error) error {
	seen := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".txt") {
			return nil
		}
		if limit > 0 && seen >= limit {
			return fs.SkipAll
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read cache entry %s: %w", path, err)
		}
		seen++
		id := strings.TrimSuffix(filepath.Base(path), ".txt")
		return fn(id, string(data))
	})
	if err != nil {
		return err
	}
	return nil
}

// TextsFor reads the cached text for each id, in the given order. Every id
// must have a cache entry: the id list is the positional contract, and a
// cache that has drifted from it (entries added or removed since the list
// was fixed) must fail loudly instead of yielding a silently misaligned
// corpus.
func (c *Cache) TextsFor(ids []string) ([]string, error) {
	texts := make([]string, len(ids))
	for i, id := range ids {
		data, err := os.ReadFile(c.Path(id))
		if err != nil {
			return nil, fmt.Errorf("cache entry missing for document %s: %w", id, err)
		}
		texts[i] = string(data)
	}
	return texts, nil
}

// Corpus is the in-memory document array. Index i is the positional document
// identity used by the dictionary, every fitted model and the similarity
// index; the two slices move together and are never reordered independently.
type Corpus struct {
	IDs   []string
	Texts []string
}

// Load enumerates the cache into a positional corpus. limit <= 0 loads
// everything.
func (c *Cache) Load(limit int) (*Corpus, error) {
	corpus := &Corpus{}
	err := c.Walk(limit, func(id, text string) error {
		corpus.IDs = append(corpus.IDs, id)
		corpus.Texts = append(corpus.Texts, text)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	slog.Info("corpus loaded", "documents", len(corpus.IDs))
	return corpus, nil
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.IDs)
}
