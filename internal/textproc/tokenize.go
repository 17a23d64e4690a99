package textproc

import (
	"regexp"
	"strings"
	"sync"

	"github.com/kljensen/snowball"
)

// wordTokenRe extracts unigram word tokens: runs of at least two letters,
// digits or underscores.
var wordTokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// defaultStopWords is the closed set of non-discriminative short words
// dropped from every document.
var defaultStopWords = map[string]struct{}{
	"от": {},
	"на": {},
	"не": {},
	"рф": {},
	"ст": {},
}

// Tokenizer converts normalized text into a sequence of stemmed terms.
//
// Stemming dominates tokenization cost, so stems are memoized in a
// process-wide cache keyed by surface form. The cache grows monotonically and
// is never evicted; the stem vocabulary of a corpus is bounded. A Tokenizer
// is safe for concurrent use: the memo is guarded, and a lost race on a miss
// costs only a redundant recomputation since stemming is pure.
type Tokenizer struct {
	language string
	stop     map[string]struct{}

	mu    sync.RWMutex
	stems map[string]string
}

// NewTokenizer creates a Tokenizer for the given stemmer language
// (e.g. "russian").
func NewTokenizer(language string) *Tokenizer {
	return &Tokenizer{
		language: language,
		stop:     defaultStopWords,
		stems:    make(map[string]string),
	}
}

// Tokenize lowercases the text, extracts word tokens, stems each one and
// drops stop words. Token order follows original appearance order; empty
// input yields an empty sequence.
func (t *Tokenizer) Tokenize(text string) []string {
	words := wordTokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := t.stop[w]; ok {
			continue
		}
		tokens = append(tokens, t.stem(w))
	}
	return tokens
}

// stem returns the memoized stem for a surface form, computing and caching it
// on first encounter.
func (t *Tokenizer) stem(word string) string {
	t.mu.RLock()
	s, ok := t.stems[word]
	t.mu.RUnlock()
	if ok {
		return s
	}

	s, err := snowball.Stem(word, t.language, false)
	if err != nil {
		// tokens the stemmer cannot handle pass through unchanged
		s = word
	}

	t.mu.Lock()
	t.stems[word] = s
	t.mu.Unlock()
	return s
}

// CacheSize returns the number of memoized stems.
func (t *Tokenizer) CacheSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.stems)
}
