// Package corpus manages the normalized-text document store: extraction of
// plain text from scraped markup, the on-disk normalization cache, and the
// persisted corpus snapshot that fixes the positional document-id contract
// shared by every downstream model.
package corpus

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// HTMLText extracts the full plain text of an HTML document.
// Court-record pages carry the whole ruling in the body, so no content
// filtering is applied.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text(), nil
	}
	return body.Text(), nil
}

// MainContent extracts the readable main content of a full web page,
// stripping navigation and boilerplate. Used for pages scraped from portals
// that wrap the ruling in site chrome.
func MainContent(r io.Reader) (string, error) {
	article, err := readability.FromReader(r, &url.URL{})
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}
	return article.TextContent, nil
}

// FileExtractor reads scraped HTML documents from a sharded directory layout
// and extracts their plain text. It sits at the boundary to the out-of-scope
// crawler, which produces the files.
type FileExtractor struct {
	// Dir is the root of the scraped-document tree.
	Dir string
	// Readability selects main-content extraction instead of full body text.
	Readability bool
}

// Extract reads and parses the document with the given id.
func (e *FileExtractor) Extract(id string) (string, error) {
	f, err := os.Open(filepath.Join(e.Dir, shardPrefix(id), id+".html"))
	if err != nil {
		return "", fmt.Errorf("failed to open document %s: %w", id, err)
	}
	defer f.Close()

	if e.Readability {
		return MainContent(f)
	}
	return HTMLText(f)
}

// shardPrefix returns the case-insensitive two-character shard directory for
// a document id, keeping directory sizes manageable at tens of thousands of
// files.
func shardPrefix(id string) string {
	s := strings.ToLower(id)
	if len(s) < 2 {
		return s
	}
	return s[:2]
}
