package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTMLText(t *testing.T) {
	html := `<html><head><title>ignored</title></head>
<body><div>Арбитражный суд <b>установил:</b> взыскать долг.</div></body></html>`

	text, err := HTMLText(strings.NewReader(html))
	if err != nil {
		t.Fatalf("HTMLText: %v", err)
	}
	if !strings.Contains(text, "установил:") {
		t.Errorf("expected body text in output, got %q", text)
	}
	if strings.Contains(text, "ignored") {
		t.Error("head content leaked into extracted text")
	}
}

func TestFileExtractor(t *testing.T) {
	dir := t.TempDir()
	id := "A40-12345"
	shard := filepath.Join(dir, "a4")
	if err := os.MkdirAll(shard, 0o755); err != nil {
		t.Fatal(err)
	}
	html := "<html><body>решение по делу</body></html>"
	if err := os.WriteFile(filepath.Join(shard, id+".html"), []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	ext := &FileExtractor{Dir: dir}
	text, err := ext.Extract(id)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "решение по делу") {
		t.Errorf("Extract = %q, want document text", text)
	}

	if _, err := ext.Extract("A40-99999"); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestShardPrefix(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"A40-12345", "a4"},
		{"ab", "ab"},
		{"x", "x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shardPrefix(tt.id); got != tt.want {
			t.Errorf("shardPrefix(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
