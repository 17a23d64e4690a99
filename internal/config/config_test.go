package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "n_topics = 300\nnum_digits = 4\nlisten = \":9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.NTopics != 300 {
		t.Errorf("NTopics = %d, want 300", cfg.NTopics)
	}
	if cfg.NumDigits != 4 {
		t.Errorf("NumDigits = %d, want 4", cfg.NumDigits)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9000")
	}
	// untouched keys keep their defaults
	if cfg.MinDocFreq != Default().MinDocFreq {
		t.Errorf("MinDocFreq = %d, want default %d", cfg.MinDocFreq, Default().MinDocFreq)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero topics", "n_topics = 0\n"},
		{"negative min doc freq", "min_doc_freq = -1\n"},
		{"doc frac above one", "max_doc_frac = 1.5\n"},
		{"zero num digits", "num_digits = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted invalid config, want error")
			}
		})
	}
}

func TestModelPath(t *testing.T) {
	cfg := Default()
	cfg.ModelsDir = "/tmp/models"
	if got, want := cfg.ModelPath("lsi"), filepath.Join("/tmp/models", "model.lsi"); got != want {
		t.Errorf("ModelPath = %q, want %q", got, want)
	}
}
