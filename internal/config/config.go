// Package config loads the pipeline configuration from a TOML file and
// supplies defaults for everything the file leaves out.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds every tunable the commands share. Paths are resolved
// relative to the working directory unless absolute.
type Config struct {
	// Paths to the pipeline artifacts.
	RawDir       string `toml:"raw_dir"`
	CacheDir     string `toml:"cache_dir"`
	SnapshotPath string `toml:"snapshot_path"`
	ModelsDir    string `toml:"models_dir"`
	RatingsDB    string `toml:"ratings_db"`

	// Corpus and vocabulary tunables.
	NSamples   int     `toml:"n_samples"`
	MinDocFreq int     `toml:"min_doc_freq"`
	MaxDocFrac float64 `toml:"max_doc_frac"`

	// Normalization tunables.
	NumDigits    int  `toml:"num_digits"`
	CollapseOrgs bool `toml:"collapse_orgs"`

	// Model tunables.
	NTopics int    `toml:"n_topics"`
	Seed    uint64 `toml:"seed"`

	// Serving.
	Listen string `toml:"listen"`
	TopN   int    `toml:"top_n"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		RawDir:       "data/raw",
		CacheDir:     "data/cache",
		SnapshotPath: "data/snapshot.gob",
		ModelsDir:    "data/models",
		RatingsDB:    "data/ratings.db",
		NSamples:     0, // unlimited
		MinDocFreq:   10,
		MaxDocFrac:   0.66,
		NumDigits:    5,
		CollapseOrgs: false,
		NTopics:      200,
		Seed:         1,
		Listen:       ":8080",
		TopN:         20,
	}
}

// Load reads a TOML config file and overlays it on the defaults. A missing
// file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

// ModelPath returns the blob path for a model variant inside ModelsDir.
func (c Config) ModelPath(kind string) string {
	return filepath.Join(c.ModelsDir, "model."+kind)
}

func (c Config) validate() error {
	if c.NTopics <= 0 {
		return fmt.Errorf("n_topics must be positive, got %d", c.NTopics)
	}
	if c.MinDocFreq < 0 {
		return fmt.Errorf("min_doc_freq must not be negative, got %d", c.MinDocFreq)
	}
	if c.MaxDocFrac <= 0 || c.MaxDocFrac > 1 {
		return fmt.Errorf("max_doc_frac must be in (0, 1], got %v", c.MaxDocFrac)
	}
	if c.NumDigits < 1 {
		return fmt.Errorf("num_digits must be at least 1, got %d", c.NumDigits)
	}
	return nil
}
