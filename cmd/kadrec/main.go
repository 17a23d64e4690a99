package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aekrylov/kadrec/internal/config"
	"github.com/aekrylov/kadrec/internal/corpus"
	"github.com/aekrylov/kadrec/internal/eval"
	"github.com/aekrylov/kadrec/internal/model"
	"github.com/aekrylov/kadrec/internal/ratings"
	"github.com/aekrylov/kadrec/internal/serve"
	"github.com/aekrylov/kadrec/internal/spinner"
	"github.com/aekrylov/kadrec/internal/textproc"
	"github.com/aekrylov/kadrec/internal/vocab"
)

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// selectedKinds reads the model variant flags; no flag means every variant.
func selectedKinds(cmd *cobra.Command) []model.Kind {
	picked := map[model.Kind]bool{}
	for flag, kind := range map[string]model.Kind{
		"lsi": model.KindLSI, "lda": model.KindLDA,
		"artm": model.KindARTM, "d2v": model.KindDoc2Vec,
	} {
		if on, _ := cmd.Flags().GetBool(flag); on {
			picked[kind] = true
		}
	}
	if len(picked) == 0 {
		return model.Kinds
	}
	var out []model.Kind
	for _, k := range model.Kinds {
		if picked[k] {
			out = append(out, k)
		}
	}
	return out
}

// variantFlagsGiven reports whether the user named any model variant
// explicitly.
func variantFlagsGiven(cmd *cobra.Command) bool {
	for _, f := range []string{"lsi", "lda", "artm", "d2v"} {
		if cmd.Flags().Changed(f) {
			return true
		}
	}
	return false
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("lsi", false, "Select the latent semantic indexing model")
	cmd.Flags().Bool("lda", false, "Select the latent Dirichlet allocation model")
	cmd.Flags().Bool("artm", false, "Select the additively regularized topic model")
	cmd.Flags().Bool("d2v", false, "Select the paragraph embedding model")
}

func newPipeline(cfg config.Config) (*textproc.Normalizer, *textproc.Tokenizer) {
	opts := textproc.DefaultOptions()
	opts.NumDigits = cfg.NumDigits
	opts.CollapseOrgs = cfg.CollapseOrgs
	return textproc.NewNormalizer(opts), textproc.NewTokenizer("russian")
}

// rawIDs enumerates scraped document ids under the raw tree.
func rawIDs(dir string) ([]string, error) {
	var ids []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		ids = append(ids, strings.TrimSuffix(filepath.Base(path), ".html"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate raw documents: %w", err)
	}
	return ids, nil
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Extract, normalize and vectorize the corpus",
	Long: `Prepare runs the offline corpus pipeline: every scraped ruling is
extracted, filtered, normalized into the text cache, then tokenized and
vectorized into the corpus snapshot the other commands read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		norm, tok := newPipeline(cfg)
		readable, _ := cmd.Flags().GetBool("readability")
		cache := corpus.NewCache(cfg.CacheDir, norm, &corpus.FileExtractor{Dir: cfg.RawDir, Readability: readable})

		ids, err := rawIDs(cfg.RawDir)
		if err != nil {
			return err
		}

		prog := spinner.New(ctx, os.Stderr, "normalizing documents")
		prog.Start()
		kept, excluded := 0, 0
		for i, id := range ids {
			if ctx.Err() != nil {
				prog.Stop()
				return ctx.Err()
			}
			if _, err := cache.GetOrCompute(id); err != nil {
				if errors.Is(err, corpus.ErrExcluded) {
					excluded++
					continue
				}
				prog.Stop()
				return err
			}
			kept++
			if i%500 == 0 {
				prog.Phase(fmt.Sprintf("normalizing documents %d/%d", i, len(ids)))
			}
		}
		prog.Phase("building snapshot")

		c, err := cache.Load(cfg.NSamples)
		if err != nil {
			prog.Stop()
			return err
		}
		snap := corpus.BuildSnapshot(c, tok, vocab.BuildOptions{
			MinDocFreq: cfg.MinDocFreq,
			MaxDocFrac: cfg.MaxDocFrac,
		})
		if err := snap.Save(cfg.SnapshotPath); err != nil {
			prog.Stop()
			return err
		}
		prog.Stop()

		slog.Info("corpus prepared", "kept", kept, "excluded", excluded,
			"vocabulary", snap.Dict.Size(), "snapshot", cfg.SnapshotPath)
		return nil
	},
}

// fitOne trains a single model variant against the snapshot. The embedding
// model needs raw token sequences, so it re-tokenizes the cached texts.
func fitOne(cfg config.Config, kind model.Kind, snap *corpus.Snapshot, nTopics int) (model.Model, error) {
	switch kind {
	case model.KindLSI:
		return model.FitLSI(snap.Bows, snap.Dict, nTopics)
	case model.KindLDA:
		opts := model.DefaultLDAOptions()
		opts.Seed = cfg.Seed
		return model.FitLDA(snap.Bows, snap.Dict, nTopics, opts)
	case model.KindARTM:
		opts := model.DefaultARTMOptions()
		opts.Seed = int64(cfg.Seed)
		return model.FitARTM(snap.Bows, snap.Dict, nTopics, opts)
	case model.KindDoc2Vec:
		// the snapshot id list is the positional contract; the training
		// corpus must follow it exactly even if the cache gained or lost
		// entries since prepare ran
		norm, tok := newPipeline(cfg)
		cache := corpus.NewCache(cfg.CacheDir, norm, &corpus.FileExtractor{Dir: cfg.RawDir})
		texts, err := cache.TextsFor(snap.IDs)
		if err != nil {
			return nil, fmt.Errorf("cache diverged from snapshot, run prepare again: %w", err)
		}
		tokenized := make([][]string, len(texts))
		for i, text := range texts {
			tokenized[i] = tok.Tokenize(text)
		}
		opts := model.DefaultDoc2VecOptions()
		opts.Seed = int64(cfg.Seed)
		return model.FitDoc2Vec(tokenized, nTopics, opts)
	}
	return nil, fmt.Errorf("unknown model kind %q", kind)
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit similarity models on the prepared corpus",
	Long: `Train fits the selected model variants against the corpus snapshot
and persists each fitted model under the models directory. With no variant
flag every variant is trained.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		snap, err := corpus.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("no corpus snapshot, run prepare first: %w", err)
		}
		if err := os.MkdirAll(cfg.ModelsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create models directory: %w", err)
		}

		prog := spinner.New(ctx, os.Stderr, "fitting")
		prog.Start()
		defer prog.Stop()

		for _, kind := range selectedKinds(cmd) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			prog.Phase("fitting " + string(kind))

			m, err := fitOne(cfg, kind, snap, cfg.NTopics)
			if err != nil {
				return fmt.Errorf("fitting %s: %w", kind, err)
			}
			path := cfg.ModelPath(string(kind))
			if err := model.Save(path, m); err != nil {
				return fmt.Errorf("saving %s: %w", kind, err)
			}
			slog.Info("model fitted", "kind", kind, "topics", cfg.NTopics, "path", path)
		}
		return nil
	},
}

// sweepResult is one line of the topic-count sweep report.
type sweepResult struct {
	Model  string      `json:"model"`
	Topics int         `json:"topics"`
	Scores eval.Scores `json:"scores"`
}

// queryFor builds the evaluator's per-document query function for a variant.
func queryFor(kind model.Kind, snap *corpus.Snapshot) func(doc int) model.Query {
	return func(doc int) model.Query {
		if kind == model.KindDoc2Vec {
			return model.Query{Self: doc}
		}
		return model.VectorQuery(snap.Bows[doc], doc)
	}
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score fitted models against collected relevance ratings",
	Long: `Eval replays the collected relevance ratings against the selected
models and reports ranking quality as JSON on stdout. With --sweep it refits
each selected variant at several topic counts instead of loading persisted
models, reporting one score line per (variant, topic count) pair.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		snap, err := corpus.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("no corpus snapshot, run prepare first: %w", err)
		}

		store, err := ratings.Open(cfg.RatingsDB)
		if err != nil {
			return fmt.Errorf("opening ratings store: %w", err)
		}
		defer store.Close()
		rs, err := store.All(ctx)
		if err != nil {
			return err
		}
		cutOff, _ := cmd.Flags().GetInt("cutoff")
		ev := eval.New(rs, cutOff)
		ev.TopN = cfg.TopN
		if ev.Len() == 0 {
			return fmt.Errorf("no evaluable documents: %d ratings, cutoff %d", len(rs), cutOff)
		}

		var results []sweepResult
		sweep, _ := cmd.Flags().GetIntSlice("sweep")
		if len(sweep) > 0 {
			for _, kind := range selectedKinds(cmd) {
				for _, topics := range sweep {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					m, err := fitOne(cfg, kind, snap, topics)
					if err != nil {
						return fmt.Errorf("fitting %s with %d topics: %w", kind, topics, err)
					}
					results = append(results, sweepResult{
						Model:  string(kind),
						Topics: topics,
						Scores: ev.Evaluate(m, queryFor(kind, snap)),
					})
				}
			}
		} else {
			for _, kind := range selectedKinds(cmd) {
				m, err := model.Load(cfg.ModelPath(string(kind)))
				if err != nil {
					return fmt.Errorf("loading %s model, run train first: %w", kind, err)
				}
				results = append(results, sweepResult{
					Model:  string(kind),
					Topics: cfg.NTopics,
					Scores: ev.Evaluate(m, queryFor(kind, snap)),
				})
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// loadModels restores fitted model blobs from the models directory. When
// explicit is set every requested variant's blob must exist; otherwise
// missing variants are disabled with a warning, and only a fully empty set
// is fatal.
func loadModels(cfg config.Config, kinds []model.Kind, explicit bool) (map[model.Kind]model.Model, error) {
	models := make(map[model.Kind]model.Model)
	for _, kind := range kinds {
		path := cfg.ModelPath(string(kind))
		m, err := model.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !explicit {
				slog.Warn("model blob missing, variant disabled", "kind", kind, "path", path)
				continue
			}
			return nil, fmt.Errorf("loading %s model, run train first: %w", kind, err)
		}
		models[kind] = m
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no fitted models in %s, run train first", cfg.ModelsDir)
	}
	return models, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the similarity API over HTTP",
	Long: `Serve loads the corpus snapshot and the fitted models and answers
similarity and rating requests over HTTP. With no variant flag every variant
whose blob exists is served; naming variants makes each one mandatory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		snap, err := corpus.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("no corpus snapshot, run prepare first: %w", err)
		}

		models, err := loadModels(cfg, selectedKinds(cmd), variantFlagsGiven(cmd))
		if err != nil {
			return err
		}

		store, err := ratings.Open(cfg.RatingsDB)
		if err != nil {
			return fmt.Errorf("opening ratings store: %w", err)
		}
		defer store.Close()

		norm, tok := newPipeline(cfg)
		svc, err := serve.NewService(snap, models, norm, tok, store)
		if err != nil {
			return err
		}
		return serve.NewServer(svc, cfg.TopN).Start(cfg.Listen)
	},
}

var rootCmd = &cobra.Command{
	Use:   "kadrec",
	Short: "Similar-document recommendation for arbitration court rulings",
	Long: `Kadrec builds a similarity corpus from scraped arbitration court
rulings, fits topic and embedding models over it, and serves top-N similar
document recommendations.

Typical flow:
  kadrec prepare
  kadrec train --lsi --lda
  kadrec serve`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "kadrec.toml", "Path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	prepareCmd.Flags().Bool("readability", false, "Extract main content instead of full page text")

	addModelFlags(trainCmd)
	addModelFlags(evalCmd)
	addModelFlags(serveCmd)
	evalCmd.Flags().Int("cutoff", eval.DefaultCutOff, "Minimum judged candidates per evaluable document")
	evalCmd.Flags().IntSlice("sweep", nil, "Topic counts to refit and compare, e.g. --sweep 100,200,300")

	rootCmd.AddCommand(prepareCmd, trainCmd, evalCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
