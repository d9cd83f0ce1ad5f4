package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/veracity-io/veracity/internal/cache"
	"github.com/veracity-io/veracity/internal/embed"
	"github.com/veracity-io/veracity/internal/index"
	"github.com/veracity-io/veracity/internal/logging"
	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/nli"
	"github.com/veracity-io/veracity/internal/pipeline"
	"github.com/veracity-io/veracity/internal/store"
	"github.com/veracity-io/veracity/internal/worker"
)

// app wires the collaborators one command invocation needs. Built per
// command, torn down with Close.
type app struct {
	cfg      *model.Config
	log      *zap.Logger
	store    store.Store
	index    *index.Index
	embedder embed.Embedder
	verifier *pipeline.Verifier
	ingester *pipeline.Ingester
}

// loadConfig layers the config file and environment over the defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	// API keys come from the environment when not in the config file.
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.NLI.APIKey == "" {
		cfg.NLI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// newApp builds the full pipeline and loads the persisted index. Flag
// overrides must be applied here, before the index is loaded, so the
// loaded partition matches the tenant the command will query.
func newApp(ctx context.Context, overrides ...func(*model.Config)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	log, err := logging.New(verbose)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	limiter := worker.NewLimiter(cfg.NLI.RequestsPerSecond, cfg.NLI.Burst)

	embedder, err := embed.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	// Cache sits outside the limiter so cache hits never spend a token.
	embedder = embed.NewLimitedEmbedder(embedder, limiter)
	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		embedder = embed.NewCachedEmbedder(embedder, layered)
	}

	idx, err := index.New(cfg.Embedding.Dimension, cfg.Index.Lists, cfg.Index.ProbeBudget)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := nli.NewProvider(cfg.NLI)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	scorer := nli.NewScorer(provider, limiter, cfg.NLI, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		index:    idx,
		embedder: embedder,
		verifier: pipeline.NewVerifier(embedder, idx, scorer, st, cfg, log),
		ingester: pipeline.NewIngester(embedder, idx, st, cfg, log),
	}

	n, err := a.ingester.LoadIndex(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d evidence embeddings into the index\n", n)
	}
	return a, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing store: %v\n", err)
	}
}
