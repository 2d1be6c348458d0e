package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/marvin-labs/memoria/pkg/adapter"
	"github.com/marvin-labs/memoria/pkg/repository"
	"github.com/marvin-labs/memoria/pkg/service/alignment"
	"github.com/marvin-labs/memoria/pkg/service/embedding"
	"github.com/marvin-labs/memoria/pkg/service/research"
	"github.com/marvin-labs/memoria/pkg/usecase/memory"
	"github.com/marvin-labs/memoria/pkg/usecase/tweet"
)

// config holds configuration values
type config struct {
	logLevel string

	// Vector store
	qdrantHost string
	qdrantPort int64
	collection string
	dimension  int64

	// Metadata store
	postgresDSN string

	// LLM providers
	anthropicAPIKey string
	geminiProject   string
	geminiLocation  string

	// Policy
	alignmentThreshold float64
	minConfidence      float64
	maxInsights        int64

	// Batch job
	batchInterval time.Duration
	batchLimit    int64
	minEngagement float64
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEMORIA_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "qdrant-host",
			Usage:       "Qdrant host",
			Value:       "localhost",
			Sources:     cli.EnvVars("QDRANT_HOST"),
			Destination: &cfg.qdrantHost,
		},
		&cli.IntFlag{
			Name:        "qdrant-port",
			Usage:       "Qdrant gRPC port",
			Value:       6334,
			Sources:     cli.EnvVars("QDRANT_PORT"),
			Destination: &cfg.qdrantPort,
		},
		&cli.StringFlag{
			Name:        "collection",
			Usage:       "Qdrant collection name",
			Value:       "marvin_memory",
			Sources:     cli.EnvVars("MEMORIA_COLLECTION"),
			Destination: &cfg.collection,
		},
		&cli.IntFlag{
			Name:        "dimension",
			Usage:       "Embedding vector dimension",
			Value:       embedding.DefaultDimension,
			Sources:     cli.EnvVars("MEMORIA_DIMENSION"),
			Destination: &cfg.dimension,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "Postgres connection string for tweet cache and character data",
			Sources:     cli.EnvVars("MEMORIA_POSTGRES_DSN"),
			Destination: &cfg.postgresDSN,
		},
		&cli.FloatFlag{
			Name:        "alignment-threshold",
			Usage:       "Minimum alignment score to store a memory",
			Value:       alignment.DefaultThreshold,
			Sources:     cli.EnvVars("MEMORIA_ALIGNMENT_THRESHOLD"),
			Destination: &cfg.alignmentThreshold,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key for the research provider",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.FloatFlag{
			Name:        "min-confidence",
			Usage:       "Minimum confidence for research insights",
			Value:       research.DefaultMinConfidence,
			Sources:     cli.EnvVars("MEMORIA_MIN_CONFIDENCE"),
			Destination: &cfg.minConfidence,
		},
		&cli.IntFlag{
			Name:        "max-insights",
			Usage:       "Maximum insights per research answer",
			Value:       research.DefaultMaxInsights,
			Sources:     cli.EnvVars("MEMORIA_MAX_INSIGHTS"),
			Destination: &cfg.maxInsights,
		},
	}
}

// batchFlags returns flags for the tweet processor
func batchFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "batch-interval",
			Usage:       "Interval between scheduled tweet batches",
			Value:       6 * time.Hour,
			Sources:     cli.EnvVars("MEMORIA_BATCH_INTERVAL"),
			Destination: &cfg.batchInterval,
		},
		&cli.IntFlag{
			Name:        "batch-limit",
			Usage:       "Maximum tweets per batch",
			Value:       10,
			Sources:     cli.EnvVars("MEMORIA_BATCH_LIMIT"),
			Destination: &cfg.batchLimit,
		},
		&cli.FloatFlag{
			Name:        "min-engagement",
			Usage:       "Minimum engagement score for a tweet to be processed",
			Value:       0.7,
			Sources:     cli.EnvVars("MEMORIA_MIN_ENGAGEMENT"),
			Destination: &cfg.minEngagement,
		},
	}
}

// newMemoryStore creates the vector store adapter
func (cfg *config) newMemoryStore(ctx context.Context) (*repository.Qdrant, error) {
	if cfg.qdrantHost == "" {
		return nil, goerr.New("qdrant-host is required")
	}
	store, err := repository.NewQdrant(ctx, cfg.qdrantHost, int(cfg.qdrantPort), cfg.collection, int(cfg.dimension))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create memory store")
	}
	return store, nil
}

// newPostgres creates the relational store for tweets and character data
func (cfg *config) newPostgres() (*repository.Postgres, error) {
	if cfg.postgresDSN == "" {
		return nil, goerr.New("postgres-dsn is required")
	}
	db, err := repository.NewPostgres(cfg.postgresDSN)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}
	return db, nil
}

// newClaude creates a new Claude adapter instance
func (cfg *config) newClaude() (adapter.Claude, error) {
	if cfg.anthropicAPIKey == "" {
		return nil, goerr.New("anthropic-api-key is required")
	}
	return adapter.NewClaude(cfg.anthropicAPIKey), nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}

// usecases wires the full dependency graph for serve and process-tweets.
type usecases struct {
	memories *memory.UseCase
	tweets   *tweet.UseCase
	postgres *repository.Postgres
}

func (cfg *config) newUseCases(ctx context.Context) (*usecases, error) {
	store, err := cfg.newMemoryStore(ctx)
	if err != nil {
		return nil, err
	}
	db, err := cfg.newPostgres()
	if err != nil {
		return nil, err
	}
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}
	claude, err := cfg.newClaude()
	if err != nil {
		return nil, err
	}

	personas := repository.NewCachedPersona(db, 5*time.Minute)
	embedder := embedding.New(gemini, embedding.WithDimension(int(cfg.dimension)))
	evaluator := alignment.New(gemini)
	researcher := research.New(claude, gemini,
		research.WithMinConfidence(cfg.minConfidence),
		research.WithMaxInsights(int(cfg.maxInsights)),
	)

	memories := memory.New(store, personas, embedder, evaluator,
		memory.WithThreshold(cfg.alignmentThreshold),
	)
	tweets := tweet.New(db, personas, researcher, memories,
		tweet.WithDefaults(int(cfg.batchLimit), cfg.minEngagement),
	)

	return &usecases{memories: memories, tweets: tweets, postgres: db}, nil
}
