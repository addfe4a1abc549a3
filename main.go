package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phronesis/agent"
	"phronesis/config"
	"phronesis/db"
	"phronesis/interview"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phronesis",
	Short: "Archetype interview that ends in a structured self-report",
	Long: `phronesis walks a user through picking a location and a tool archetype,
holds a short dialogue with Gemini and records the closing report.

Run "phronesis serve" for the HTTP API or "phronesis chat" for a terminal session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
		}

		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the collaborators shared by both front-ends
type app struct {
	cfg       *config.Config
	registry  *interview.Registry
	conductor *interview.Conductor
	store     db.ResultStore
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	chat, err := newChatClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := openResultStore(ctx, cfg)

	var sink interview.ResultSink
	if store != nil {
		sink = store
	}

	return &app{
		cfg: cfg,
		registry: interview.NewRegistry(interview.Options{
			ClosingThreshold: cfg.ClosingThreshold,
			Catalog:          cfg.Catalog,
		}),
		conductor: interview.NewConductor(chat, sink, logger),
		store:     store,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("closing result store", zap.Error(err))
		}
	}
}

func newChatClient(ctx context.Context, cfg *config.Config) (interview.ChatClient, error) {
	if cfg.UseMockLLM {
		logger.Warn("USE_MOCK_LLM is set, replies come from the offline mock")
		return agent.NewMockClient(), nil
	}

	client, err := agent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SystemInstruction)
	if err != nil {
		return nil, err
	}
	logger.Info("using gemini", zap.String("model", client.Model()))
	return client, nil
}

// openResultStore connects the configured backend. Persistence is best
// effort: any failure is logged and the interview runs without it.
func openResultStore(ctx context.Context, cfg *config.Config) db.ResultStore {
	switch cfg.ResultsBackend {
	case config.BackendMongo:
		if cfg.MongoURI == "" {
			logger.Warn("MONGODB_URI is not set, results will not be persisted")
			return nil
		}
		if err := db.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase); err != nil {
			logger.Warn("failed to connect to MongoDB, results will not be persisted", zap.Error(err))
			return nil
		}
		store := db.NewMongoResultStore()
		if err := store.CreateResultIndexes(ctx); err != nil {
			logger.Warn("failed to create result indexes", zap.Error(err))
		}
		logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return store

	case config.BackendSQLite:
		store, err := db.NewSQLiteResultStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Warn("failed to open SQLite, results will not be persisted", zap.Error(err))
			return nil
		}
		logger.Info("using SQLite results store", zap.String("path", cfg.SQLitePath))
		return store

	default:
		logger.Info("result persistence disabled")
		return nil
	}
}
