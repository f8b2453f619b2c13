// Package main implements the chatbotctl CLI for operating tenant
// document stores: ingesting documents, querying, and store
// maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Sinbad21/Chatbot/internal/config"
	"github.com/Sinbad21/Chatbot/internal/embeddings"
	"github.com/Sinbad21/Chatbot/internal/logging"
	"github.com/Sinbad21/Chatbot/internal/vectorstore"
)

var (
	// configPath is the optional YAML config file; environment
	// variables override it.
	configPath string
	outputJSON bool
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatbotctl",
	Short: "Operate tenant document retrieval stores",
	Long: `chatbotctl manages per-tenant document stores: ingest text documents,
run retrieval-augmented queries, inspect store statistics, and delete
tenant stores.

Configuration is read from a YAML file (--config) and overridden by
CHATBOT_* environment variables; the OpenAI API key comes from
CHATBOT_EMBEDDING_API_KEY.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deleteTenantCmd)
}

// app bundles the collaborators shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	manager  *vectorstore.Manager
	embedder *embeddings.Generator
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	provider, err := embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
		APIKey:  cfg.Embedding.APIKey.Value(),
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	cache := embeddings.NewLRUCache(cfg.Embedding.CacheMaxEntries)
	embedder, err := embeddings.NewGenerator(provider, cache, embeddings.GeneratorConfig{
		MaxBatchSize: cfg.Embedding.MaxBatchSize,
		MaxAttempts:  cfg.Embedding.MaxAttempts,
		RetryDelay:   cfg.Embedding.RetryDelay.Duration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding generator: %w", err)
	}

	manager, err := vectorstore.NewManager(vectorstore.ManagerConfig{
		BasePath:  cfg.Store.BasePath,
		Dimension: cfg.Store.Dimension,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store manager: %w", err)
	}

	return &app{cfg: cfg, logger: logger, manager: manager, embedder: embedder}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
}
