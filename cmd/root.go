package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openclaw/clawtographer/code_mapper"
	"github.com/openclaw/clawtographer/config"
	"github.com/openclaw/clawtographer/constants/lipgloss"
	"github.com/openclaw/clawtographer/providers"
	"github.com/openclaw/clawtographer/providers/contracts"
	"github.com/openclaw/clawtographer/providers/ollama"
	"github.com/openclaw/clawtographer/token_management"
	contracts2 "github.com/openclaw/clawtographer/token_management/contracts"
)

// RootDependencies holds the shared dependencies built once per invocation.
type RootDependencies struct {
	Config          *config.Config
	Logger          *zap.Logger
	TokenManagement contracts2.ITokenManagement
	Backend         contracts.IChatBackend
	Cache           *code_mapper.ChunkCache
	Cwd             string
}

var rootCmd = &cobra.Command{
	Use:   "clawtographer",
	Short: "Map codebases into a single synthesized document using local LLM analysis.",
	Long: `Clawtographer scans a source tree, packs its files into token-budgeted chunks,
analyzes each chunk with a local Ollama model, and synthesizes the results into
one CODEBASE_MAP.md. Interrupted or partially failed runs resume from a durable
per-chunk cache, so already-paid-for analysis is never repeated.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Println(config.DefaultConfig.Version)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// handleRootCommand builds the dependency set every subcommand needs: config,
// logger, tokenizer, backend with a selected model, and the chunk cache.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg := config.LoadConfigs(cmd.Root(), cwd)

	logger, err := zap.NewProduction(zap.Fields(
		zap.String("appName", "Clawtographer"),
		zap.String("appVersion", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tokenManagement, err := token_management.NewTokenManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	backend, err := buildBackend(cfg, tokenManagement)
	if err != nil {
		return nil, err
	}

	cache, err := code_mapper.NewChunkCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	return &RootDependencies{
		Config:          cfg,
		Logger:          logger,
		TokenManagement: tokenManagement,
		Backend:         backend,
		Cache:           cache,
		Cwd:             cwd,
	}, nil
}

// buildBackend constructs the Ollama backend, auto-selecting a model from the
// installed set when none is configured. No reachable model is a fatal
// startup condition.
func buildBackend(cfg *config.Config, tokenManagement contracts2.ITokenManagement) (contracts.IChatBackend, error) {
	probe := ollama.NewOllamaChatBackend(&ollama.OllamaConfig{
		BaseURL:         cfg.BackendConfig.BaseURL,
		TokenManagement: tokenManagement,
	})

	model := cfg.BackendConfig.Model
	if model == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		available, err := probe.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot reach Ollama at %s: %w", cfg.BackendConfig.BaseURL, err)
		}

		model = providers.SelectModel(available, cfg.BackendConfig.ModelPriority)
		if model == "" {
			return nil, fmt.Errorf("no Ollama models found - install one with: ollama pull %s", cfg.BackendConfig.ModelPriority[0])
		}
	}

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("Using model: %s", model)))

	return ollama.NewOllamaChatBackend(&ollama.OllamaConfig{
		BaseURL:         cfg.BackendConfig.BaseURL,
		ChatModel:       model,
		Temperature:     cfg.BackendConfig.Temperature,
		TokenManagement: tokenManagement,
	}), nil
}
