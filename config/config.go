package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openclaw/clawtographer/constants/lipgloss"
	"github.com/openclaw/clawtographer/providers"
)

// Config represents the structure of the configuration file
type Config struct {
	Version               string                   `mapstructure:"version"`
	OutputDir             string                   `mapstructure:"output_dir"`
	CacheDir              string                   `mapstructure:"cache_dir"`
	MaxTokensPerChunk     int                      `mapstructure:"max_tokens_per_chunk"`
	MaxParallelAgents     int                      `mapstructure:"max_parallel_agents"`
	IgnorePatterns        []string                 `mapstructure:"ignore_patterns"`
	SynthesisTokenCeiling int                      `mapstructure:"synthesis_token_ceiling"`
	SummaryCharCap        int                      `mapstructure:"summary_char_cap"`
	BackendConfig         *providers.BackendConfig `mapstructure:"backend_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:               "1.0.0",
	OutputDir:             "docs",
	CacheDir:              ".clawtographer_cache",
	MaxTokensPerChunk:     180000,
	MaxParallelAgents:     3,
	IgnorePatterns:        []string{".git", "__pycache__", "node_modules", "*.pyc"},
	SynthesisTokenCeiling: 100000,
	SummaryCharCap:        2000,
	BackendConfig: &providers.BackendConfig{
		BaseURL:          "http://localhost:11434/api",
		Model:            "",
		ModelPriority:    []string{"glm-4.7-flash", "qwen2.5-coder", "llama3.1", "mistral"},
		Temperature:      nil,
		ChunkTimeout:     5 * time.Minute,
		SynthesisTimeout: 4 * time.Minute,
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	// Set default values using Viper
	setDefaults()

	// Automatically read environment variables
	viper.AutomaticEnv()

	// Explicitly bind environment variables to config keys
	bindEnv()

	// Check if the user provided a config file
	if cfgFile != "" {
		// Use the config file from the flag
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error reading config file: %v", err)))
			os.Exit(1)
		}
	} else {
		// Look for configuration files in the current directory
		viper.SetConfigName("clawtographer-config")
		viper.AddConfigPath(cwd)

		// Support both JSON and YAML formats
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			// If YAML fails, try JSON
			viper.SetConfigType("json")
			if err := viper.ReadInConfig(); err != nil {
				// If both fail, we'll continue with defaults
				fmt.Println(lipgloss.Yellow.Render("No configuration file found, using defaults"))
			}
		}
	}

	// Bind CLI flags to override config values
	bindFlags(rootCmd)

	// Unmarshal the configuration into the Config struct
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Unable to decode into struct: %v", err)))
		os.Exit(1)
	}

	return config
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("output_dir", DefaultConfig.OutputDir)
	viper.SetDefault("cache_dir", DefaultConfig.CacheDir)
	viper.SetDefault("max_tokens_per_chunk", DefaultConfig.MaxTokensPerChunk)
	viper.SetDefault("max_parallel_agents", DefaultConfig.MaxParallelAgents)
	viper.SetDefault("ignore_patterns", DefaultConfig.IgnorePatterns)
	viper.SetDefault("synthesis_token_ceiling", DefaultConfig.SynthesisTokenCeiling)
	viper.SetDefault("summary_char_cap", DefaultConfig.SummaryCharCap)
	viper.SetDefault("backend_config.base_url", DefaultConfig.BackendConfig.BaseURL)
	viper.SetDefault("backend_config.model", DefaultConfig.BackendConfig.Model)
	viper.SetDefault("backend_config.model_priority", DefaultConfig.BackendConfig.ModelPriority)
	viper.SetDefault("backend_config.temperature", DefaultConfig.BackendConfig.Temperature)
	viper.SetDefault("backend_config.chunk_timeout", "5m")
	viper.SetDefault("backend_config.synthesis_timeout", "4m")
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("output_dir", "OUTPUT_DIR")
	_ = viper.BindEnv("cache_dir", "CACHE_DIR")
	_ = viper.BindEnv("max_tokens_per_chunk", "MAX_TOKENS_PER_CHUNK")
	_ = viper.BindEnv("max_parallel_agents", "MAX_PARALLEL_AGENTS")
	_ = viper.BindEnv("backend_config.base_url", "BASE_URL")
	_ = viper.BindEnv("backend_config.model", "MODEL")
	_ = viper.BindEnv("backend_config.temperature", "TEMPERATURE")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output_dir"))
	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache_dir"))
	_ = viper.BindPFlag("max_tokens_per_chunk", rootCmd.PersistentFlags().Lookup("max_tokens_per_chunk"))
	_ = viper.BindPFlag("max_parallel_agents", rootCmd.PersistentFlags().Lookup("max_parallel_agents"))
	_ = viper.BindPFlag("ignore_patterns", rootCmd.PersistentFlags().Lookup("ignore_patterns"))
	_ = viper.BindPFlag("backend_config.base_url", rootCmd.PersistentFlags().Lookup("base_url"))
	_ = viper.BindPFlag("backend_config.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("backend_config.chunk_timeout", rootCmd.PersistentFlags().Lookup("chunk_timeout"))
	_ = viper.BindPFlag("backend_config.synthesis_timeout", rootCmd.PersistentFlags().Lookup("synthesis_timeout"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("output_dir", DefaultConfig.OutputDir, "Directory where the final codebase map and timestamp record are written.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory holding per-chunk analysis cache entries between runs.")
	rootCmd.PersistentFlags().Int("max_tokens_per_chunk", DefaultConfig.MaxTokensPerChunk, "Token budget for packing files into one analysis chunk.")
	rootCmd.PersistentFlags().Int("max_parallel_agents", DefaultConfig.MaxParallelAgents, "Number of chunks analyzed concurrently against the backend.")
	rootCmd.PersistentFlags().StringSlice("ignore_patterns", DefaultConfig.IgnorePatterns, "Substring patterns; any file whose path contains one is excluded from the scan.")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")

	// Backend configuration
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.BackendConfig.BaseURL, "The base URL of the local Ollama API.")
	rootCmd.PersistentFlags().String("model", DefaultConfig.BackendConfig.Model, "The model used for analysis; empty auto-selects from installed models.")
	rootCmd.PersistentFlags().Duration("chunk_timeout", DefaultConfig.BackendConfig.ChunkTimeout, "Timeout for a single chunk analysis call.")
	rootCmd.PersistentFlags().Duration("synthesis_timeout", DefaultConfig.BackendConfig.SynthesisTimeout, "Timeout for the final synthesis call.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
