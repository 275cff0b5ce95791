package providers

import "time"

// BackendConfig holds the backend settings shared between config loading and
// provider construction.
type BackendConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	ModelPriority    []string      `mapstructure:"model_priority"`
	Temperature      *float32      `mapstructure:"temperature"`
	ChunkTimeout     time.Duration `mapstructure:"chunk_timeout"`
	SynthesisTimeout time.Duration `mapstructure:"synthesis_timeout"`
}
