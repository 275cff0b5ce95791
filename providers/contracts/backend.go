package contracts

import "context"

// IChatBackend is the text-generation backend behind the analysis pipeline.
// Generate blocks until the full response is accumulated or ctx expires.
type IChatBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Model() string
}
