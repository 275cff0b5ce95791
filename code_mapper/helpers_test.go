package code_mapper

import (
	"context"
	"sync"
)

// fakeBackend records calls and delegates generation to a configurable func.
type fakeBackend struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	generate func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.generate != nil {
		return f.generate(ctx, prompt)
	}
	return "analysis: " + prompt[:min(40, len(prompt))], nil
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func (f *fakeBackend) Model() string {
	return "fake-model"
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCounter is a deterministic token counter for tests.
type fakeCounter struct {
	count func(text string) int
}

func (f *fakeCounter) CountTokens(text string) int {
	if f.count != nil {
		return f.count(text)
	}
	return (len(text) + 3) / 4
}

func (f *fakeCounter) UsedTokens(inputToken int, outputToken int) {}
func (f *fakeCounter) DisplayTokens(chatModel string)             {}
func (f *fakeCounter) GetCurrentTokenUsage() (int, int, int)      { return 0, 0, 0 }
func (f *fakeCounter) ClearToken()                                {}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
