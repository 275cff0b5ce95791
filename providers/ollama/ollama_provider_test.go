package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ollama_models "github.com/openclaw/clawtographer/providers/ollama/models"
)

type recordingCounter struct {
	input  int
	output int
}

func (r *recordingCounter) CountTokens(text string) int           { return len(text) }
func (r *recordingCounter) UsedTokens(input int, output int)      { r.input += input; r.output += output }
func (r *recordingCounter) DisplayTokens(chatModel string)        {}
func (r *recordingCounter) GetCurrentTokenUsage() (int, int, int) { return 0, 0, 0 }
func (r *recordingCounter) ClearToken()                           {}

func streamLine(t *testing.T, w http.ResponseWriter, response ollama_models.OllamaChatCompletionResponse) {
	t.Helper()
	data, err := json.Marshal(response)
	require.NoError(t, err)
	fmt.Fprintf(w, "%s\n", data)
}

func TestGenerate_AccumulatesStreamedChunks(t *testing.T) {
	counter := &recordingCounter{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollama_models.OllamaChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "describe this", req.Messages[0].Content)

		streamLine(t, w, ollama_models.OllamaChatCompletionResponse{
			Message: ollama_models.Message{Role: "assistant", Content: "Hello "},
		})
		streamLine(t, w, ollama_models.OllamaChatCompletionResponse{
			Message: ollama_models.Message{Role: "assistant", Content: "world"},
		})
		streamLine(t, w, ollama_models.OllamaChatCompletionResponse{
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       7,
		})
	}))
	defer server.Close()

	backend := NewOllamaChatBackend(&OllamaConfig{
		BaseURL:         server.URL + "/api",
		ChatModel:       "test-model",
		TokenManagement: counter,
	})

	result, err := backend.Generate(context.Background(), "describe this")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result)
	assert.Equal(t, 12, counter.input)
	assert.Equal(t, 7, counter.output)
}

func TestGenerate_ErrorStatusIncludesAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ollama_models.OllamaError{Error: "model 'missing' not found"})
	}))
	defer server.Close()

	backend := NewOllamaChatBackend(&OllamaConfig{BaseURL: server.URL + "/api", ChatModel: "missing"})

	_, err := backend.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model 'missing' not found")
}

func TestGenerate_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	backend := NewOllamaChatBackend(&OllamaConfig{BaseURL: server.URL + "/api", ChatModel: "test-model"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := backend.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(ollama_models.OllamaTagsResponse{
			Models: []ollama_models.OllamaModelTag{
				{Name: "glm-4.7-flash:latest"},
				{Name: "llama3.1:8b"},
			},
		})
	}))
	defer server.Close()

	backend := NewOllamaChatBackend(&OllamaConfig{BaseURL: server.URL + "/api"})

	names, err := backend.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"glm-4.7-flash:latest", "llama3.1:8b"}, names)
}

func TestListModels_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := NewOllamaChatBackend(&OllamaConfig{BaseURL: server.URL + "/api"})

	_, err := backend.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
