package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openclaw/clawtographer/providers/contracts"
	ollama_models "github.com/openclaw/clawtographer/providers/ollama/models"
	contracts2 "github.com/openclaw/clawtographer/token_management/contracts"
)

// OllamaConfig implements the chat backend against a local Ollama server.
type OllamaConfig struct {
	BaseURL         string
	ChatModel       string
	Temperature     *float32
	TokenManagement contracts2.ITokenManagement
	client          *http.Client
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

// NewOllamaChatBackend initializes a new Ollama backend.
func NewOllamaChatBackend(config *OllamaConfig) contracts.IChatBackend {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OllamaConfig{
		BaseURL:         baseURL,
		ChatModel:       config.ChatModel,
		Temperature:     config.Temperature,
		TokenManagement: config.TokenManagement,
		client:          &http.Client{},
	}
}

func (ollamaProvider *OllamaConfig) Model() string {
	return ollamaProvider.ChatModel
}

// Generate sends one chat request and accumulates the streamed response into a
// single string. The per-call deadline is the caller's via ctx.
func (ollamaProvider *OllamaConfig) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollama_models.OllamaChatCompletionRequest{
		Model: ollamaProvider.ChatModel,
		Messages: []ollama_models.Message{
			{Role: "user", Content: prompt},
		},
		Stream:      true,
		Temperature: ollamaProvider.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ollamaProvider.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiError ollama_models.OllamaError
		if err := json.Unmarshal(body, &apiError); err != nil || apiError.Error == "" {
			return "", fmt.Errorf("API request failed with status code '%d'", resp.StatusCode)
		}
		return "", fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, apiError.Error)
	}

	var output strings.Builder
	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("error reading stream: %w", err)
		}

		var response ollama_models.OllamaChatCompletionResponse
		if err := json.Unmarshal([]byte(line), &response); err != nil {
			return "", fmt.Errorf("error unmarshalling chunk: %w", err)
		}

		output.WriteString(response.Message.Content)

		if response.Done {
			if response.PromptEvalCount > 0 && ollamaProvider.TokenManagement != nil {
				ollamaProvider.TokenManagement.UsedTokens(response.PromptEvalCount, response.EvalCount)
			}
			break
		}
	}

	return strings.TrimSpace(output.String()), nil
}

// ListModels returns the names of locally installed models via /api/tags.
func (ollamaProvider *OllamaConfig) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/tags", ollamaProvider.BaseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := ollamaProvider.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error listing models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code '%d'", resp.StatusCode)
	}

	var tags ollama_models.OllamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("error decoding tags response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, model := range tags.Models {
		names = append(names, model.Name)
	}
	return names, nil
}
