package models

// Message is one turn of an Ollama chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaChatCompletionRequest is the request body for /api/chat.
type OllamaChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float32  `json:"temperature,omitempty"`
}

// OllamaChatCompletionResponse is one streamed line of the /api/chat response.
type OllamaChatCompletionResponse struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// OllamaTagsResponse is the response body for /api/tags.
type OllamaTagsResponse struct {
	Models []OllamaModelTag `json:"models"`
}

// OllamaModelTag describes one locally installed model.
type OllamaModelTag struct {
	Name string `json:"name"`
}

// OllamaError is the error envelope returned for non-200 responses.
type OllamaError struct {
	Error string `json:"error"`
}
