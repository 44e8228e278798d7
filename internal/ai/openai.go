package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// OpenAIProvider implements Provider against the OpenAI REST API.
type OpenAIProvider struct {
	apiKey         string
	chatModel      string
	embeddingModel string
	baseURL        string
	client         *http.Client
}

// NewOpenAIProvider creates a provider. Model names default to gpt-4o-mini and
// text-embedding-ada-002 when empty.
func NewOpenAIProvider(apiKey, chatModel, embeddingModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoProvider
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-ada-002"
	}
	return &OpenAIProvider{
		apiKey:         apiKey,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		baseURL:        "https://api.openai.com/v1",
		client:         &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the generated text.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []openAIMessage{}
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userMessage})

	reqBody := openAIChatRequest{
		Model:       p.chatModel,
		Messages:    messages,
		Temperature: 0.7,
	}

	var parsed openAIChatResponse
	if err := p.post(ctx, "/chat/completions", reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty content")
	}
	return parsed.Choices[0].Message.Content, nil
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed requests embeddings for all texts in a single batched call.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := openAIEmbeddingRequest{
		Model: p.embeddingModel,
		Input: texts,
	}

	var parsed openAIEmbeddingResponse
	if err := p.post(ctx, "/embeddings", reqBody, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	// The API is documented to return entries in input order, but the index
	// field is authoritative.
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, reqBody, out any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai error status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
