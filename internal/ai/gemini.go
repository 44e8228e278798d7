package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GeminiProvider implements Provider against the Google Generative Language
// REST API.
type GeminiProvider struct {
	apiKey         string
	chatModel      string
	embeddingModel string
	baseURL        string
	client         *http.Client
}

// NewGeminiProvider creates a provider. Model names default to
// gemini-1.5-flash and embedding-001 when empty.
func NewGeminiProvider(apiKey, chatModel, embeddingModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNoProvider
	}
	if chatModel == "" {
		chatModel = "gemini-1.5-flash"
	}
	if embeddingModel == "" {
		embeddingModel = "embedding-001"
	}
	return &GeminiProvider{
		apiKey:         apiKey,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		baseURL:        "https://generativelanguage.googleapis.com/v1beta",
		client:         &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "google" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete generates text. Gemini has no separate system role on this
// endpoint, so the system prompt is prepended to the user message.
func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	prompt := userMessage
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\nUser: " + userMessage
	}

	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.chatModel, p.apiKey)

	var parsed geminiGenerateResponse
	if err := p.post(ctx, url, reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned empty content")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed requests one embedding per text. The embedContent endpoint takes a
// single document, so texts are embedded sequentially.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", p.baseURL, p.embeddingModel, p.apiKey)

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		reqBody := geminiEmbedRequest{
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}

		var parsed geminiEmbedResponse
		if err := p.post(ctx, url, reqBody, &parsed); err != nil {
			return nil, err
		}
		if len(parsed.Embedding.Values) == 0 {
			return nil, fmt.Errorf("gemini returned empty embedding")
		}
		vectors = append(vectors, parsed.Embedding.Values)
	}
	return vectors, nil
}

func (p *GeminiProvider) post(ctx context.Context, url string, reqBody, out any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini error status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
