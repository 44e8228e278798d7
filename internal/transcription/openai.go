package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// APITranscriber uses the OpenAI audio transcription endpoint (whisper-1).
type APITranscriber struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAPITranscriber creates an API-backed transcriber.
func NewAPITranscriber(apiKey string) (*APITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("transcription API key not configured")
	}
	return &APITranscriber{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1/audio/transcriptions",
		// Long uploads for long videos; the pipeline has no deadline of its own.
		client: &http.Client{Timeout: 30 * time.Minute},
	}, nil
}

type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads the audio file and parses the verbose JSON response,
// which carries the duration alongside the text.
func (t *APITranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %v", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %v", err)
	}
	_ = writer.WriteField("model", "whisper-1")
	_ = writer.WriteField("response_format", "verbose_json")
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription error status %d: %s", resp.StatusCode, string(body))
	}

	var parsed verboseTranscription
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %v", err)
	}

	return &Result{
		Text:     parsed.Text,
		Language: parsed.Language,
		Duration: parsed.Duration,
	}, nil
}
