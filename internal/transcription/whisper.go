package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// WhisperTranscriber wraps Python's OpenAI Whisper for local transcription.
type WhisperTranscriber struct {
	modelName string
	tempDir   string
	mu        sync.Mutex // one whisper process at a time
}

// NewWhisperTranscriber creates a transcriber calling python -m whisper.
// Whisper availability is verified on first transcription, not here.
func NewWhisperTranscriber(modelName, tempDir string) (*WhisperTranscriber, error) {
	if modelName == "" {
		modelName = "base"
	}
	log.Printf("Initializing local Whisper with model: %s", modelName)

	return &WhisperTranscriber{
		modelName: modelName,
		tempDir:   tempDir,
	}, nil
}

// whisperOutput matches Python Whisper's JSON output format
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe processes an audio file and returns the transcript. Duration is
// taken from the last segment's end time.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	log.Printf("Transcribing with local Whisper: %s", audioPath)

	outputDir := filepath.Join(wt.tempDir, "whisper_output")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %v", err)
	}
	defer os.RemoveAll(outputDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}

	cmd := exec.CommandContext(ctx, "python", "-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False", // CPU compatibility
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %v\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %v", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %v", err)
	}

	var duration float64
	if n := len(parsed.Segments); n > 0 {
		duration = parsed.Segments[n-1].End
	}

	result := &Result{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Duration: duration,
	}

	log.Printf("Transcription completed: %d segments, %.2fs duration", len(parsed.Segments), duration)
	return result, nil
}
