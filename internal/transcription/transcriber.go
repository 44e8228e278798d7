package transcription

import "context"

// Result is the output of transcribing one audio file.
type Result struct {
	Text     string
	Language string
	Duration float64 // seconds
}

// Transcriber turns an audio file into text plus a duration estimate.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
