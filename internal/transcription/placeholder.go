package transcription

import (
	"context"
	"fmt"
	"path/filepath"
)

// PlaceholderTranscriber produces a fixed transcript without calling any
// backend. Used for keyless development deployments so the rest of the
// pipeline stays exercisable.
type PlaceholderTranscriber struct{}

// Transcribe returns a deterministic placeholder transcript.
func (PlaceholderTranscriber) Transcribe(_ context.Context, audioPath string) (*Result, error) {
	name := filepath.Base(audioPath)
	return &Result{
		Text: fmt.Sprintf("This is a placeholder transcript for %s. "+
			"Configure a transcription backend to produce real text.", name),
		Language: "en",
		Duration: 0,
	}, nil
}
