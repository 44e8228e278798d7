package rag

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// Default chunking parameters: 500-word windows with a 50-word overlap.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// wordsPerSecond is the assumed speaking rate (~150 wpm) used to estimate
// chunk timestamps from word offsets.
const wordsPerSecond = 2.5

// ChunkTranscript splits transcript text into overlapping word-window chunks
// with estimated timestamps. Consecutive chunks share `overlap` words and
// sequence indices run 0..n-1 with no gaps. The function is pure: identical
// input always produces identical output, which keeps re-indexing idempotent.
//
// An empty transcript yields no chunks. overlap must be smaller than
// chunkSize or the window would never advance.
func ChunkTranscript(text string, chunkSize, overlap int) ([]types.Chunk, error) {
	if chunkSize <= 0 || overlap <= 0 {
		return nil, fmt.Errorf("chunk size and overlap must be positive (got %d, %d)", chunkSize, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	var chunks []types.Chunk
	step := chunkSize - overlap

	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[i:end]

		chunks = append(chunks, types.Chunk{
			Text:  strings.Join(chunkWords, " "),
			Start: int(float64(i) / wordsPerSecond),
			End:   int(float64(i+len(chunkWords)) / wordsPerSecond),
			Index: len(chunks),
		})
	}

	return chunks, nil
}
