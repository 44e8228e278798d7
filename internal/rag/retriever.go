package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/codebuildervaibhav/video-rag/internal/ai"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// DefaultTopK is how many chunks retrieval pulls for an answer.
const DefaultTopK = 5

// maxReferences and referencePreviewLen bound the citation list attached to
// chat answers.
const (
	maxReferences       = 3
	referencePreviewLen = 100
)

// Service ties the chunker, the embedding provider and both indexes together.
// All dependencies are injected; the service owns none of their lifecycles.
type Service struct {
	embedder ai.Embedder
	llm      ai.Completer
	vectors  *VectorStore
	keywords *KeywordIndex
}

// NewService creates a retrieval service. keywords may be nil when keyword
// search is disabled.
func NewService(embedder ai.Embedder, llm ai.Completer, vectors *VectorStore, keywords *KeywordIndex) *Service {
	return &Service{
		embedder: embedder,
		llm:      llm,
		vectors:  vectors,
		keywords: keywords,
	}
}

// IndexVideo chunks a transcript, embeds the chunks and writes them into both
// indexes. Existing entries for the video are purged first so a transcript
// that shrank cannot leave stale chunks behind. An empty transcript is a
// no-op.
func (s *Service) IndexVideo(ctx context.Context, videoID, transcript string) error {
	chunks, err := ChunkTranscript(transcript, DefaultChunkSize, DefaultOverlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	if err := s.vectors.DeleteByVideo(videoID); err != nil {
		return err
	}
	if err := s.vectors.Upsert(videoID, chunks, embeddings); err != nil {
		return err
	}

	if s.keywords != nil {
		if err := s.keywords.DeleteByVideo(videoID); err != nil {
			return err
		}
		if err := s.keywords.IndexChunks(videoID, chunks); err != nil {
			return err
		}
	}

	log.Printf("Indexed %d chunks for video %s", len(chunks), videoID)
	return nil
}

// RemoveVideo purges a video's chunks from both indexes.
func (s *Service) RemoveVideo(videoID string) error {
	if err := s.vectors.DeleteByVideo(videoID); err != nil {
		return err
	}
	if s.keywords != nil {
		return s.keywords.DeleteByVideo(videoID)
	}
	return nil
}

// SearchChunks retrieves the chunks most similar to a free-text query,
// optionally scoped to one video. Returns nil when the scope has no indexed
// chunks.
func (s *Service) SearchChunks(ctx context.Context, query, videoID string, topK int) ([]types.ChunkHit, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	return s.vectors.Query(vectors[0], videoID, topK)
}

// SearchKeyword runs a bleve keyword match over indexed chunks.
func (s *Service) SearchKeyword(query, videoID string, topK int) ([]types.ChunkHit, error) {
	if s.keywords == nil {
		return nil, fmt.Errorf("keyword index is not configured")
	}
	return s.keywords.Search(query, videoID, topK)
}

// SearchHybrid merges semantic and keyword hits, preferring semantic scores
// and filling remaining slots with keyword-only matches.
func (s *Service) SearchHybrid(ctx context.Context, query, videoID string, topK int) ([]types.ChunkHit, error) {
	semantic, err := s.SearchChunks(ctx, query, videoID, topK)
	if err != nil {
		return nil, err
	}
	keyword, err := s.SearchKeyword(query, videoID, topK)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(semantic))
	for _, h := range semantic {
		seen[fmt.Sprintf("%s_%d", h.VideoID, h.Start)] = true
	}
	merged := semantic
	for _, h := range keyword {
		if len(merged) >= topK {
			break
		}
		key := fmt.Sprintf("%s_%d", h.VideoID, h.Start)
		if !seen[key] {
			merged = append(merged, h)
			seen[key] = true
		}
	}
	return merged, nil
}

// Answer holds a generated response plus the transcript spans it leaned on.
type Answer struct {
	Message    string
	References []types.Reference
}

// AnswerQuestion runs retrieval-augmented generation for one video: retrieve
// the top chunks, build a timestamp-annotated context block, and ask the LLM.
// Zero retrieved chunks still produce a generation call with an empty context;
// the model is expected to say it does not know.
func (s *Service) AnswerQuestion(ctx context.Context, videoID, videoTitle, question string) (*Answer, error) {
	chunks, err := s.SearchChunks(ctx, question, videoID, DefaultTopK)
	if err != nil {
		return nil, err
	}

	var contextBlock strings.Builder
	for i, c := range chunks {
		if i > 0 {
			contextBlock.WriteString("\n\n")
		}
		fmt.Fprintf(&contextBlock, "[%ds - %ds]: %s", c.Start, c.End, c.Text)
	}

	systemPrompt := fmt.Sprintf(`You are an AI assistant helping users understand the video %q.
Use the following transcript excerpts to answer the user's question.
Always cite the relevant timestamps when referencing content.
If the answer isn't in the provided context, say so.

Context from video transcript:
%s`, videoTitle, contextBlock.String())

	message, err := s.llm.Complete(ctx, systemPrompt, question)
	if err != nil {
		return nil, err
	}

	var references []types.Reference
	for _, c := range chunks {
		if len(references) >= maxReferences {
			break
		}
		references = append(references, types.Reference{
			Start: c.Start,
			End:   c.End,
			Text:  truncate(c.Text, referencePreviewLen),
		})
	}

	return &Answer{Message: message, References: references}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
