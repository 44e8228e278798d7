package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps the first word of each text to a fixed vector so tests
// can control similarity ordering.
type fakeEmbedder struct {
	byFirstWord map[string][]float32
	err         error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		first := strings.Fields(text)[0]
		if v, ok := f.byFirstWord[first]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 1, 1}
		}
	}
	return out, nil
}

type fakeCompleter struct {
	systemPrompt string
	userMessage  string
	response     string
	err          error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.systemPrompt = systemPrompt
	f.userMessage = userMessage
	return f.response, f.err
}

func newTestService(t *testing.T, embedder *fakeEmbedder, llm *fakeCompleter) *Service {
	t.Helper()
	vs := newTestVectorStore(t)
	ki := newTestKeywordIndex(t)
	return NewService(embedder, llm, vs, ki)
}

func TestServiceIndexAndSearch(t *testing.T) {
	embedder := &fakeEmbedder{byFirstWord: map[string][]float32{
		"cats":   {1, 0, 0},
		"stocks": {0, 1, 0},
	}}
	svc := newTestService(t, embedder, &fakeCompleter{})
	ctx := context.Background()

	require.NoError(t, svc.IndexVideo(ctx, "v1", "cats are wonderful pets"))
	require.NoError(t, svc.IndexVideo(ctx, "v2", "stocks fell sharply today"))

	hits, err := svc.SearchChunks(ctx, "cats", "", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v1", hits[0].VideoID)
	assert.Contains(t, hits[0].Text, "cats")

	// Scoped search only sees the requested video.
	hits, err = svc.SearchChunks(ctx, "cats", "v2", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].VideoID)
}

func TestServiceReindexReplacesChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := newTestService(t, embedder, &fakeCompleter{})
	ctx := context.Background()

	require.NoError(t, svc.IndexVideo(ctx, "v1", makeWords(600)))
	n, err := svc.vectors.CountByVideo("v1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A transcript that shrank must not leave stale high-seq chunks behind.
	require.NoError(t, svc.IndexVideo(ctx, "v1", "short transcript now"))
	n, err = svc.vectors.CountByVideo("v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServiceIndexEmptyTranscript(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeCompleter{})

	require.NoError(t, svc.IndexVideo(context.Background(), "v1", "   "))
	n, err := svc.vectors.CountByVideo("v1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestServiceIndexEmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("rate limited")}
	svc := newTestService(t, embedder, &fakeCompleter{})

	err := svc.IndexVideo(context.Background(), "v1", "some transcript text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding failed")
}

func TestServiceRemoveVideo(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := newTestService(t, embedder, &fakeCompleter{})
	ctx := context.Background()

	require.NoError(t, svc.IndexVideo(ctx, "v1", "golang concurrency patterns explained"))
	require.NoError(t, svc.RemoveVideo("v1"))

	n, err := svc.vectors.CountByVideo("v1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	hits, err := svc.SearchKeyword("golang", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestServiceHybridSearchMerges(t *testing.T) {
	embedder := &fakeEmbedder{byFirstWord: map[string][]float32{
		"cats":   {1, 0, 0},
		"stocks": {0, 1, 0},
	}}
	svc := newTestService(t, embedder, &fakeCompleter{})
	ctx := context.Background()

	require.NoError(t, svc.IndexVideo(ctx, "v1", "cats are wonderful pets"))
	require.NoError(t, svc.IndexVideo(ctx, "v2", "stocks fell sharply today"))

	hits, err := svc.SearchHybrid(ctx, "cats", "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	// Semantic hit ranks first; keyword-only fills never duplicate it.
	assert.Equal(t, "v1", hits[0].VideoID)
	seen := make(map[string]int)
	for _, h := range hits {
		seen[h.VideoID+h.Text]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "duplicate hit %s", key)
	}
}

func TestServiceAnswerQuestion(t *testing.T) {
	embedder := &fakeEmbedder{byFirstWord: map[string][]float32{
		"cats": {1, 0, 0},
	}}
	llm := &fakeCompleter{response: "They are discussed at the start."}
	svc := newTestService(t, embedder, llm)
	ctx := context.Background()

	transcript := "cats " + strings.Repeat("are wonderful pets indeed ", 10)
	require.NoError(t, svc.IndexVideo(ctx, "v1", transcript))

	answer, err := svc.AnswerQuestion(ctx, "v1", "All About Cats", "cats when are they mentioned?")
	require.NoError(t, err)
	assert.Equal(t, "They are discussed at the start.", answer.Message)

	// The system prompt carries the title and timestamp-annotated context.
	assert.Contains(t, llm.systemPrompt, `"All About Cats"`)
	assert.Contains(t, llm.systemPrompt, "[0s - ")
	assert.Equal(t, "cats when are they mentioned?", llm.userMessage)

	require.Len(t, answer.References, 1)
	ref := answer.References[0]
	assert.True(t, strings.HasSuffix(ref.Text, "..."))
	assert.Len(t, ref.Text, referencePreviewLen+3)
}

func TestServiceAnswerQuestionNoChunks(t *testing.T) {
	llm := &fakeCompleter{response: "I don't have enough context to answer that."}
	svc := newTestService(t, &fakeEmbedder{}, llm)

	// Nothing indexed: generation still runs with an empty context block.
	answer, err := svc.AnswerQuestion(context.Background(), "v1", "Empty", "anything?")
	require.NoError(t, err)
	assert.Equal(t, "I don't have enough context to answer that.", answer.Message)
	assert.Empty(t, answer.References)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
