package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

func newTestVectorStore(t *testing.T) *VectorStore {
	t.Helper()
	vs, err := NewVectorStore(":memory:", 3)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })
	return vs
}

func TestVectorStoreUpsertAndQuery(t *testing.T) {
	vs := newTestVectorStore(t)

	chunks := []types.Chunk{
		{Text: "cats and dogs", Start: 0, End: 10, Index: 0},
		{Text: "stock market news", Start: 10, End: 20, Index: 1},
		{Text: "feline behavior", Start: 20, End: 30, Index: 2},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	require.NoError(t, vs.Upsert("vid1", chunks, embeddings))

	hits, err := vs.Query([]float32{1, 0, 0}, "", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Exact match ranks first with score 1; the orthogonal chunk is excluded.
	assert.Equal(t, "cats and dogs", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "feline behavior", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0+1e-9)
	}
}

func TestVectorStoreQueryVideoFilter(t *testing.T) {
	vs := newTestVectorStore(t)

	require.NoError(t, vs.Upsert("vid1", []types.Chunk{{Text: "a", Index: 0}}, [][]float32{{1, 0, 0}}))
	require.NoError(t, vs.Upsert("vid2", []types.Chunk{{Text: "b", Index: 0}}, [][]float32{{1, 0, 0}}))

	hits, err := vs.Query([]float32{1, 0, 0}, "vid2", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vid2", hits[0].VideoID)
	assert.Equal(t, "b", hits[0].Text)
}

func TestVectorStoreUpsertOverwrites(t *testing.T) {
	vs := newTestVectorStore(t)

	require.NoError(t, vs.Upsert("vid1", []types.Chunk{{Text: "old", Index: 0}}, [][]float32{{1, 0, 0}}))
	require.NoError(t, vs.Upsert("vid1", []types.Chunk{{Text: "new", Index: 0}}, [][]float32{{0, 1, 0}}))

	n, err := vs.CountByVideo("vid1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := vs.Query([]float32{0, 1, 0}, "vid1", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text)
}

func TestVectorStoreDeleteByVideo(t *testing.T) {
	vs := newTestVectorStore(t)

	require.NoError(t, vs.Upsert("vid1", []types.Chunk{{Text: "a", Index: 0}, {Text: "b", Index: 1}},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, vs.Upsert("vid2", []types.Chunk{{Text: "c", Index: 0}}, [][]float32{{0, 0, 1}}))

	require.NoError(t, vs.DeleteByVideo("vid1"))

	n, err := vs.CountByVideo("vid1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = vs.CountByVideo("vid2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorStoreDimensionChecks(t *testing.T) {
	vs := newTestVectorStore(t)

	err := vs.Upsert("vid1", []types.Chunk{{Text: "a", Index: 0}}, [][]float32{{1, 0}})
	assert.Error(t, err)

	_, err = vs.Query([]float32{1, 0}, "", 5)
	assert.Error(t, err)

	err = vs.Upsert("vid1", []types.Chunk{{Text: "a", Index: 0}}, nil)
	assert.Error(t, err)
}

func TestVectorStoreEmptyUpsert(t *testing.T) {
	vs := newTestVectorStore(t)
	assert.NoError(t, vs.Upsert("vid1", nil, nil))
}

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.14159, 0}
	out, err := decodeEmbedding(encodeEmbedding(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	sim, err := cosine([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	_, err = cosine([]float32{1, 0}, []float32{1})
	assert.Error(t, err)

	_, err = cosine([]float32{0, 0}, []float32{1, 0})
	assert.Error(t, err)
}
