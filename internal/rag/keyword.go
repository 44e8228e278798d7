package rag

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// KeywordIndex is a bleve full-text index over transcript chunks. It backs
// the keyword and hybrid modes of /search; the vector store stays the source
// of truth for semantic retrieval.
type KeywordIndex struct {
	index bleve.Index
}

// chunkDoc is the shape bleve indexes per chunk.
type chunkDoc struct {
	VideoID string `json:"video_id"`
	Content string `json:"content"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// OpenKeywordIndex opens the index at dir, creating it when absent.
func OpenKeywordIndex(dir string) (*KeywordIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("create keyword index parent: %w", err)
	}
	index, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(dir, buildChunkMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

// NewMemKeywordIndex builds an in-memory index, used by tests and the
// reindex tool.
func NewMemKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildChunkMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{index: index}, nil
}

func buildChunkMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	videoField := bleve.NewTextFieldMapping()
	videoField.Store = true
	videoField.Index = true
	videoField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("video_id", videoField)

	timeField := bleve.NewNumericFieldMapping()
	timeField.Store = true
	timeField.Index = false
	docMapping.AddFieldMappingsAt("start", timeField)
	docMapping.AddFieldMappingsAt("end", timeField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexChunks adds a video's chunks, keyed the same "{video_id}_{seq}" way as
// the vector store.
func (ki *KeywordIndex) IndexChunks(videoID string, chunks []types.Chunk) error {
	batch := ki.index.NewBatch()
	for _, c := range chunks {
		id := fmt.Sprintf("%s_%d", videoID, c.Index)
		if err := batch.Index(id, chunkDoc{
			VideoID: videoID,
			Content: c.Text,
			Start:   c.Start,
			End:     c.End,
		}); err != nil {
			return err
		}
	}
	return ki.index.Batch(batch)
}

// Search runs a keyword match over chunk content, optionally scoped to one
// video. Scores are bleve relevance scores, not cosine similarities.
func (ki *KeywordIndex) Search(queryText, videoID string, topK int) ([]types.ChunkHit, error) {
	if topK <= 0 {
		topK = 5
	}

	contentQuery := bleve.NewMatchQuery(queryText)
	contentQuery.SetField("content")

	var req *bleve.SearchRequest
	if videoID != "" {
		videoQuery := bleve.NewTermQuery(videoID)
		videoQuery.SetField("video_id")
		req = bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(contentQuery, videoQuery), topK, 0, false)
	} else {
		req = bleve.NewSearchRequestOptions(contentQuery, topK, 0, false)
	}
	req.Fields = []string{"video_id", "content", "start", "end"}

	res, err := ki.index.Search(req)
	if err != nil {
		return nil, err
	}

	var hits []types.ChunkHit
	for _, hit := range res.Hits {
		vid, _ := hit.Fields["video_id"].(string)
		content, _ := hit.Fields["content"].(string)
		hits = append(hits, types.ChunkHit{
			VideoID: vid,
			Text:    content,
			Start:   numField(hit.Fields["start"]),
			End:     numField(hit.Fields["end"]),
			Score:   hit.Score,
		})
	}
	return hits, nil
}

// DeleteByVideo removes every chunk document for a video.
func (ki *KeywordIndex) DeleteByVideo(videoID string) error {
	videoQuery := bleve.NewTermQuery(videoID)
	videoQuery.SetField("video_id")
	req := bleve.NewSearchRequestOptions(videoQuery, 10000, 0, false)

	res, err := ki.index.Search(req)
	if err != nil {
		return err
	}

	batch := ki.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return ki.index.Batch(batch)
}

// Close closes the underlying index.
func (ki *KeywordIndex) Close() error {
	return ki.index.Close()
}

func numField(v any) int {
	f, _ := v.(float64)
	return int(f)
}
