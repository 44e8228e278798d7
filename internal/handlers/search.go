package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-rag/internal/rag"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// SearchHandler runs semantic, keyword and hybrid search over indexed
// transcripts.
type SearchHandler struct {
	db        *storage.DB
	retriever *rag.Service
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(db *storage.DB, retriever *rag.Service) *SearchHandler {
	return &SearchHandler{db: db, retriever: retriever}
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query   string `json:"query"`
	VideoID string `json:"video_id"`
	Limit   int    `json:"limit"`
	Mode    string `json:"mode"` // "semantic" (default), "keyword" or "hybrid"
}

// searchResult is one hit enriched with the owning video's title.
type searchResult struct {
	VideoID        string  `json:"video_id"`
	VideoTitle     string  `json:"video_title"`
	Text           string  `json:"text"`
	TimestampStart int     `json:"timestamp_start"`
	TimestampEnd   int     `json:"timestamp_end"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Search retrieves matching chunks across all videos (or one video when
// video_id is set).
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.Query == "" {
		return badRequest(c, "query is required", "ERR_MISSING_FIELDS")
	}
	if req.Limit <= 0 {
		req.Limit = rag.DefaultTopK
	}

	var hits []types.ChunkHit
	var err error
	switch req.Mode {
	case "keyword":
		hits, err = h.retriever.SearchKeyword(req.Query, req.VideoID, req.Limit)
	case "hybrid":
		hits, err = h.retriever.SearchHybrid(c.Context(), req.Query, req.VideoID, req.Limit)
	default:
		hits, err = h.retriever.SearchChunks(c.Context(), req.Query, req.VideoID, req.Limit)
	}
	if err != nil {
		return err
	}

	// Titles come from the relational store; a deleted video's leftover hits
	// surface as "Unknown".
	titles := make(map[string]string)
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		title, ok := titles[hit.VideoID]
		if !ok {
			title = "Unknown"
			if video, err := h.db.GetVideo(hit.VideoID); err == nil {
				title = video.Title
			}
			titles[hit.VideoID] = title
		}
		results = append(results, searchResult{
			VideoID:        hit.VideoID,
			VideoTitle:     title,
			Text:           hit.Text,
			TimestampStart: hit.Start,
			TimestampEnd:   hit.End,
			RelevanceScore: hit.Score,
		})
	}

	return c.JSON(fiber.Map{
		"query":   req.Query,
		"results": results,
		"total":   len(results),
	})
}

// Suggestions returns autocomplete candidates. Currently empty; kept so the
// route shape is stable for clients.
func (h *SearchHandler) Suggestions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"suggestions": []string{}})
}
