package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-rag/internal/rag"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// ChatHandler answers questions about a video with RAG and keeps the
// conversation history.
type ChatHandler struct {
	db        *storage.DB
	retriever *rag.Service
}

// NewChatHandler creates a chat handler.
func NewChatHandler(db *storage.DB, retriever *rag.Service) *ChatHandler {
	return &ChatHandler{db: db, retriever: retriever}
}

// SendRequest is the body for POST /chat.
type SendRequest struct {
	VideoID string `json:"videoId"`
	Message string `json:"message"`
}

// Send stores the user message, runs retrieval-augmented generation and
// stores + returns the assistant reply with its references.
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.VideoID == "" || req.Message == "" {
		return badRequest(c, "videoId and message are required", "ERR_MISSING_FIELDS")
	}

	video, err := h.db.GetVideo(req.VideoID)
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	if video.Status != types.StatusCompleted {
		return badRequest(c, "Video processing not completed", "ERR_NOT_COMPLETED")
	}

	if _, err := h.db.AddChatMessage(req.VideoID, "user", req.Message, nil); err != nil {
		return err
	}

	answer, err := h.retriever.AnswerQuestion(c.Context(), video.ID, video.Title, req.Message)
	if err != nil {
		return err
	}

	if _, err := h.db.AddChatMessage(req.VideoID, "assistant", answer.Message, answer.References); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":    answer.Message,
		"references": answer.References,
	})
}

// History returns a video's chat history oldest first.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	videoID := c.Params("video_id")

	messages, err := h.db.ListChatMessages(videoID)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []*types.ChatMessage{}
	}
	return c.JSON(fiber.Map{
		"video_id": videoID,
		"messages": messages,
	})
}

// ClearHistory deletes a video's chat history.
func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	if err := h.db.ClearChatHistory(c.Params("video_id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Chat history cleared"})
}
