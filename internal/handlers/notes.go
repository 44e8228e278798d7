package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// NoteHandler manages timestamped notes on videos.
type NoteHandler struct {
	db *storage.DB
}

// NewNoteHandler creates a note handler.
func NewNoteHandler(db *storage.DB) *NoteHandler {
	return &NoteHandler{db: db}
}

// List returns all notes for a video ordered by timestamp.
func (h *NoteHandler) List(c *fiber.Ctx) error {
	videoID := c.Params("id")
	if _, err := h.db.GetVideo(videoID); err != nil {
		return notFoundOr(err, "Video not found")
	}

	notes, err := h.db.ListNotes(videoID)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []*types.Note{}
	}
	return c.JSON(notes)
}

// CreateRequest is the body for POST /videos/:id/notes.
type CreateRequest struct {
	Content   string `json:"content"`
	Timestamp int    `json:"timestamp"`
}

// Create adds a note to a video.
func (h *NoteHandler) Create(c *fiber.Ctx) error {
	videoID := c.Params("id")
	if _, err := h.db.GetVideo(videoID); err != nil {
		return notFoundOr(err, "Video not found")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.Content == "" {
		return badRequest(c, "content is required", "ERR_MISSING_FIELDS")
	}

	note, err := h.db.CreateNote(videoID, req.Content, req.Timestamp)
	if err != nil {
		return err
	}
	return c.JSON(note)
}

// Delete removes a note.
func (h *NoteHandler) Delete(c *fiber.Ctx) error {
	if err := h.db.DeleteNote(c.Params("id"), c.Params("note_id")); err != nil {
		return notFoundOr(err, "Note not found")
	}
	return c.JSON(fiber.Map{"message": "Note deleted successfully"})
}
