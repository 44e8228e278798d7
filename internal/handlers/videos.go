package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-rag/internal/queue"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// ChunkPurger removes a video's entries from the retrieval indexes. The
// relational rows cascade on their own; index purging has to be explicit.
type ChunkPurger interface {
	RemoveVideo(videoID string) error
}

// VideoHandler handles video submission, status polling and CRUD.
type VideoHandler struct {
	db         *storage.DB
	files      *storage.FileStore
	workerPool *queue.WorkerPool
	purger     ChunkPurger
	maxSizeMB  int
}

// NewVideoHandler creates a video handler.
func NewVideoHandler(db *storage.DB, files *storage.FileStore, workerPool *queue.WorkerPool, purger ChunkPurger, maxSizeMB int) *VideoHandler {
	return &VideoHandler{
		db:         db,
		files:      files,
		workerPool: workerPool,
		purger:     purger,
		maxSizeMB:  maxSizeMB,
	}
}

// List returns all videos, optionally filtered by ?status=.
func (h *VideoHandler) List(c *fiber.Ctx) error {
	videos, err := h.db.ListVideos(c.Query("status"))
	if err != nil {
		return err
	}
	if videos == nil {
		videos = []*types.Video{}
	}
	return c.JSON(videos)
}

// Get returns a single video.
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	video, err := h.db.GetVideo(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	return c.JSON(video)
}

// ProcessURLRequest is the body for POST /videos/process-url.
type ProcessURLRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ProcessURL creates a pending video for a remote URL and schedules
// processing. The response returns immediately with the pending record.
func (h *VideoHandler) ProcessURL(c *fiber.Ctx) error {
	var req ProcessURLRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return badRequest(c, "URL is required", "ERR_NO_URL")
	}

	title := req.Title
	if title == "" {
		title = "Processing..."
	}

	video, err := h.db.CreateVideo(title, types.SourceYouTube, req.URL, "")
	if err != nil {
		return err
	}

	h.workerPool.Enqueue(video.ID)

	return c.JSON(fiber.Map{
		"id":      video.ID,
		"title":   video.Title,
		"status":  video.Status,
		"message": "Video processing started",
	})
}

// Upload accepts a multipart video file and schedules processing.
func (h *VideoHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded", "ERR_NO_FILE")
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return badRequest(c, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if !storage.ValidateVideoFormat(file.Filename) {
		return badRequest(c, "Unsupported video format", "ERR_INVALID_FORMAT")
	}

	title := c.FormValue("title")
	if title == "" {
		title = file.Filename
	}

	video, err := h.db.CreateVideo(title, types.SourceUpload, "", "")
	if err != nil {
		return err
	}

	filePath := h.files.UploadPath(video.ID, file.Filename)
	if err := c.SaveFile(file, filePath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		_ = h.db.DeleteVideo(video.ID)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save file")
	}
	if err := h.db.SetSourceDetails(video.ID, filePath, video.Title, ""); err != nil {
		return err
	}

	h.workerPool.Enqueue(video.ID)

	return c.JSON(fiber.Map{
		"id":      video.ID,
		"title":   video.Title,
		"status":  video.Status,
		"message": "Video upload successful, processing started",
	})
}

// Status returns the lifecycle state and progress for polling clients.
func (h *VideoHandler) Status(c *fiber.Ctx) error {
	video, err := h.db.GetVideo(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Video not found")
	}

	resp := fiber.Map{
		"id":       video.ID,
		"status":   video.Status,
		"progress": video.Progress,
	}
	if video.Status == types.StatusFailed {
		resp["message"] = video.ErrorMessage
	}
	return c.JSON(resp)
}

// Transcript returns the transcript of a completed video.
func (h *VideoHandler) Transcript(c *fiber.Ctx) error {
	video, err := h.db.GetVideo(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	if video.Status != types.StatusCompleted {
		return badRequest(c, "Video processing not completed", "ERR_NOT_COMPLETED")
	}
	return c.JSON(fiber.Map{
		"video_id":   video.ID,
		"transcript": video.Transcript,
	})
}

// ToggleLike flips the like flag.
func (h *VideoHandler) ToggleLike(c *fiber.Ctx) error {
	liked, err := h.db.ToggleLike(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	return c.JSON(fiber.Map{
		"video_id": c.Params("id"),
		"is_liked": liked,
	})
}

// Delete removes a video: its file, its relational rows (cascade) and its
// index entries.
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	video, err := h.db.GetVideo(id)
	if err != nil {
		return notFoundOr(err, "Video not found")
	}

	if err := h.files.Remove(video.FilePath); err != nil {
		log.Printf("Failed to remove video file: %v", err)
	}
	if err := h.purger.RemoveVideo(id); err != nil {
		log.Printf("Failed to purge index entries for video %s: %v", id, err)
	}
	if err := h.db.DeleteVideo(id); err != nil {
		return notFoundOr(err, "Video not found")
	}

	return c.JSON(fiber.Map{"message": "Video deleted successfully"})
}

// badRequest writes a 400 with a human message and a machine-readable code.
func badRequest(c *fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// notFoundOr maps storage.ErrNotFound to a 404 and passes other errors on to
// the global handler.
func notFoundOr(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, message)
	}
	return err
}
