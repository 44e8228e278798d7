package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// ProgressHandler streams a video's lifecycle status over a WebSocket so
// clients do not have to poll GET /status.
type ProgressHandler struct {
	db       *storage.DB
	interval time.Duration
}

// NewProgressHandler creates a progress handler. interval controls how often
// the database is checked (0 means once per second).
func NewProgressHandler(db *storage.DB, interval time.Duration) *ProgressHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressHandler{db: db, interval: interval}
}

type progressEvent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

// Handle pushes status updates until the video reaches a terminal state or
// the client disconnects. Updates are only sent when something changed.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	videoID := c.Params("id")
	log.Printf("Progress stream opened for video %s", videoID)

	var last progressEvent
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for range ticker.C {
		video, err := h.db.GetVideo(videoID)
		if err != nil {
			_ = c.WriteJSON(progressEvent{ID: videoID, Status: "unknown", Message: "Video not found"})
			return
		}

		event := progressEvent{
			ID:       video.ID,
			Status:   video.Status,
			Progress: video.Progress,
		}
		if video.Status == types.StatusFailed {
			event.Message = video.ErrorMessage
		}

		if event != last {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("Progress stream write error: %v", err)
				return
			}
			last = event
		}

		if video.Status == types.StatusCompleted || video.Status == types.StatusFailed {
			return
		}
	}
}
