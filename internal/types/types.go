package types

import "time"

// Video lifecycle status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Source type constants
const (
	SourceYouTube = "youtube"
	SourceUpload  = "upload"
)

// Progress milestones reported while a video is processing. Values only ever
// increase for a given video.
const (
	ProgressDequeued    = 10
	ProgressDownloaded  = 30
	ProgressTranscribed = 70
	ProgressIndexed     = 90
	ProgressDone        = 100
)

// Video is the persisted record for a submitted video asset.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SourceType   string    `json:"source_type"`
	SourceURL    string    `json:"source_url,omitempty"`
	FilePath     string    `json:"file_path,omitempty"`
	Duration     int       `json:"duration,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Transcript   string    `json:"transcript,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	IsLiked      bool      `json:"is_liked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Chunk is a bounded transcript span with an estimated time range. Chunks are
// derived from the transcript and live only inside the vector index.
type Chunk struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Index int    `json:"index"`
}

// ChunkHit is a chunk returned by a similarity or keyword query.
type ChunkHit struct {
	VideoID string  `json:"video_id"`
	Text    string  `json:"text"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Score   float64 `json:"score"`
}

// Reference points a chat answer back at the transcript span it came from.
type Reference struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// ChatMessage is one turn of a video conversation.
type ChatMessage struct {
	ID         string      `json:"id"`
	VideoID    string      `json:"video_id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	References []Reference `json:"references,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// QuizOption is one answer choice of a multiple-choice question.
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuizQuestion is a generated multiple-choice question. CorrectAnswer is
// stripped before questions are sent to a client.
type QuizQuestion struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	Options       []QuizOption `json:"options"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
}

// Quiz is a stored set of questions for a video.
type Quiz struct {
	ID        string         `json:"id"`
	VideoID   string         `json:"video_id"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuizAttempt is a scored submission against a quiz.
type QuizAttempt struct {
	ID            string            `json:"id"`
	QuizID        string            `json:"quiz_id"`
	Answers       map[string]string `json:"answers"`
	Score         int               `json:"score"`
	Total         int               `json:"total"`
	Percentage    float64           `json:"percentage"`
	Analysis      string            `json:"analysis,omitempty"`
	KnowledgeGaps []string          `json:"knowledge_gaps,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Note is a user annotation pinned to a video timestamp.
type Note struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Content   string    `json:"content"`
	Timestamp int       `json:"timestamp,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
