package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// DB handles SQLite database operations for videos, chat, quizzes and notes.
type DB struct {
	db *sql.DB
}

// NewDB opens the database at dbPath and creates the schema if needed.
func NewDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
	}
	// The chunk index opens the same file; wait instead of failing when the
	// other handle holds the write lock.
	if _, err := db.Exec(`PRAGMA busy_timeout = 10000;`); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_url TEXT,
		file_path TEXT,
		duration INTEGER,
		thumbnail_url TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		progress INTEGER NOT NULL DEFAULT 0,
		transcript TEXT,
		error_message TEXT,
		is_liked INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		refs TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		questions TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		answers TEXT NOT NULL,
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		analysis TEXT,
		knowledge_gaps TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		timestamp INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_status ON videos(status);
	CREATE INDEX IF NOT EXISTS idx_chat_video ON chat_messages(video_id);
	CREATE INDEX IF NOT EXISTS idx_quiz_video ON quizzes(video_id);
	CREATE INDEX IF NOT EXISTS idx_notes_video ON notes(video_id);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// CreateVideo inserts a new video in pending state and returns it.
func (d *DB) CreateVideo(title, sourceType, sourceURL, filePath string) (*types.Video, error) {
	now := time.Now().UTC()
	v := &types.Video{
		ID:         uuid.New().String(),
		Title:      title,
		SourceType: sourceType,
		SourceURL:  sourceURL,
		FilePath:   filePath,
		Status:     types.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := d.db.Exec(`
	INSERT INTO videos (id, title, source_type, source_url, file_path, status, progress, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		v.ID, v.Title, v.SourceType, v.SourceURL, v.FilePath, v.Status, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create video: %v", err)
	}
	return v, nil
}

const videoColumns = `id, title, source_type, COALESCE(source_url, ''), COALESCE(file_path, ''),
	COALESCE(duration, 0), COALESCE(thumbnail_url, ''), status, progress,
	COALESCE(transcript, ''), COALESCE(error_message, ''), is_liked, created_at, updated_at`

func scanVideo(row interface{ Scan(...any) error }) (*types.Video, error) {
	var v types.Video
	err := row.Scan(&v.ID, &v.Title, &v.SourceType, &v.SourceURL, &v.FilePath,
		&v.Duration, &v.ThumbnailURL, &v.Status, &v.Progress,
		&v.Transcript, &v.ErrorMessage, &v.IsLiked, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVideo retrieves a video by ID.
func (d *DB) GetVideo(id string) (*types.Video, error) {
	row := d.db.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

// ListVideos returns videos newest first, optionally filtered by status.
func (d *DB) ListVideos(status string) ([]*types.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*types.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetProcessing transitions a video into the processing state.
func (d *DB) SetProcessing(id string, progress int) error {
	return d.updateVideo(id, `status = ?, progress = MAX(progress, ?)`, types.StatusProcessing, progress)
}

// SetProgress raises a processing video's progress. MAX keeps progress
// monotonic even if stages report out of order.
func (d *DB) SetProgress(id string, progress int) error {
	return d.updateVideo(id, `progress = MAX(progress, ?)`, progress)
}

// SetTranscript stores the transcript and duration produced by transcription.
func (d *DB) SetTranscript(id, transcript string, duration int) error {
	return d.updateVideo(id, `transcript = ?, duration = ?`, transcript, duration)
}

// SetSourceDetails records the resolved file path, title and thumbnail after
// source acquisition.
func (d *DB) SetSourceDetails(id, filePath, title, thumbnailURL string) error {
	return d.updateVideo(id, `file_path = ?, title = ?, thumbnail_url = ?`, filePath, title, thumbnailURL)
}

// SetCompleted marks a video completed with full progress.
func (d *DB) SetCompleted(id string) error {
	return d.updateVideo(id, `status = ?, progress = 100`, types.StatusCompleted)
}

// SetFailed marks a video failed and preserves the error message. Progress is
// left at its last value.
func (d *DB) SetFailed(id, message string) error {
	return d.updateVideo(id, `status = ?, error_message = ?`, types.StatusFailed, message)
}

func (d *DB) updateVideo(id, setClause string, args ...any) error {
	args = append(args, time.Now().UTC(), id)
	res, err := d.db.Exec(`UPDATE videos SET `+setClause+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update video %s: %v", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike flips the like flag and returns the new value.
func (d *DB) ToggleLike(id string) (bool, error) {
	if err := d.updateVideo(id, `is_liked = NOT is_liked`); err != nil {
		return false, err
	}
	var liked bool
	err := d.db.QueryRow(`SELECT is_liked FROM videos WHERE id = ?`, id).Scan(&liked)
	return liked, err
}

// DeleteVideo removes a video row. Chat messages, quizzes and notes go with
// it via foreign key cascade; vector and keyword index entries are the
// caller's responsibility.
func (d *DB) DeleteVideo(id string) error {
	res, err := d.db.Exec(`DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video %s: %v", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddChatMessage appends one chat turn for a video.
func (d *DB) AddChatMessage(videoID, role, content string, references []types.Reference) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{
		ID:         uuid.New().String(),
		VideoID:    videoID,
		Role:       role,
		Content:    content,
		References: references,
		CreatedAt:  time.Now().UTC(),
	}

	var refsJSON []byte
	if len(references) > 0 {
		refsJSON, _ = json.Marshal(references)
	}

	_, err := d.db.Exec(`
	INSERT INTO chat_messages (id, video_id, role, content, refs, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.VideoID, msg.Role, msg.Content, nullableString(refsJSON), msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save chat message: %v", err)
	}
	return msg, nil
}

// ListChatMessages returns a video's chat history oldest first.
func (d *DB) ListChatMessages(videoID string) ([]*types.ChatMessage, error) {
	rows, err := d.db.Query(`
	SELECT id, video_id, role, content, COALESCE(refs, ''), created_at
	FROM chat_messages WHERE video_id = ? ORDER BY created_at ASC`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		var refs string
		if err := rows.Scan(&m.ID, &m.VideoID, &m.Role, &m.Content, &refs, &m.CreatedAt); err != nil {
			return nil, err
		}
		if refs != "" {
			_ = json.Unmarshal([]byte(refs), &m.References)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// ClearChatHistory deletes all chat messages for a video.
func (d *DB) ClearChatHistory(videoID string) error {
	_, err := d.db.Exec(`DELETE FROM chat_messages WHERE video_id = ?`, videoID)
	return err
}

// CreateQuiz stores a generated question set for a video.
func (d *DB) CreateQuiz(videoID string, questions []types.QuizQuestion) (*types.Quiz, error) {
	quiz := &types.Quiz{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %v", err)
	}

	_, err = d.db.Exec(`
	INSERT INTO quizzes (id, video_id, questions, created_at)
	VALUES (?, ?, ?, ?)`,
		quiz.ID, quiz.VideoID, string(questionsJSON), quiz.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save quiz: %v", err)
	}
	return quiz, nil
}

// GetQuiz retrieves a quiz with its stored questions (answers included).
func (d *DB) GetQuiz(id string) (*types.Quiz, error) {
	var quiz types.Quiz
	var questionsJSON string
	err := d.db.QueryRow(`
	SELECT id, video_id, questions, created_at FROM quizzes WHERE id = ?`, id).
		Scan(&quiz.ID, &quiz.VideoID, &questionsJSON, &quiz.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questionsJSON), &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to parse stored questions: %v", err)
	}
	return &quiz, nil
}

// CreateAttempt stores a scored quiz submission.
func (d *DB) CreateAttempt(quizID string, answers map[string]string, score, total int, analysis string, gaps []string) (*types.QuizAttempt, error) {
	attempt := &types.QuizAttempt{
		ID:            uuid.New().String(),
		QuizID:        quizID,
		Answers:       answers,
		Score:         score,
		Total:         total,
		Analysis:      analysis,
		KnowledgeGaps: gaps,
		CreatedAt:     time.Now().UTC(),
	}
	if total > 0 {
		attempt.Percentage = roundPercent(float64(score) / float64(total) * 100)
	}

	answersJSON, _ := json.Marshal(answers)
	gapsJSON, _ := json.Marshal(gaps)

	_, err := d.db.Exec(`
	INSERT INTO quiz_attempts (id, quiz_id, answers, score, total, analysis, knowledge_gaps, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.QuizID, string(answersJSON), attempt.Score, attempt.Total,
		attempt.Analysis, string(gapsJSON), attempt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save quiz attempt: %v", err)
	}
	return attempt, nil
}

// LatestAttempt returns the most recent attempt for a quiz.
func (d *DB) LatestAttempt(quizID string) (*types.QuizAttempt, error) {
	var a types.QuizAttempt
	var answersJSON, gapsJSON string
	err := d.db.QueryRow(`
	SELECT id, quiz_id, answers, score, total, COALESCE(analysis, ''), COALESCE(knowledge_gaps, ''), created_at
	FROM quiz_attempts WHERE quiz_id = ? ORDER BY created_at DESC LIMIT 1`, quizID).
		Scan(&a.ID, &a.QuizID, &answersJSON, &a.Score, &a.Total, &a.Analysis, &gapsJSON, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(answersJSON), &a.Answers)
	if gapsJSON != "" {
		_ = json.Unmarshal([]byte(gapsJSON), &a.KnowledgeGaps)
	}
	if a.Total > 0 {
		a.Percentage = roundPercent(float64(a.Score) / float64(a.Total) * 100)
	}
	return &a, nil
}

// CountChatMessages and CountQuizzes exist for cascade verification.
func (d *DB) CountChatMessages(videoID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM chat_messages WHERE video_id = ?`, videoID).Scan(&n)
	return n, err
}

func (d *DB) CountQuizzes(videoID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM quizzes WHERE video_id = ?`, videoID).Scan(&n)
	return n, err
}

// CreateNote stores a timestamped note for a video.
func (d *DB) CreateNote(videoID, content string, timestamp int) (*types.Note, error) {
	note := &types.Note{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Content:   content,
		Timestamp: timestamp,
		CreatedAt: time.Now().UTC(),
	}
	_, err := d.db.Exec(`
	INSERT INTO notes (id, video_id, content, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		note.ID, note.VideoID, note.Content, note.Timestamp, note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save note: %v", err)
	}
	return note, nil
}

// ListNotes returns a video's notes ordered by timestamp.
func (d *DB) ListNotes(videoID string) ([]*types.Note, error) {
	rows, err := d.db.Query(`
	SELECT id, video_id, content, COALESCE(timestamp, 0), created_at
	FROM notes WHERE video_id = ? ORDER BY timestamp ASC`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*types.Note
	for rows.Next() {
		var n types.Note
		if err := rows.Scan(&n.ID, &n.VideoID, &n.Content, &n.Timestamp, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// DeleteNote removes one note from a video.
func (d *DB) DeleteNote(videoID, noteID string) error {
	res, err := d.db.Exec(`DELETE FROM notes WHERE id = ? AND video_id = ?`, noteID, videoID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func roundPercent(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
