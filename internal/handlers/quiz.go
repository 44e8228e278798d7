package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/video-rag/internal/quiz"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// QuizHandler generates, serves and scores quizzes.
type QuizHandler struct {
	db        *storage.DB
	generator *quiz.Generator
}

// NewQuizHandler creates a quiz handler.
func NewQuizHandler(db *storage.DB, generator *quiz.Generator) *QuizHandler {
	return &QuizHandler{db: db, generator: generator}
}

// GenerateRequest is the body for POST /quiz/generate.
type GenerateRequest struct {
	VideoID       string `json:"videoId"`
	QuestionCount int    `json:"questionCount"`
}

// Generate builds a quiz from a completed video's transcript and stores it.
// The response never includes correct answers.
func (h *QuizHandler) Generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.VideoID == "" {
		return badRequest(c, "videoId is required", "ERR_MISSING_FIELDS")
	}

	video, err := h.db.GetVideo(req.VideoID)
	if err != nil {
		return notFoundOr(err, "Video not found")
	}
	if video.Status != types.StatusCompleted {
		return badRequest(c, "Video processing not completed", "ERR_NOT_COMPLETED")
	}

	questions, err := h.generator.Generate(c.Context(), video.Transcript, req.QuestionCount)
	if err != nil {
		return err
	}

	stored, err := h.db.CreateQuiz(req.VideoID, questions)
	if err != nil {
		return err
	}

	return c.JSON(quizResponse(stored))
}

// Get returns quiz questions without correct answers.
func (h *QuizHandler) Get(c *fiber.Ctx) error {
	stored, err := h.db.GetQuiz(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Quiz not found")
	}
	return c.JSON(quizResponse(stored))
}

// SubmitRequest is the body for POST /quiz/:id/submit.
type SubmitRequest struct {
	Answers map[string]string `json:"answers"`
}

// Submit scores a submission, asks the LLM for feedback and stores the
// attempt.
func (h *QuizHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}

	stored, err := h.db.GetQuiz(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "Quiz not found")
	}

	correct, incorrect := quiz.Score(stored.Questions, req.Answers)
	total := len(stored.Questions)

	analysis, gaps := h.generator.Analyze(c.Context(), correct, total, incorrect)

	attempt, err := h.db.CreateAttempt(stored.ID, req.Answers, correct, total, analysis, gaps)
	if err != nil {
		return err
	}
	return c.JSON(attempt)
}

// Results returns the most recent attempt for a quiz.
func (h *QuizHandler) Results(c *fiber.Ctx) error {
	attempt, err := h.db.LatestAttempt(c.Params("id"))
	if err != nil {
		return notFoundOr(err, "No quiz attempts found")
	}
	return c.JSON(attempt)
}

func quizResponse(q *types.Quiz) fiber.Map {
	questions := quiz.SanitizeForClient(q.Questions)
	return fiber.Map{
		"id":             q.ID,
		"video_id":       q.VideoID,
		"questions":      questions,
		"question_count": len(questions),
		"created_at":     q.CreatedAt,
	}
}
