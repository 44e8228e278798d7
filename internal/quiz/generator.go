package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/codebuildervaibhav/video-rag/internal/ai"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// DefaultQuestionCount is how many questions a quiz gets when the client
// does not ask for a specific number.
const DefaultQuestionCount = 10

// Generator produces and scores multiple-choice quizzes from transcripts.
type Generator struct {
	llm                ai.Completer
	maxTranscriptChars int
}

// NewGenerator creates a quiz generator. maxTranscriptChars caps how much of
// the transcript is handed to the LLM (0 means the 10000-char default).
func NewGenerator(llm ai.Completer, maxTranscriptChars int) *Generator {
	if maxTranscriptChars <= 0 {
		maxTranscriptChars = 10000
	}
	return &Generator{llm: llm, maxTranscriptChars: maxTranscriptChars}
}

// Generate asks the LLM for count multiple-choice questions about the
// transcript. A malformed response falls back to placeholder questions
// instead of failing the request; quiz availability beats strictness here.
func (g *Generator) Generate(ctx context.Context, transcript string, count int) ([]types.QuizQuestion, error) {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	if len(transcript) > g.maxTranscriptChars {
		transcript = transcript[:g.maxTranscriptChars] + "..."
	}

	systemPrompt := fmt.Sprintf(`You are a quiz generator. Create %d multiple choice questions based on the video transcript.

Each question should:
- Test understanding of key concepts
- Have 4 options (A, B, C, D)
- Have exactly one correct answer
- Be clear and unambiguous

Return ONLY valid JSON in this exact format:
[
  {
    "id": "q1",
    "question": "Question text here?",
    "options": [
      {"id": "a", "text": "Option A"},
      {"id": "b", "text": "Option B"},
      {"id": "c", "text": "Option C"},
      {"id": "d", "text": "Option D"}
    ],
    "correct_answer": "a"
  }
]

Video Transcript:
%s`, count, transcript)

	userMessage := fmt.Sprintf("Generate %d multiple choice questions about this video content.", count)

	response, err := g.llm.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuestions(response)
	if err != nil {
		log.Printf("Quiz generation returned unparseable JSON, using fallback questions: %v", err)
		return FallbackQuestions(count), nil
	}
	return questions, nil
}

// ParseQuestions extracts a question list from an LLM response, tolerating a
// payload wrapped in a fenced code block.
func ParseQuestions(response string) ([]types.QuizQuestion, error) {
	payload := response
	if strings.Contains(response, "```json") {
		parts := strings.SplitN(response, "```json", 2)
		payload = strings.SplitN(parts[1], "```", 2)[0]
	} else if strings.Contains(response, "```") {
		parts := strings.SplitN(response, "```", 3)
		if len(parts) >= 2 {
			payload = parts[1]
		}
	}

	var questions []types.QuizQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse quiz JSON: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("quiz response contained no questions")
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return questions, nil
}

// FallbackQuestions returns a small fixed question set used when generation
// fails to produce valid JSON.
func FallbackQuestions(count int) []types.QuizQuestion {
	if count > 5 {
		count = 5
	}
	questions := make([]types.QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, types.QuizQuestion{
			ID:       fmt.Sprintf("q%d", i+1),
			Question: fmt.Sprintf("Sample question %d - AI generation failed", i+1),
			Options: []types.QuizOption{
				{ID: "a", Text: "Option A"},
				{ID: "b", Text: "Option B"},
				{ID: "c", Text: "Option C"},
				{ID: "d", Text: "Option D"},
			},
			CorrectAnswer: "a",
		})
	}
	return questions
}

// Score grades submitted answers by exact option-id match and returns the
// correct count plus the questions answered wrong.
func Score(questions []types.QuizQuestion, answers map[string]string) (int, []types.QuizQuestion) {
	var correct int
	var incorrect []types.QuizQuestion
	for _, q := range questions {
		if answers[q.ID] == q.CorrectAnswer {
			correct++
		} else {
			incorrect = append(incorrect, q)
		}
	}
	return correct, incorrect
}

// Analyze produces a feedback narrative and a list of topics to review. When
// the LLM call fails the narrative falls back to a percentage-banded canned
// message so quiz results never error out.
func (g *Generator) Analyze(ctx context.Context, correct, total int, incorrect []types.QuizQuestion) (string, []string) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(correct) / float64(total) * 100
	}

	var gaps []string
	for _, q := range incorrect {
		if len(gaps) >= 5 {
			break
		}
		gaps = append(gaps, truncate(q.Question, 50))
	}

	systemPrompt := fmt.Sprintf(`You are an educational assistant analyzing quiz results.

Quiz Results:
- Score: %d/%d (%.1f%%)
- Incorrect questions topics: %s

Provide:
1. A brief encouraging analysis (2-3 sentences)
2. Specific topics to review based on wrong answers

Be constructive and helpful.`, correct, total, percentage, gapsOrNone(gaps))

	analysis, err := g.llm.Complete(ctx, systemPrompt, "Analyze these quiz results and provide feedback.")
	if err != nil {
		log.Printf("Quiz analysis failed, using canned feedback: %v", err)
		switch {
		case percentage >= 80:
			analysis = "Great job! You demonstrated strong understanding of the material."
		case percentage >= 60:
			analysis = "Good effort! Review the topics below to strengthen your knowledge."
		default:
			analysis = "Keep practicing! Focus on the highlighted topics for improvement."
		}
	}
	return analysis, gaps
}

func gapsOrNone(gaps []string) string {
	if len(gaps) == 0 {
		return "None"
	}
	return strings.Join(gaps, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SanitizeForClient strips correct answers from questions before they are
// sent to a quiz taker.
func SanitizeForClient(questions []types.QuizQuestion) []types.QuizQuestion {
	out := make([]types.QuizQuestion, len(questions))
	for i, q := range questions {
		q.CorrectAnswer = ""
		out[i] = q
	}
	return out
}
