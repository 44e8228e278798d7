package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/video-rag/internal/media"
	"github.com/codebuildervaibhav/video-rag/internal/queue"
	"github.com/codebuildervaibhav/video-rag/internal/quiz"
	"github.com/codebuildervaibhav/video-rag/internal/rag"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/transcription"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := []float32{1, 1, 1}
		if strings.Contains(text, "cats") {
			v = []float32{1, 0, 0}
		}
		out[i] = v
	}
	return out, nil
}

type fakeCompleter struct{ response string }

func (f fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	if f.response == "" {
		return "", errors.New("no response configured")
	}
	return f.response, nil
}

type stubDownloader struct{}

func (stubDownloader) Download(_ context.Context, _, _ string) error { return nil }
func (stubDownloader) Title(_ context.Context, _ string) (string, error) {
	return "Stub Title", nil
}

var _ media.Downloader = stubDownloader{}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(_ context.Context, _ string) (*transcription.Result, error) {
	return &transcription.Result{Text: "stub"}, nil
}

type fixture struct {
	app       *fiber.App
	db        *storage.DB
	retriever *rag.Service
}

// newFixture wires the handlers into a fiber app the way the server does.
// The worker pool is never started, so enqueued jobs stay queued and
// submissions can be inspected in their pending state.
func newFixture(t *testing.T, llmResponse string) *fixture {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vectors, err := rag.NewVectorStore(":memory:", 3)
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	keywords, err := rag.NewMemKeywordIndex()
	require.NoError(t, err)
	t.Cleanup(func() { keywords.Close() })

	llm := fakeCompleter{response: llmResponse}
	retriever := rag.NewService(fakeEmbedder{}, llm, vectors, keywords)
	generator := quiz.NewGenerator(llm, 0)

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	pool := queue.NewWorkerPool(1, 16, db, files, stubDownloader{}, stubTranscriber{}, retriever, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	videoHandler := NewVideoHandler(db, files, pool, retriever, 1)
	chatHandler := NewChatHandler(db, retriever)
	quizHandler := NewQuizHandler(db, generator)
	searchHandler := NewSearchHandler(db, retriever)
	noteHandler := NewNoteHandler(db)

	api := app.Group("/api")
	api.Get("/videos", videoHandler.List)
	api.Post("/videos/process-url", videoHandler.ProcessURL)
	api.Post("/videos/upload", videoHandler.Upload)
	api.Get("/videos/:id", videoHandler.Get)
	api.Get("/videos/:id/status", videoHandler.Status)
	api.Get("/videos/:id/transcript", videoHandler.Transcript)
	api.Post("/videos/:id/like", videoHandler.ToggleLike)
	api.Delete("/videos/:id", videoHandler.Delete)
	api.Get("/videos/:id/notes", noteHandler.List)
	api.Post("/videos/:id/notes", noteHandler.Create)
	api.Delete("/videos/:id/notes/:note_id", noteHandler.Delete)
	api.Post("/chat", chatHandler.Send)
	api.Get("/chat/:video_id/history", chatHandler.History)
	api.Delete("/chat/:video_id/history", chatHandler.ClearHistory)
	api.Post("/quiz/generate", quizHandler.Generate)
	api.Get("/quiz/:id", quizHandler.Get)
	api.Post("/quiz/:id/submit", quizHandler.Submit)
	api.Get("/quiz/:id/results", quizHandler.Results)
	api.Post("/search", searchHandler.Search)
	api.Get("/search/suggestions", searchHandler.Suggestions)

	return &fixture{app: app, db: db, retriever: retriever}
}

func (f *fixture) request(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// completedVideo inserts a video already through the pipeline.
func (f *fixture) completedVideo(t *testing.T, title, transcript string) string {
	t.Helper()
	v, err := f.db.CreateVideo(title, types.SourceUpload, "", "")
	require.NoError(t, err)
	require.NoError(t, f.db.SetTranscript(v.ID, transcript, 60))
	require.NoError(t, f.db.SetCompleted(v.ID))
	return v.ID
}

func TestProcessURLValidation(t *testing.T) {
	f := newFixture(t, "")

	resp, body := f.request(t, "POST", "/api/videos/process-url", map[string]string{"url": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NO_URL", body["code"])
}

func TestProcessURLCreatesPendingVideo(t *testing.T) {
	f := newFixture(t, "")

	resp, body := f.request(t, "POST", "/api/videos/process-url",
		map[string]string{"url": "https://youtube.com/watch?v=abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "Processing...", body["title"])

	id := body["id"].(string)
	resp, body = f.request(t, "GET", "/api/videos/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(0), body["progress"])
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, "")

	buildUpload := func(filename string, size int) *http.Request {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte("x"), size))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/videos/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req
	}

	resp, err := f.app.Test(buildUpload("notes.txt", 10), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = f.app.Test(buildUpload("clip.mp4", 64), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetVideoNotFound(t *testing.T) {
	f := newFixture(t, "")

	resp, _ := f.request(t, "GET", "/api/videos/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscriptRequiresCompletion(t *testing.T) {
	f := newFixture(t, "")

	v, err := f.db.CreateVideo("Pending", types.SourceUpload, "", "")
	require.NoError(t, err)

	resp, body := f.request(t, "GET", "/api/videos/"+v.ID+"/transcript", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NOT_COMPLETED", body["code"])

	id := f.completedVideo(t, "Done", "the full transcript")
	resp, body = f.request(t, "GET", "/api/videos/"+id+"/transcript", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "the full transcript", body["transcript"])
}

func TestToggleLikeEndpoint(t *testing.T) {
	f := newFixture(t, "")
	id := f.completedVideo(t, "V", "t")

	resp, body := f.request(t, "POST", "/api/videos/"+id+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_liked"])

	resp, body = f.request(t, "POST", "/api/videos/"+id+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_liked"])
}

func TestDeleteVideoPurgesEverything(t *testing.T) {
	f := newFixture(t, "irrelevant")
	id := f.completedVideo(t, "V", "cats are wonderful pets")

	require.NoError(t, f.retriever.IndexVideo(context.Background(), id, "cats are wonderful pets"))

	resp, _ := f.request(t, "DELETE", "/api/videos/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.request(t, "GET", "/api/videos/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	hits, err := f.retriever.SearchKeyword("cats", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChatFlow(t *testing.T) {
	f := newFixture(t, "They are mentioned early on.")
	id := f.completedVideo(t, "Cat Video", "cats are wonderful pets")
	require.NoError(t, f.retriever.IndexVideo(context.Background(), id, "cats are wonderful pets"))

	resp, body := f.request(t, "POST", "/api/chat",
		map[string]string{"videoId": id, "message": "when are cats mentioned?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "They are mentioned early on.", body["message"])
	assert.NotNil(t, body["references"])

	resp, body = f.request(t, "GET", "/api/chat/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)

	resp, _ = f.request(t, "DELETE", "/api/chat/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = f.request(t, "GET", "/api/chat/"+id+"/history", nil)
	assert.Empty(t, body["messages"])
}

func TestChatGuards(t *testing.T) {
	f := newFixture(t, "hi")

	resp, body := f.request(t, "POST", "/api/chat", map[string]string{"videoId": "", "message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_MISSING_FIELDS", body["code"])

	resp, _ = f.request(t, "POST", "/api/chat", map[string]string{"videoId": "nope", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	v, err := f.db.CreateVideo("Pending", types.SourceUpload, "", "")
	require.NoError(t, err)
	resp, body = f.request(t, "POST", "/api/chat", map[string]string{"videoId": v.ID, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NOT_COMPLETED", body["code"])
}

const quizJSON = `[{"id":"q1","question":"Q?","options":[{"id":"a","text":"A"},{"id":"b","text":"B"}],"correct_answer":"a"}]`

func TestQuizLifecycle(t *testing.T) {
	f := newFixture(t, quizJSON)
	id := f.completedVideo(t, "V", "transcript text")

	resp, body := f.request(t, "POST", "/api/quiz/generate",
		map[string]any{"videoId": id, "questionCount": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quizID := body["id"].(string)

	// Served questions never expose the correct answer.
	questions := body["questions"].([]any)
	require.Len(t, questions, 1)
	q := questions[0].(map[string]any)
	assert.NotContains(t, q, "correct_answer")

	resp, body = f.request(t, "POST", "/api/quiz/"+quizID+"/submit",
		map[string]any{"answers": map[string]string{"q1": "a"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["score"])
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(100), body["percentage"])

	resp, body = f.request(t, "GET", "/api/quiz/"+quizID+"/results", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["score"])
}

func TestQuizGuards(t *testing.T) {
	f := newFixture(t, quizJSON)

	v, err := f.db.CreateVideo("Pending", types.SourceUpload, "", "")
	require.NoError(t, err)
	resp, body := f.request(t, "POST", "/api/quiz/generate", map[string]any{"videoId": v.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NOT_COMPLETED", body["code"])

	resp, _ = f.request(t, "GET", "/api/quiz/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.request(t, "GET", "/api/quiz/nope/results", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t, "")
	id := f.completedVideo(t, "Cat Video", "cats are wonderful pets")
	require.NoError(t, f.retriever.IndexVideo(context.Background(), id, "cats are wonderful pets"))

	resp, body := f.request(t, "POST", "/api/search", map[string]any{"query": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_MISSING_FIELDS", body["code"])

	resp, body = f.request(t, "POST", "/api/search", map[string]any{"query": "cats"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]any)
	require.NotEmpty(t, results)
	first := results[0].(map[string]any)
	assert.Equal(t, "Cat Video", first["video_title"])
	assert.Equal(t, id, first["video_id"])

	resp, body = f.request(t, "POST", "/api/search", map[string]any{"query": "cats", "mode": "keyword"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["results"])
}

func TestNotesEndpoints(t *testing.T) {
	f := newFixture(t, "")
	id := f.completedVideo(t, "V", "t")

	resp, _ := f.request(t, "POST", "/api/videos/nope/notes",
		map[string]any{"content": "x", "timestamp": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := f.request(t, "POST", "/api/videos/"+id+"/notes",
		map[string]any{"content": "", "timestamp": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_MISSING_FIELDS", body["code"])

	resp, body = f.request(t, "POST", "/api/videos/"+id+"/notes",
		map[string]any{"content": "key moment", "timestamp": 42})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	noteID := body["id"].(string)

	req := httptest.NewRequest("GET", "/api/videos/"+id+"/notes", nil)
	listResp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var notes []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "key moment", notes[0]["content"])

	resp, _ = f.request(t, "DELETE", "/api/videos/"+id+"/notes/"+noteID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.request(t, "DELETE", "/api/videos/"+id+"/notes/"+noteID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSuggestionsShape(t *testing.T) {
	f := newFixture(t, "")
	resp, body := f.request(t, "GET", "/api/search/suggestions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["suggestions"])
}
