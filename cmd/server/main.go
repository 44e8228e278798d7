package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-rag/internal/ai"
	"github.com/codebuildervaibhav/video-rag/internal/cleanup"
	"github.com/codebuildervaibhav/video-rag/internal/config"
	"github.com/codebuildervaibhav/video-rag/internal/handlers"
	"github.com/codebuildervaibhav/video-rag/internal/media"
	"github.com/codebuildervaibhav/video-rag/internal/queue"
	"github.com/codebuildervaibhav/video-rag/internal/quiz"
	"github.com/codebuildervaibhav/video-rag/internal/rag"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/transcription"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{lines: make([]string, 0, 1000)}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// AI provider (embeddings + generation)
	provider, err := newProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	log.Printf("AI provider: %s", provider.Name())

	// Transcription backend
	transcriber, err := newTranscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize transcription: %v", err)
	}

	// Relational store
	db, err := storage.NewDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Vector store (chunk embeddings live next to the relational data)
	vectors, err := rag.NewVectorStore(cfg.Storage.Database, cfg.AI.EmbeddingDimension)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer vectors.Close()

	// Keyword index
	keywords, err := rag.OpenKeywordIndex(cfg.Storage.KeywordDir)
	if err != nil {
		log.Fatalf("Failed to initialize keyword index: %v", err)
	}
	defer keywords.Close()

	retriever := rag.NewService(provider, provider, vectors, keywords)
	quizGen := quiz.NewGenerator(provider, cfg.Limits.MaxTranscriptChars)

	// Local file storage
	files, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	// Google Drive archiver (optional - may fail if credentials not set up)
	var archiver queue.Archiver
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		drive, err := storage.NewDriveArchiver(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive archiving not available: %v", err)
		} else {
			log.Println("Google Drive transcript archiving enabled")
			archiver = drive
		}
	} else {
		log.Println("Google Drive credentials not found - archiving disabled")
	}

	// Worker pool
	downloader := media.NewYtDlpDownloader("")
	workerPool := queue.NewWorkerPool(
		cfg.Workers.Count,
		cfg.Workers.QueueSize,
		db,
		files,
		downloader,
		transcriber,
		retriever,
		archiver,
	)
	workerPool.Start()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		ErrorHandler: errorHandler(cfg.Server.Debug),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	videoHandler := handlers.NewVideoHandler(db, files, workerPool, retriever, cfg.Limits.MaxFileSizeMB)
	chatHandler := handlers.NewChatHandler(db, retriever)
	quizHandler := handlers.NewQuizHandler(db, quizGen)
	searchHandler := handlers.NewSearchHandler(db, retriever)
	noteHandler := handlers.NewNoteHandler(db)
	progressHandler := handlers.NewProgressHandler(db, time.Second)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

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

	// WebSocket progress stream
	app.Get("/ws/videos/:id/progress", websocket.New(progressHandler.Handle))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": logBuffer.GetLogs()})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /api/videos/process-url - Submit video URL")
	log.Println("   POST /api/videos/upload      - Upload video file")
	log.Println("   GET  /api/videos/:id/status  - Poll processing status")
	log.Println("   POST /api/chat               - Ask about a video")
	log.Println("   POST /api/quiz/generate      - Generate a quiz")
	log.Println("   POST /api/search             - Semantic search")
	log.Println("   GET  /ws/videos/:id/progress - Progress stream")
	log.Println("   GET  /health                 - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newProvider builds the configured AI provider. Provider choice is static
// per deployment; chat, embeddings and quiz generation all go through it.
func newProvider(cfg *config.Config) (ai.Provider, error) {
	switch cfg.AI.Provider {
	case "openai":
		return ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
	case "google":
		return ai.NewGeminiProvider(cfg.AI.GoogleAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
	case "":
		// Fall back on whichever key is present.
		if cfg.AI.OpenAIAPIKey != "" {
			return ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
		}
		if cfg.AI.GoogleAPIKey != "" {
			return ai.NewGeminiProvider(cfg.AI.GoogleAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
		}
		return nil, ai.ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

// newTranscriber builds the configured transcription backend.
func newTranscriber(cfg *config.Config) (transcription.Transcriber, error) {
	switch cfg.Transcription.Mode {
	case "api":
		return transcription.NewAPITranscriber(cfg.AI.OpenAIAPIKey)
	case "local":
		return transcription.NewWhisperTranscriber(cfg.Transcription.WhisperModel, cfg.Storage.TempDir)
	case "none":
		return transcription.PlaceholderTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown transcription mode %q", cfg.Transcription.Mode)
	}
}

// errorHandler converts unhandled errors to JSON. Message detail for
// unexpected errors is gated behind the debug flag.
func errorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		message := "Internal server error"
		if debug {
			message = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
	}
}

// LogBuffer captures logs in memory for the /logs endpoint
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
