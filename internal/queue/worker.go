package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/codebuildervaibhav/video-rag/internal/media"
	"github.com/codebuildervaibhav/video-rag/internal/transcription"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// VideoStore is the slice of the relational store the pipeline writes to.
type VideoStore interface {
	GetVideo(id string) (*types.Video, error)
	SetProcessing(id string, progress int) error
	SetProgress(id string, progress int) error
	SetSourceDetails(id, filePath, title, thumbnailURL string) error
	SetTranscript(id, transcript string, duration int) error
	SetCompleted(id string) error
	SetFailed(id, message string) error
}

// Indexer writes a transcript into the retrieval indexes.
type Indexer interface {
	IndexVideo(ctx context.Context, videoID, transcript string) error
}

// Archiver pushes a completed transcript to external storage, best-effort.
type Archiver interface {
	ArchiveTranscript(video *types.Video) (string, error)
}

// PathResolver maps a video ID to where its downloaded file should live.
type PathResolver interface {
	DownloadPath(videoID string) string
}

// WorkerPool manages a bounded pool of workers driving videos through the
// processing lifecycle: pending -> processing -> completed/failed. Exactly
// one job runs per video; callers must not enqueue the same video twice
// while a run is in flight.
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int

	store       VideoStore
	files       PathResolver
	downloader  media.Downloader
	transcriber transcription.Transcriber
	indexer     Indexer
	archiver    Archiver // nil disables archiving

	// extractAudio is swappable for tests; defaults to media.ExtractAudio.
	extractAudio func(ctx context.Context, videoPath string) (string, error)
	// scrapeMetadata is swappable for tests; nil disables thumbnail scraping.
	scrapeMetadata func(ctx context.Context, url string) (*media.PageMetadata, error)
}

// NewWorkerPool creates a worker pool. archiver may be nil.
func NewWorkerPool(
	workerCount, queueSize int,
	store VideoStore,
	files PathResolver,
	downloader media.Downloader,
	transcriber transcription.Transcriber,
	indexer Indexer,
	archiver Archiver,
) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &WorkerPool{
		jobQueue:       make(chan *Job, queueSize),
		workerCount:    workerCount,
		store:          store,
		files:          files,
		downloader:     downloader,
		transcriber:    transcriber,
		indexer:        indexer,
		archiver:       archiver,
		extractAudio:   media.ExtractAudio,
		scrapeMetadata: media.ScrapePageMetadata,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue schedules a pending video for processing and returns the job
// handle. Blocks if the queue is full; the bound is the backpressure limit.
func (wp *WorkerPool) Enqueue(videoID string) *Job {
	job := NewJob(videoID)
	wp.jobQueue <- job
	log.Printf("Video %s enqueued for processing", videoID)
	return job
}

// worker processes jobs from the queue.
func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing video %s: %v\n%s",
						id, job.VideoID, r, string(debug.Stack()))
					err := fmt.Errorf("worker panic: %v", r)
					wp.failVideo(job.VideoID, err)
					job.finish(err)
				}
			}()

			err := wp.processVideo(id, job)
			if err != nil {
				wp.failVideo(job.VideoID, err)
			}
			job.finish(err)
		}()
	}
}

// processVideo drives one video through the pipeline stages in order:
// acquire source, transcribe, index, archive. Source and transcription
// errors are fatal; indexing and archive errors are degraded (logged,
// recorded on the job, video still completes).
func (wp *WorkerPool) processVideo(workerID int, job *Job) error {
	ctx := context.Background()
	videoID := job.VideoID
	log.Printf("Worker %d: Processing video %s", workerID, videoID)

	video, err := wp.store.GetVideo(videoID)
	if err != nil {
		return fmt.Errorf("video not found: %w", err)
	}

	if err := wp.store.SetProcessing(videoID, types.ProgressDequeued); err != nil {
		return err
	}

	// Stage 1: source acquisition (fatal on error).
	filePath, err := wp.acquireSource(ctx, video)
	if err != nil {
		return fmt.Errorf("source acquisition failed: %w", err)
	}
	if err := wp.store.SetProgress(videoID, types.ProgressDownloaded); err != nil {
		return err
	}

	// Stage 2: transcription (fatal on error).
	result, err := wp.transcribe(ctx, filePath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if result.Text == "" {
		return errors.New("transcription produced an empty transcript")
	}
	if err := wp.store.SetTranscript(videoID, result.Text, int(result.Duration)); err != nil {
		return err
	}
	if err := wp.store.SetProgress(videoID, types.ProgressTranscribed); err != nil {
		return err
	}

	// Stage 3: indexing (degraded on error — a playable, transcribed video
	// beats failing the whole pipeline over search availability).
	if err := wp.indexer.IndexVideo(ctx, videoID, result.Text); err != nil {
		warn := &DegradedError{Stage: "indexing", Err: err}
		job.Warnings = append(job.Warnings, warn)
		log.Printf("Worker %d: WARNING - %v (video %s completes unsearchable)", workerID, warn, videoID)
	}
	if err := wp.store.SetProgress(videoID, types.ProgressIndexed); err != nil {
		return err
	}

	// Stage 4: archive (degraded on error, retried with backoff).
	if wp.archiver != nil {
		if warn := wp.archive(videoID, workerID); warn != nil {
			job.Warnings = append(job.Warnings, warn)
		}
	}

	if err := wp.store.SetCompleted(videoID); err != nil {
		return err
	}
	log.Printf("Worker %d: Video %s completed", workerID, videoID)
	return nil
}

// acquireSource downloads a remote video (resolving title and thumbnail) or
// verifies an uploaded file, returning the local path.
func (wp *WorkerPool) acquireSource(ctx context.Context, video *types.Video) (string, error) {
	if video.SourceType == types.SourceUpload {
		if video.FilePath == "" {
			return "", errors.New("uploaded video has no file path")
		}
		if _, err := os.Stat(video.FilePath); err != nil {
			return "", fmt.Errorf("uploaded file missing: %v", err)
		}
		return video.FilePath, nil
	}

	outputPath := wp.files.DownloadPath(video.ID)
	if err := wp.downloader.Download(ctx, video.SourceURL, outputPath); err != nil {
		return "", err
	}

	title := video.Title
	if title == "" || title == "Processing..." {
		if resolved, err := wp.downloader.Title(ctx, video.SourceURL); err == nil {
			title = resolved
		} else {
			log.Printf("Failed to resolve title for %s: %v", video.SourceURL, err)
			title = "Untitled Video"
		}
	}

	// Thumbnail scraping is cosmetic; ignore failures.
	var thumbnailURL string
	if wp.scrapeMetadata != nil {
		if meta, err := wp.scrapeMetadata(ctx, video.SourceURL); err == nil {
			thumbnailURL = meta.ThumbnailURL
		}
	}

	if err := wp.store.SetSourceDetails(video.ID, outputPath, title, thumbnailURL); err != nil {
		return "", err
	}
	return outputPath, nil
}

// transcribe extracts the audio track and runs the configured transcriber,
// removing the intermediate audio file afterwards.
func (wp *WorkerPool) transcribe(ctx context.Context, videoPath string) (*transcription.Result, error) {
	audioPath, err := wp.extractAudio(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", err)
	}
	defer wp.cleanupTempFile(audioPath)

	return wp.transcriber.Transcribe(ctx, audioPath)
}

// archive uploads the transcript with retries; returns a DegradedError on
// final failure.
func (wp *WorkerPool) archive(videoID string, workerID int) error {
	video, err := wp.store.GetVideo(videoID)
	if err != nil {
		return &DegradedError{Stage: "archive", Err: err}
	}

	for attempt := 1; attempt <= 3; attempt++ {
		url, err := wp.archiver.ArchiveTranscript(video)
		if err == nil {
			log.Printf("Worker %d: Transcript archived: %s", workerID, url)
			return nil
		}
		log.Printf("Worker %d: Archive attempt %d/3 failed: %v", workerID, attempt, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	log.Printf("Worker %d: WARNING - archive failed after 3 attempts, continuing", workerID)
	return &DegradedError{Stage: "archive", Err: errors.New("archive failed after 3 attempts")}
}

// failVideo records a fatal pipeline error on the video. Progress is left at
// its last value so clients can see where processing stopped.
func (wp *WorkerPool) failVideo(videoID string, err error) {
	log.Printf("Video %s failed: %v", videoID, err)
	if dbErr := wp.store.SetFailed(videoID, err.Error()); dbErr != nil {
		log.Printf("Failed to persist failure for video %s: %v", videoID, dbErr)
	}
}

func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
