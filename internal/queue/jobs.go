package queue

import (
	"context"
	"fmt"
	"time"
)

// Job is the tracking handle for one video's processing run. Callers get it
// back from Enqueue and can wait on Done; the database row remains the
// canonical status record for polling clients.
type Job struct {
	VideoID   string
	CreatedAt time.Time

	// Err holds the fatal error after Done is closed, nil on success.
	Err error
	// Warnings holds tolerated stage failures (indexing, archiving) that
	// did not stop the video from completing.
	Warnings []error

	done chan struct{}
}

// NewJob creates a job handle for a video.
func NewJob(videoID string) *Job {
	return &Job{
		VideoID:   videoID,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes or the context is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finish(err error) {
	j.Err = err
	close(j.done)
}

// DegradedError classifies a stage failure the pipeline tolerates: the stage
// failed but the video still completes. Distinguishing degraded from fatal in
// the type keeps the partial-failure policy visible at the call site instead
// of being implied by which recover block surrounds which call.
type DegradedError struct {
	Stage string
	Err   error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s degraded: %v", e.Stage, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }
