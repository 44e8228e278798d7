package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes stale intermediate files (extracted audio,
// whisper output) from the temp directory.
type Scheduler struct {
	tempDir         string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		tempDir:         tempDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup loop, running one sweep immediately.
func (s *Scheduler) Start() {
	log.Println("Running initial temp file cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// EnsureTempDirExists creates the temp directory if missing.
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}

// cleanOldFiles removes files older than maxAgeHours from the temp directory.
func (s *Scheduler) cleanOldFiles() {
	cutoff := time.Now().Add(-time.Duration(s.maxAgeHours) * time.Hour)
	var removed int

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Temp cleanup walk failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Temp cleanup removed %d stale files", removed)
	}
}
