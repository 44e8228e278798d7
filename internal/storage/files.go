package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore manages uploaded and downloaded video files on local disk.
type FileStore struct {
	uploadDir string
}

// NewFileStore creates the upload directory if needed.
func NewFileStore(uploadDir string) (*FileStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}
	return &FileStore{uploadDir: uploadDir}, nil
}

// UploadPath returns the destination path for an uploaded video file, keyed
// by video ID so names cannot collide.
func (fs *FileStore) UploadPath(videoID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return filepath.Join(fs.uploadDir, videoID+ext)
}

// DownloadPath returns the destination path for a video fetched from a URL.
func (fs *FileStore) DownloadPath(videoID string) string {
	return filepath.Join(fs.uploadDir, videoID+".mp4")
}

// Remove deletes a stored video file. A missing file is not an error.
func (fs *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file %s: %v", path, err)
	}
	return nil
}

// ValidateVideoFormat checks if the file extension is a supported container.
func ValidateVideoFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".mp4", ".webm", ".mov", ".mkv", ".avi"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// sanitizeFilename removes path separators and bounds the length, used for
// archive filenames derived from video titles.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	name = replacer.Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
