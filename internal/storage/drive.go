package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/video-rag/internal/types"
)

// DriveArchiver uploads completed transcripts to Google Drive. Archiving is
// strictly best-effort: the processing pipeline completes whether or not the
// archive upload works.
type DriveArchiver struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveArchiver creates a Drive client from OAuth credential files and
// finds or creates the archive folder.
func NewDriveArchiver(credentialsFile, tokenFile, folderName string) (*DriveArchiver, error) {
	ctx := context.Background()

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client, err := clientFromToken(config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %v", err)
	}

	da := &DriveArchiver{service: srv, folderName: folderName}
	if err := da.ensureFolder(); err != nil {
		return nil, err
	}
	return da, nil
}

// clientFromToken builds an HTTP client from a cached OAuth token. Unlike an
// interactive CLI flow, a server cannot prompt for a code, so a missing token
// file is an error and archiving stays disabled.
func clientFromToken(config *oauth2.Config, tokenFile string) (*http.Client, error) {
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("drive token not available (run the setup flow first): %v", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to parse drive token: %v", err)
	}
	return config.Client(context.Background(), tok), nil
}

// ensureFolder finds or creates the root archive folder.
func (da *DriveArchiver) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		da.folderName)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %v", err)
	}

	if len(r.Files) > 0 {
		da.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     da.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	file, err := da.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %v", err)
	}

	da.folderID = file.Id
	return nil
}

// ArchiveTranscript uploads a video's transcript text plus a metadata JSON
// sidecar into a dated folder and returns a shareable link.
func (da *DriveArchiver) ArchiveTranscript(video *types.Video) (string, error) {
	now := time.Now()
	folderID, err := da.ensureDateFolder(now)
	if err != nil {
		return "", err
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(video.Title))

	txtFile := &drive.File{
		Name:    baseFilename + ".txt",
		Parents: []string{folderID},
	}

	txtReader, err := tempReader(video.Transcript, "transcript-*.txt")
	if err != nil {
		return "", err
	}
	defer cleanupTemp(txtReader)

	if _, err := da.service.Files.Create(txtFile).Media(txtReader).Do(); err != nil {
		return "", fmt.Errorf("failed to upload transcript: %v", err)
	}

	metadata := map[string]interface{}{
		"video_id":         video.ID,
		"title":            video.Title,
		"source_type":      video.SourceType,
		"source_url":       video.SourceURL,
		"duration_seconds": video.Duration,
		"created_at":       video.CreatedAt,
	}
	metaJSON, _ := json.MarshalIndent(metadata, "", "  ")

	metaFile := &drive.File{
		Name:    baseFilename + "_meta.json",
		Parents: []string{folderID},
	}

	metaReader, err := tempReader(string(metaJSON), "transcript-*.json")
	if err != nil {
		return "", err
	}
	defer cleanupTemp(metaReader)

	createdMeta, err := da.service.Files.Create(metaFile).Media(metaReader).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %v", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", createdMeta.Id), nil
}

// ensureDateFolder creates nested year/month/day folders.
func (da *DriveArchiver) ensureDateFolder(t time.Time) (string, error) {
	yearID, err := da.findOrCreateFolder(fmt.Sprintf("%d", t.Year()), da.folderID)
	if err != nil {
		return "", err
	}
	monthID, err := da.findOrCreateFolder(fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}
	return da.findOrCreateFolder(fmt.Sprintf("%02d", t.Day()), monthID)
}

// findOrCreateFolder finds or creates a folder with the given parent.
func (da *DriveArchiver) findOrCreateFolder(name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		name, parentID)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	}

	file, err := da.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

func tempReader(content, pattern string) (*os.File, error) {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}
	if _, err := tmpFile.Seek(0, 0); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}
	return tmpFile, nil
}

func cleanupTemp(f *os.File) {
	name := f.Name()
	f.Close()
	os.Remove(name)
}
