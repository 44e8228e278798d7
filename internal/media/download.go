package media

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Downloader fetches a remote video to local disk and resolves its title.
// The worker pool depends on this interface so tests can substitute a fake.
type Downloader interface {
	Download(ctx context.Context, url, outputPath string) error
	Title(ctx context.Context, url string) (string, error)
}

// YtDlpDownloader shells out to yt-dlp, which handles YouTube and most other
// video hosts.
type YtDlpDownloader struct {
	binary string
}

// NewYtDlpDownloader creates a downloader. binary defaults to "yt-dlp".
func NewYtDlpDownloader(binary string) *YtDlpDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpDownloader{binary: binary}
}

// Download fetches the best available mp4 to outputPath.
func (d *YtDlpDownloader) Download(ctx context.Context, url, outputPath string) error {
	log.Printf("Downloading with yt-dlp: %s", url)

	cmd := exec.CommandContext(ctx, d.binary,
		"-f", "best[ext=mp4]/best",
		"-o", outputPath,
		url,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp failed: %v\nOutput: %s", err, string(output))
	}

	log.Printf("Download completed: %s", outputPath)
	return nil
}

// Title resolves the remote video's title without downloading it.
func (d *YtDlpDownloader) Title(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binary, "--get-title", url)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp --get-title failed: %v", err)
	}

	title := strings.TrimSpace(string(output))
	if title == "" {
		return "Untitled Video", nil
	}
	return title, nil
}
