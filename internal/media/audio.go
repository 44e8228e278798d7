package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExtractAudio pulls the audio track out of a video file as 16kHz mono WAV,
// the format transcription backends expect.
func ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	audioPath := trimExt(videoPath) + ".wav"

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vn",               // Drop the video stream
		"-ar", "16000",      // 16kHz sample rate
		"-ac", "1",          // Mono
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y",
		audioPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	return audioPath, nil
}

func trimExt(path string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		return path[:i]
	}
	return path
}
