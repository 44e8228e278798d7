package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPITranscriberRequiresKey(t *testing.T) {
	_, err := NewAPITranscriber("")
	assert.Error(t, err)
}

func TestAPITranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "clip.wav", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{
			"text":     "hello world",
			"language": "en",
			"duration": 12.5,
		})
	}))
	t.Cleanup(server.Close)

	audioPath := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0644))

	tr, err := NewAPITranscriber("test-key")
	require.NoError(t, err)
	tr.baseURL = server.URL

	result, err := tr.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.InDelta(t, 12.5, result.Duration, 1e-9)
}

func TestAPITranscribeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	audioPath := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0644))

	tr, err := NewAPITranscriber("test-key")
	require.NoError(t, err)
	tr.baseURL = server.URL

	_, err = tr.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPlaceholderTranscriber(t *testing.T) {
	result, err := PlaceholderTranscriber{}.Transcribe(context.Background(), "/tmp/audio.wav")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "audio.wav")
	assert.Equal(t, "en", result.Language)

	again, err := PlaceholderTranscriber{}.Transcribe(context.Background(), "/tmp/audio.wav")
	require.NoError(t, err)
	assert.Equal(t, result.Text, again.Text)
}
