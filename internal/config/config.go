package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port  int    `yaml:"port"`
		Host  string `yaml:"host"`
		Debug bool   `yaml:"debug"`
	} `yaml:"server"`

	Storage struct {
		Database   string `yaml:"database"`
		UploadDir  string `yaml:"upload_dir"`
		TempDir    string `yaml:"temp_dir"`
		KeywordDir string `yaml:"keyword_dir"`
	} `yaml:"storage"`

	AI struct {
		Provider           string `yaml:"provider"` // "openai" or "google"
		OpenAIAPIKey       string `yaml:"openai_api_key"`
		GoogleAPIKey       string `yaml:"google_api_key"`
		ChatModel          string `yaml:"chat_model"`
		EmbeddingModel     string `yaml:"embedding_model"`
		EmbeddingDimension int    `yaml:"embedding_dimension"`
	} `yaml:"ai"`

	Transcription struct {
		Mode         string `yaml:"mode"` // "api", "local" or "none"
		WhisperModel string `yaml:"whisper_model"`
	} `yaml:"transcription"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB      int `yaml:"max_file_size_mb"`
		MaxTranscriptChars int `yaml:"max_transcript_chars"`
	} `yaml:"limits"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

// Load reads configuration from a YAML file and applies defaults and
// environment overrides for API keys.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/videorag.db"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.KeywordDir == "" {
		c.Storage.KeywordDir = "data/keyword_index"
	}
	if c.AI.OpenAIAPIKey == "" {
		c.AI.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.AI.GoogleAPIKey == "" {
		c.AI.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.AI.EmbeddingDimension == 0 {
		c.AI.EmbeddingDimension = 1536
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 100
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 60
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 500
	}
	if c.Limits.MaxTranscriptChars == 0 {
		c.Limits.MaxTranscriptChars = 10000
	}
	if c.Transcription.Mode == "" {
		c.Transcription.Mode = "api"
	}
	if c.Transcription.WhisperModel == "" {
		c.Transcription.WhisperModel = "base"
	}
}
