// Command reindex re-embeds and re-indexes every completed video's transcript.
// Run it after changing the embedding model or chunking parameters; the
// existing index entries for each video are replaced in place.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/schollz/progressbar/v3"

	"github.com/codebuildervaibhav/video-rag/internal/ai"
	"github.com/codebuildervaibhav/video-rag/internal/config"
	"github.com/codebuildervaibhav/video-rag/internal/rag"
	"github.com/codebuildervaibhav/video-rag/internal/storage"
	"github.com/codebuildervaibhav/video-rag/internal/types"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	videoID := flag.String("video", "", "reindex only this video ID")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var embedder ai.Embedder
	switch cfg.AI.Provider {
	case "google":
		embedder, err = ai.NewGeminiProvider(cfg.AI.GoogleAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
	default:
		embedder, err = ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel, cfg.AI.EmbeddingModel)
	}
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}

	db, err := storage.NewDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	vectors, err := rag.NewVectorStore(cfg.Storage.Database, cfg.AI.EmbeddingDimension)
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}
	defer vectors.Close()

	keywords, err := rag.OpenKeywordIndex(cfg.Storage.KeywordDir)
	if err != nil {
		log.Fatalf("Failed to open keyword index: %v", err)
	}
	defer keywords.Close()

	retriever := rag.NewService(embedder, nil, vectors, keywords)

	var videos []*types.Video
	if *videoID != "" {
		video, err := db.GetVideo(*videoID)
		if err != nil {
			log.Fatalf("Video %s not found: %v", *videoID, err)
		}
		videos = append(videos, video)
	} else {
		videos, err = db.ListVideos(types.StatusCompleted)
		if err != nil {
			log.Fatalf("Failed to list videos: %v", err)
		}
	}

	if len(videos) == 0 {
		log.Println("Nothing to reindex")
		return
	}

	ctx := context.Background()
	bar := progressbar.Default(int64(len(videos)), "reindexing")

	var failed int
	for _, video := range videos {
		if video.Transcript == "" {
			log.Printf("Skipping %s: no transcript", video.ID)
			bar.Add(1)
			continue
		}
		if err := retriever.IndexVideo(ctx, video.ID, video.Transcript); err != nil {
			log.Printf("Failed to reindex %s (%s): %v", video.ID, video.Title, err)
			failed++
		}
		bar.Add(1)
	}

	if failed > 0 {
		log.Fatalf("Reindex finished with %d failures out of %d videos", failed, len(videos))
	}
	log.Printf("Reindexed %d videos", len(videos))
}
