package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	database "github.com/daytour-ai/daytour/app/db"
	"github.com/daytour-ai/daytour/config"
	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/api/place"
)

const batchSize = 20

// Backfills embeddings for places imported without one. Run manually after
// loading a new corpus snapshot.
func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build database config: %v", err)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		log.Fatalf("Failed to initialize database pool: %v", err)
	}
	defer pool.Close()

	embeddingService, err := generativeAI.NewEmbeddingService(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to initialize embedding service: %v", err)
	}
	repo := place.NewPlaceRepository(pool, logger)

	total := 0
	for {
		pending, err := repo.ListWithoutEmbeddings(ctx, batchSize)
		if err != nil {
			log.Fatalf("Failed to list places without embeddings: %v", err)
		}
		if len(pending) == 0 {
			break
		}

		processed := 0
		for _, pc := range pending {
			text := pc.Content
			if text == "" {
				text = fmt.Sprintf("%s %s %s %s", pc.Place.Name, pc.Place.Category, pc.Place.Region, pc.Place.City)
			}
			embedding, err := embeddingService.Embed(ctx, text)
			if err != nil {
				logger.Error("Failed to embed place, skipping",
					slog.String("place", pc.Place.ID.String()), slog.Any("error", err))
				continue
			}
			if err := repo.UpdateEmbedding(ctx, pc.Place.ID, embedding); err != nil {
				logger.Error("Failed to store embedding",
					slog.String("place", pc.Place.ID.String()), slog.Any("error", err))
				continue
			}
			processed++
			total++
		}
		logger.Info("Processed embedding batch", slog.Int("batch", len(pending)), slog.Int("total", total))
		if processed == 0 {
			logger.Error("No progress in batch, stopping to avoid a retry loop")
			break
		}
	}

	logger.Info("Embedding backfill complete", slog.Int("total", total))
}
