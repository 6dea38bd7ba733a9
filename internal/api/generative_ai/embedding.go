package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/genai"
)

const embeddingModel = "text-embedding-004"

// Embedder turns text into a vector for similarity search. How embeddings
// are produced is outside the engine's contract; this is the seam.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = (*EmbeddingService)(nil)

type EmbeddingService struct {
	client *genai.Client
	logger *slog.Logger
}

func NewEmbeddingService(ctx context.Context, logger *slog.Logger) (*EmbeddingService, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	return &EmbeddingService{client: client, logger: logger}, nil
}

// Embed returns the embedding vector for one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.Models.EmbedContent(ctx, embeddingModel, genai.Text(text), nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to embed content", slog.Any("error", err))
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}
	return resp.Embeddings[0].Values, nil
}
