package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/types"
)

// EntityExtractor pulls filter terms and trip attributes out of a query.
type EntityExtractor interface {
	Extract(ctx context.Context, query string) (types.ExtractionResult, error)
}

var _ EntityExtractor = (*GenAIExtractor)(nil)

type GenAIExtractor struct {
	logger *slog.Logger
	client *generativeAI.AIClient
}

func NewGenAIExtractor(client *generativeAI.AIClient, logger *slog.Logger) *GenAIExtractor {
	return &GenAIExtractor{logger: logger, client: client}
}

func (e *GenAIExtractor) Extract(ctx context.Context, query string) (types.ExtractionResult, error) {
	l := e.logger.With(slog.String("method", "Extract"))

	raw, err := e.client.GenerateJSON(ctx, extractionPrompt(query))
	if err != nil {
		l.WarnContext(ctx, "Entity extraction call failed", slog.Any("error", err))
		return types.ExtractionResult{}, fmt.Errorf("entity extraction failed: %w", err)
	}

	var result types.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		l.WarnContext(ctx, "Entity extraction returned malformed JSON", slog.Any("error", err))
		return types.ExtractionResult{}, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return result, nil
}

func extractionPrompt(query string) string {
	return fmt.Sprintf(`Extract travel entities from the user's message.

Message: %q

Respond with JSON only:
{
  "regions": [],        // provinces or metropolitan areas, e.g. "강원도", "서울특별시"
  "cities": [],         // cities or districts, e.g. "강릉", "속초"
  "categories": [],     // place categories, e.g. "카페", "박물관"
  "keywords": [],       // other salient words
  "intent": "",         // "place_search" when the user asks for specific places, else ""
  "travel_type": "",    // e.g. "가족", "커플", "혼자"
  "duration": 0,        // trip length in days, 0 when unknown
  "travel_dates": ""    // raw date expression as written, e.g. "10월 3일부터 2박 3일"
}`, query)
}
