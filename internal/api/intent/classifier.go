package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/types"
)

// Classifier decides how a turn should be routed. The router always has a
// working classifier: the model-backed implementation is primary and the
// keyword implementation is the guaranteed fallback.
type Classifier interface {
	Classify(ctx context.Context, query string, hasPlan bool) (types.Classification, error)
}

var _ Classifier = (*GenAIClassifier)(nil)

type GenAIClassifier struct {
	logger *slog.Logger
	client *generativeAI.AIClient
}

func NewGenAIClassifier(client *generativeAI.AIClient, logger *slog.Logger) *GenAIClassifier {
	return &GenAIClassifier{logger: logger, client: client}
}

func (c *GenAIClassifier) Classify(ctx context.Context, query string, hasPlan bool) (types.Classification, error) {
	l := c.logger.With(slog.String("method", "Classify"))

	prompt := classificationPrompt(query, hasPlan)
	raw, err := c.client.GenerateJSON(ctx, prompt)
	if err != nil {
		l.WarnContext(ctx, "Intent classification call failed", slog.Any("error", err))
		return types.Classification{}, fmt.Errorf("intent classification failed: %w", err)
	}

	var result types.Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		l.WarnContext(ctx, "Intent classification returned malformed JSON", slog.Any("error", err))
		return types.Classification{}, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if result.PrimaryIntent == "" {
		return types.Classification{}, fmt.Errorf("classification response missing primary_intent")
	}
	return result, nil
}

func classificationPrompt(query string, hasPlan bool) string {
	return fmt.Sprintf(`Classify the user's travel-chat message.

Message: %q
User already has a travel plan in this session: %t

Respond with JSON only:
{
  "primary_intent": "travel_planning" | "information_search" | "confirmation" | "general_chat",
  "secondary_intent": "",
  "confidence_level": 0.0,
  "confirmation_type": "",
  "requires_rag": false,
  "requires_search": false
}

Rules:
- "travel_planning": the user asks for an itinerary or trip schedule. Set requires_rag true.
- "information_search": the user asks about specific places or facts. Set requires_search true.
- "confirmation": the user accepts or confirms the proposed plan.
- otherwise "general_chat".`, query, hasPlan)
}
