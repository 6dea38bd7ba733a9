package intent

import (
	"context"
	"strings"

	"github.com/daytour-ai/daytour/internal/types"
)

var _ Classifier = (*KeywordClassifier)(nil)

// KeywordClassifier is the deterministic fallback. It never fails, so the
// router keeps functioning when the model capability is down.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	confirmationKeywords = []string{"확정", "이대로", "확인했", "저장해", "결정했"}
	planningKeywords     = []string{"여행", "일정", "계획", "코스", "짜줘", "짜 줘", "박", "스케줄"}
	searchKeywords       = []string{"검색", "찾아", "알려줘", "알려 줘", "추천", "어디", "뭐가 있"}
)

func (c *KeywordClassifier) Classify(_ context.Context, query string, hasPlan bool) (types.Classification, error) {
	q := strings.TrimSpace(query)

	if containsAny(q, confirmationKeywords) {
		return types.Classification{
			PrimaryIntent:    types.IntentConfirmation,
			ConfidenceLevel:  0.6,
			ConfirmationType: "plan",
		}, nil
	}
	if containsAny(q, planningKeywords) {
		return types.Classification{
			PrimaryIntent:   types.IntentTravelPlanning,
			ConfidenceLevel: 0.5,
			RequiresRAG:     true,
		}, nil
	}
	if containsAny(q, searchKeywords) {
		return types.Classification{
			PrimaryIntent:   types.IntentInformationSearch,
			ConfidenceLevel: 0.5,
			RequiresSearch:  true,
		}, nil
	}
	return types.Classification{
		PrimaryIntent:   types.IntentGeneralChat,
		ConfidenceLevel: 0.4,
	}, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
