package chat

import "github.com/daytour-ai/daytour/internal/types"

// Stage identifies one processing state of the turn state machine.
type Stage int

const (
	StageClassify Stage = iota
	StageRAGProcessing
	StageInformationSearch
	StageSearchProcessing
	StageGeneralChat
	StageConfirmationProcessing
	StageIntegrateResponse
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageRAGProcessing:
		return "rag_processing"
	case StageInformationSearch:
		return "information_search"
	case StageSearchProcessing:
		return "search_processing"
	case StageGeneralChat:
		return "general_chat"
	case StageConfirmationProcessing:
		return "confirmation_processing"
	case StageIntegrateResponse:
		return "integrate_response"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// routeClassification maps a classification onto the processing stage.
// Confirmation wins over everything; RAG turns split on the extractor's
// secondary intent; then plain search; general chat is the default.
func routeClassification(c types.Classification, extractionIntent string) Stage {
	switch {
	case c.PrimaryIntent == types.IntentConfirmation:
		return StageConfirmationProcessing
	case c.RequiresRAG:
		if extractionIntent == "place_search" {
			return StageInformationSearch
		}
		return StageRAGProcessing
	case c.RequiresSearch:
		return StageSearchProcessing
	default:
		return StageGeneralChat
	}
}

// nextStage is the transition table. Every processing stage feeds
// integration; integration terminates the turn.
func nextStage(s Stage) Stage {
	switch s {
	case StageClassify:
		// Classify transitions via routeClassification, not here.
		return StageIntegrateResponse
	case StageRAGProcessing, StageInformationSearch, StageSearchProcessing,
		StageGeneralChat, StageConfirmationProcessing:
		return StageIntegrateResponse
	case StageIntegrateResponse:
		return StageDone
	default:
		return StageDone
	}
}
