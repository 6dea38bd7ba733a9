package chat

import (
	"fmt"
	"strings"

	"github.com/daytour-ai/daytour/internal/types"
)

// getItineraryPrompt builds the generation prompt for an itinerary turn.
// Only the whitelisted retrieved place names may appear in the schedule;
// the model is not allowed to invent places.
func getItineraryPrompt(query string, extraction types.ExtractionResult, places []types.Place) string {
	var placeList strings.Builder
	for _, p := range places {
		fmt.Fprintf(&placeList, "- %s (%s, %s %s)\n", p.Name, p.Category, p.Region, p.City)
	}

	duration := extraction.Duration
	if duration <= 0 {
		duration = 2
	}

	return fmt.Sprintf(`당신은 한국 여행 일정을 짜주는 여행 플래너입니다.

사용자 요청: %s
여행 기간: %d일
여행 날짜: %s

아래 장소 목록에 있는 장소만 사용하여 일정을 만드세요. 목록에 없는 장소를 지어내면 안 됩니다.

장소 목록:
%s
다음 형식으로 일차별 일정을 작성하세요:

## 1일차
- 09:00-11:00 장소이름 : 활동 설명
- 12:00-13:00 장소이름 : 점심 식사

## 2일차
- ...

각 일차에 3~5개의 장소를 배치하고, 이동 동선과 식사 시간을 고려하세요.`,
		query, duration, extraction.TravelDates, placeList.String())
}

// getGeneralChatPrompt keeps casual turns on travel topics.
func getGeneralChatPrompt(query, sessionContext string) string {
	return fmt.Sprintf(`당신은 친절한 한국 여행 도우미입니다. 여행과 관련된 대화를 이어가세요.

이전 대화 요약:
%s

사용자: %s

간결하고 자연스럽게 한국어로 답하세요.`, sessionContext, query)
}

// getSearchSummaryPrompt condenses retrieved places into a short answer.
func getSearchSummaryPrompt(query string, places []types.Place) string {
	var placeList strings.Builder
	for _, p := range places {
		fmt.Fprintf(&placeList, "- %s (%s, %s %s)\n", p.Name, p.Category, p.Region, p.City)
	}
	return fmt.Sprintf(`사용자의 질문에 아래 검색 결과를 바탕으로 한국어로 간결하게 답하세요.

질문: %s

검색 결과:
%s`, query, placeList.String())
}
