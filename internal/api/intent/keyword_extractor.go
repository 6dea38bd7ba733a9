package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/daytour-ai/daytour/internal/types"
)

var _ EntityExtractor = (*KeywordExtractor)(nil)

// KeywordExtractor is the deterministic extraction fallback: a fixed region
// gazetteer plus duration and category patterns. Coarse, but never fails.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

var knownRegions = []string{
	"서울특별시", "부산광역시", "대구광역시", "인천광역시", "광주광역시", "대전광역시", "울산광역시",
	"세종특별자치시", "경기도", "강원도", "충청북도", "충청남도", "전라북도", "전라남도",
	"경상북도", "경상남도", "제주특별자치도",
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "경기", "강원", "제주",
}

var knownCities = []string{
	"강릉", "속초", "춘천", "전주", "경주", "여수", "수원", "성남", "포항", "통영", "거제",
	"안동", "군산", "목포", "순천", "양양", "평창", "정선", "서귀포",
}

var knownCategories = []string{
	"카페", "맛집", "식당", "박물관", "미술관", "공원", "해변", "해수욕장", "시장", "전망대", "사찰", "궁궐",
}

var (
	nightsDaysPattern = regexp.MustCompile(`(\d+)박\s*(\d+)일`)
	daysPattern       = regexp.MustCompile(`(\d+)일`)
	placeSearchHints  = []string{"어디", "알려줘", "추천해", "찾아줘"}
)

func (e *KeywordExtractor) Extract(_ context.Context, query string) (types.ExtractionResult, error) {
	var result types.ExtractionResult

	for _, region := range knownRegions {
		if strings.Contains(query, region) && !containsToken(result.Regions, region) {
			result.Regions = append(result.Regions, region)
		}
	}
	for _, city := range knownCities {
		if strings.Contains(query, city) {
			result.Cities = append(result.Cities, city)
		}
	}
	for _, category := range knownCategories {
		if strings.Contains(query, category) {
			result.Categories = append(result.Categories, category)
		}
	}

	if m := nightsDaysPattern.FindStringSubmatch(query); m != nil {
		if days, err := strconv.Atoi(m[2]); err == nil {
			result.Duration = days
		}
		result.TravelDates = m[0]
	} else if m := daysPattern.FindStringSubmatch(query); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil && days <= 31 {
			result.Duration = days
		}
	}

	if containsAny(query, placeSearchHints) && len(result.Categories) > 0 {
		result.Intent = "place_search"
	}
	return result, nil
}

// containsToken avoids duplicating a short region alias when the fully
// suffixed form already matched ("서울특별시" and "서울").
func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if strings.Contains(t, token) || strings.Contains(token, t) {
			return true
		}
	}
	return false
}
