package match

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/daytour-ai/daytour/internal/types"
)

const partialMinJaccard = 0.4

var mealKeywords = []string{"식사", "아침", "점심", "저녁", "맛집", "식당", "카페", "레스토랑", "브런치"}
var sightseeingKeywords = []string{"관광", "명소", "방문", "구경", "박물관", "미술관", "공원", "해변", "산책"}

var _ Service = (*ServiceImpl)(nil)

// Service reconciles place names mentioned in generated text with the
// structured itinerary. Results are deterministic for a given
// (name, itinerary) pair and cached on the itinerary's content hash.
type Service interface {
	FindDayForPlace(placeName string, itinerary types.Itinerary) types.MatchResult
	FindDaysForPlaces(placeNames []string, itinerary types.Itinerary) []types.MatchResult
}

type indexEntry struct {
	original   string
	normalized string
	tokens     []string
	day        int
}

type itineraryIndex struct {
	entries      []indexEntry
	categoryDays map[string][]int // "meal" / "sightseeing" → day numbers
	placesPerDay map[int]int
	days         []int // in itinerary order
}

type ServiceImpl struct {
	logger  *slog.Logger
	indexes *cache.Cache // itinerary hash → *itineraryIndex
	results *cache.Cache // normalized name | itinerary hash → types.MatchResult
}

func NewMatcherService(logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		indexes: cache.New(30*time.Minute, 10*time.Minute),
		results: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// FindDayForPlace resolves one mentioned place name to an itinerary day.
// Tiers run in order and the first hit wins; repeated queries against the
// same itinerary are answered from cache.
func (s *ServiceImpl) FindDayForPlace(placeName string, itinerary types.Itinerary) types.MatchResult {
	if itinerary.Empty() {
		return types.MatchResult{Day: 1, Confidence: 0.0, Type: types.MatchNone}
	}

	hash := hashItinerary(itinerary)
	normalized := NormalizeName(placeName)
	cacheKey := normalized + "|" + hash
	if cached, found := s.results.Get(cacheKey); found {
		return cached.(types.MatchResult)
	}

	idx := s.buildIndex(hash, itinerary)
	result := s.match(placeName, normalized, idx)
	s.results.Set(cacheKey, result, cache.DefaultExpiration)
	return result
}

// FindDaysForPlaces matches a batch against one itinerary, reusing the
// built index across all names.
func (s *ServiceImpl) FindDaysForPlaces(placeNames []string, itinerary types.Itinerary) []types.MatchResult {
	results := make([]types.MatchResult, len(placeNames))
	for i, name := range placeNames {
		results[i] = s.FindDayForPlace(name, itinerary)
	}
	return results
}

func (s *ServiceImpl) match(original, normalized string, idx *itineraryIndex) types.MatchResult {
	// Tier 1: exact normalized equality.
	for _, e := range idx.entries {
		if e.normalized != "" && e.normalized == normalized {
			return types.MatchResult{Day: e.day, Confidence: 1.0, Type: types.MatchExact}
		}
	}

	// Tier 2: containment or token overlap, best candidate across days.
	queryTokens := tokenize(original)
	best := types.MatchResult{}
	for _, e := range idx.entries {
		score := partialScore(normalized, e.normalized, queryTokens, e.tokens)
		if score > best.Confidence {
			best = types.MatchResult{Day: e.day, Confidence: score, Type: types.MatchPartial}
		}
	}
	if best.Type == types.MatchPartial {
		return best
	}

	// Tier 3: category inferred from the name's own keywords.
	if category := inferCategory(original); category != "" {
		if days := idx.categoryDays[category]; len(days) > 0 {
			return types.MatchResult{Day: leastLoaded(days, idx.placesPerDay), Confidence: 0.3, Type: types.MatchCategory}
		}
	}

	// Tier 4: least-loaded day.
	return types.MatchResult{Day: leastLoaded(idx.days, idx.placesPerDay), Confidence: 0.1, Type: types.MatchDefault}
}

// partialScore scores one candidate pair: containment with a length ratio
// of at least 0.5 scores the ratio itself, otherwise token Jaccard when it
// clears the floor.
func partialScore(a, b string, aTokens, bTokens []string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		la, lb := float64(len([]rune(a))), float64(len([]rune(b)))
		shorter, longer := la, lb
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if ratio := shorter / longer; ratio >= 0.5 {
			return ratio
		}
		return 0
	}
	if j := jaccard(aTokens, bTokens); j >= partialMinJaccard {
		return j
	}
	return 0
}

func (s *ServiceImpl) buildIndex(hash string, itinerary types.Itinerary) *itineraryIndex {
	if cached, found := s.indexes.Get(hash); found {
		return cached.(*itineraryIndex)
	}

	idx := &itineraryIndex{
		categoryDays: make(map[string][]int),
		placesPerDay: make(map[int]int),
	}
	for _, day := range itinerary.Days {
		idx.days = append(idx.days, day.Number)
		categories := make(map[string]struct{})
		for _, item := range day.Items {
			for _, name := range itemNames(item) {
				idx.entries = append(idx.entries, indexEntry{
					original:   name,
					normalized: NormalizeName(name),
					tokens:     tokenize(name),
					day:        day.Number,
				})
			}
			idx.placesPerDay[day.Number]++
			if c := inferCategory(item.Description + " " + item.Category); c != "" {
				categories[c] = struct{}{}
			}
		}
		for c := range categories {
			idx.categoryDays[c] = append(idx.categoryDays[c], day.Number)
		}
	}

	s.indexes.Set(hash, idx, cache.DefaultExpiration)
	return idx
}

// itemNames collects every place-name-bearing field of a schedule item,
// including the nested matched place.
func itemNames(item types.ScheduleItem) []string {
	var names []string
	if item.PlaceName != "" {
		names = append(names, item.PlaceName)
	}
	if item.Matched != nil && item.Matched.Name != "" && item.Matched.Name != item.PlaceName {
		names = append(names, item.Matched.Name)
	}
	return names
}

// inferCategory reads a coarse meal/sightseeing category out of free text.
func inferCategory(text string) string {
	for _, kw := range mealKeywords {
		if strings.Contains(text, kw) {
			return "meal"
		}
	}
	for _, kw := range sightseeingKeywords {
		if strings.Contains(text, kw) {
			return "sightseeing"
		}
	}
	return ""
}

// leastLoaded picks the candidate day holding the fewest places; ties go to
// the earlier day.
func leastLoaded(days []int, load map[int]int) int {
	if len(days) == 0 {
		return 1
	}
	best := days[0]
	for _, d := range days[1:] {
		if load[d] < load[best] || (load[d] == load[best] && d < best) {
			best = d
		}
	}
	return best
}

// hashItinerary fingerprints the itinerary content so cached matches go
// stale the moment the itinerary changes.
func hashItinerary(itinerary types.Itinerary) string {
	h := fnv.New64a()
	for _, day := range itinerary.Days {
		fmt.Fprintf(h, "%d:", day.Number)
		for _, item := range day.Items {
			h.Write([]byte(item.PlaceName))
			h.Write([]byte{0})
			h.Write([]byte(item.Description))
			h.Write([]byte{0})
			h.Write([]byte(item.Category))
			h.Write([]byte{0})
			if item.Matched != nil {
				h.Write([]byte(item.Matched.Name))
			}
			h.Write([]byte{1})
		}
	}
	return fmt.Sprintf("%x", h.Sum64())
}
