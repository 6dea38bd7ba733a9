package chat

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/daytour-ai/daytour/internal/api/match"
	"github.com/daytour-ai/daytour/internal/types"
)

var (
	dayHeadingPattern = regexp.MustCompile(`(?mi)^\s*#{0,6}\s*(?:\[?\s*)?(?:day\s*)?(\d+)\s*일차|^\s*#{0,6}\s*day\s*(\d+)\b`)
	timeRangePattern  = regexp.MustCompile(`^(\d{1,2}:\d{2})(?:\s*[-~]\s*(\d{1,2}:\d{2}))?\s*`)
	bulletPattern     = regexp.MustCompile(`^\s*[-*•·]\s*`)
)

// parseItinerary splits generated text into day sections by heading
// patterns and parses each section's schedule lines. Parsed place names
// are matched back against the structured places that seeded the prompt.
func parseItinerary(text string, places []types.Place) types.Itinerary {
	var itinerary types.Itinerary

	matches := dayHeadingPattern.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		dayNum := headingDayNumber(text, m)
		if dayNum <= 0 {
			continue
		}

		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		day := types.Day{Number: dayNum}
		for _, line := range strings.Split(text[start:end], "\n") {
			if item, ok := parseScheduleLine(line); ok {
				item.Matched = matchStructuredPlace(item.PlaceName, places)
				if item.Matched != nil && item.Category == "" {
					item.Category = item.Matched.Category
				}
				day.Items = append(day.Items, item)
			}
		}
		if len(day.Items) > 0 && itinerary.Day(dayNum) == nil {
			itinerary.Days = append(itinerary.Days, day)
		}
	}
	return itinerary
}

func headingDayNumber(text string, m []int) int {
	for _, group := range []int{2, 4} {
		if group < len(m) && m[group] >= 0 {
			n, err := strconv.Atoi(text[m[group]:m[group+1]])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// parseScheduleLine parses one "- 09:00-11:00 장소 : 설명" style line. The
// time range and description are optional.
func parseScheduleLine(line string) (types.ScheduleItem, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return types.ScheduleItem{}, false
	}
	if !bulletPattern.MatchString(trimmed) && !timeRangePattern.MatchString(trimmed) {
		return types.ScheduleItem{}, false
	}
	trimmed = bulletPattern.ReplaceAllString(trimmed, "")

	var item types.ScheduleItem
	if tm := timeRangePattern.FindStringSubmatch(trimmed); tm != nil {
		item.TimeRange = tm[1]
		if tm[2] != "" {
			item.TimeRange += "-" + tm[2]
		}
		trimmed = strings.TrimSpace(trimmed[len(tm[0]):])
	}
	if trimmed == "" {
		return types.ScheduleItem{}, false
	}

	// "장소 : 설명" — split on the first colon that is not part of a time.
	if idx := strings.Index(trimmed, " : "); idx >= 0 {
		item.PlaceName = strings.TrimSpace(trimmed[:idx])
		item.Description = strings.TrimSpace(trimmed[idx+3:])
	} else if idx := strings.IndexAny(trimmed, ":："); idx >= 0 && !strings.ContainsAny(trimmed[:idx], "0123456789") {
		_, width := utf8.DecodeRuneInString(trimmed[idx:])
		item.PlaceName = strings.TrimSpace(trimmed[:idx])
		item.Description = strings.TrimSpace(trimmed[idx+width:])
	} else {
		item.PlaceName = trimmed
	}
	if item.PlaceName == "" {
		return types.ScheduleItem{}, false
	}
	return item, true
}

// matchStructuredPlace resolves a parsed name to one of the retrieved
// places by normalized equality, then containment.
func matchStructuredPlace(name string, places []types.Place) *types.Place {
	normalized := match.NormalizeName(name)
	if normalized == "" {
		return nil
	}
	for i := range places {
		if match.NormalizeName(places[i].Name) == normalized {
			return &places[i]
		}
	}
	for i := range places {
		pn := match.NormalizeName(places[i].Name)
		if pn == "" {
			continue
		}
		if strings.Contains(pn, normalized) || strings.Contains(normalized, pn) {
			return &places[i]
		}
	}
	return nil
}
