package types

// MatchType says which matcher tier produced a result.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchPartial  MatchType = "partial"
	MatchCategory MatchType = "category"
	MatchDefault  MatchType = "default"
	MatchNone     MatchType = "none"
)

// MatchResult assigns a mentioned place name to an itinerary day with a
// heuristic confidence in [0,1]. Ephemeral; cached by the matcher keyed on
// (normalized name, itinerary content hash).
type MatchResult struct {
	Day        int       `json:"day"`
	Confidence float64   `json:"confidence"`
	Type       MatchType `json:"type"`
}
