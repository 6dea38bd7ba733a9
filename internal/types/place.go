package types

import "fmt"

// PlaceSource tags how a place entered the result set.
type PlaceSource string

const (
	SourceHybrid         PlaceSource = "hybrid"          // structured pre-filter ∩ vector ranking
	SourceVectorFallback PlaceSource = "vector_fallback" // full-corpus vector search, no pre-filter
	SourceLookup         PlaceSource = "db_lookup"       // resolved by id during place extraction
)

// PlaceID identifies a place by its origin category table plus the numeric
// row id within that table. The pair is unique within one retrieval batch.
type PlaceID struct {
	Table string `json:"table"`
	ID    int64  `json:"id"`
}

func (p PlaceID) String() string {
	return fmt.Sprintf("%s:%d", p.Table, p.ID)
}

// Place is one retrieved candidate. Immutable once built; owned by the
// retrieval result set for the duration of a single turn.
type Place struct {
	ID        PlaceID     `json:"id"`
	Name      string      `json:"name"`
	Region    string      `json:"region"`
	City      string      `json:"city"`
	Category  string      `json:"category"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Score     float64     `json:"score"`
	Source    PlaceSource `json:"source"`
}

// SearchFilter carries the structured pre-filter terms extracted from the
// user query. Empty slices mean "no constraint on that axis".
type SearchFilter struct {
	Regions    []string `json:"regions"`
	Cities     []string `json:"cities"`
	Categories []string `json:"categories"`
}

func (f SearchFilter) Empty() bool {
	return len(f.Regions) == 0 && len(f.Cities) == 0 && len(f.Categories) == 0
}
