package types

// IntentType is the classifier's primary read of a turn.
type IntentType string

const (
	IntentTravelPlanning    IntentType = "travel_planning"
	IntentInformationSearch IntentType = "information_search"
	IntentConfirmation      IntentType = "confirmation"
	IntentGeneralChat       IntentType = "general_chat"
)

// Classification is the intent classifier's verdict for one turn.
type Classification struct {
	PrimaryIntent    IntentType `json:"primary_intent"`
	SecondaryIntent  string     `json:"secondary_intent,omitempty"`
	ConfidenceLevel  float64    `json:"confidence_level"`
	ConfirmationType string     `json:"confirmation_type,omitempty"`
	RequiresRAG      bool       `json:"requires_rag"`
	RequiresSearch   bool       `json:"requires_search"`
}

// ExtractionResult is the entity extractor's read of a turn: filter terms
// for retrieval plus trip-level attributes.
type ExtractionResult struct {
	Regions     []string `json:"regions"`
	Cities      []string `json:"cities"`
	Categories  []string `json:"categories"`
	Keywords    []string `json:"keywords"`
	Intent      string   `json:"intent,omitempty"` // e.g. "place_search"
	TravelType  string   `json:"travel_type,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	TravelDates string   `json:"travel_dates,omitempty"`
}

// Filter projects the extraction onto a retrieval filter.
func (e ExtractionResult) Filter() SearchFilter {
	return SearchFilter{Regions: e.Regions, Cities: e.Cities, Categories: e.Categories}
}

// ActionType tags the optional action a response carries for the caller.
type ActionType string

const (
	ActionNone              ActionType = ""
	ActionConfirmRedirect   ActionType = "confirm_redirect"
	ActionRequestTravelPlan ActionType = "request_travel_plan"
)

// PlaceAssignment binds one confirmed place to the itinerary day it was
// resolved to.
type PlaceAssignment struct {
	Place PlaceID `json:"place"`
	Day   int     `json:"day"`
}

// RedirectPayload is emitted on confirmation for the caller to act on.
type RedirectPayload struct {
	PlanID      string            `json:"plan_id"`
	Assignments []PlaceAssignment `json:"assignments"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
}

// ChatResponse is the produced surface of one turn: rendered text, the
// current plan, an optional action, and the raw retrieved documents.
type ChatResponse struct {
	Text     string           `json:"text"`
	Plan     *TravelPlan      `json:"plan,omitempty"`
	Action   ActionType       `json:"action,omitempty"`
	Redirect *RedirectPayload `json:"redirect,omitempty"`
	Places   []Place          `json:"places,omitempty"`
}
