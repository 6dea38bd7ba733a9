package types

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleItem is one activity slot inside a day. PlaceName is the text the
// model generated; Matched points at the structured place it resolved to,
// when resolution succeeded.
type ScheduleItem struct {
	TimeRange   string `json:"time_range,omitempty"`
	PlaceName   string `json:"place_name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Matched     *Place `json:"matched,omitempty"`
}

// Day groups the schedule items of one itinerary day. Numbers are 1-based
// and unique within an itinerary; they need not be contiguous.
type Day struct {
	Number int            `json:"number"`
	Items  []ScheduleItem `json:"items"`
}

// Itinerary is the ordered set of day schedules parsed from generated text.
type Itinerary struct {
	Days []Day `json:"days"`
}

// Day returns the day with the given number, or nil.
func (it *Itinerary) Day(number int) *Day {
	for i := range it.Days {
		if it.Days[i].Number == number {
			return &it.Days[i]
		}
	}
	return nil
}

func (it *Itinerary) Empty() bool {
	return it == nil || len(it.Days) == 0
}

// PlanStatus only ever moves draft → confirmed.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanConfirmed PlanStatus = "confirmed"
)

// TravelPlan is the working plan for one session. The router mutates it in
// place across turns until it is confirmed; after that it is append-only.
type TravelPlan struct {
	ID           uuid.UUID  `json:"id,omitempty"`
	Region       string     `json:"region,omitempty"`
	Cities       []string   `json:"cities,omitempty"`
	DurationDays int        `json:"duration_days,omitempty"`
	RawDates     string     `json:"raw_dates,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Itinerary    Itinerary  `json:"itinerary"`
	Places       []Place    `json:"places,omitempty"`
	Status       PlanStatus `json:"status"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

func (p *TravelPlan) Exists() bool {
	return p != nil && (!p.Itinerary.Empty() || len(p.Places) > 0)
}
