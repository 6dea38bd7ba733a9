package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/daytour-ai/daytour/internal/types"
)

var mealSlotKeywords = []string{"식사", "아침", "점심", "저녁", "맛집", "식당", "브런치"}
var mealCategoryKeywords = []string{"음식", "식당", "카페", "맛집", "레스토랑"}

// processConfirmation finalizes the active plan: resolve it, assign every
// place to a day, compute the travel date window and emit the redirect
// payload. When no plan can be resolved the user is guided to make one
// instead of getting an error.
func (s *ServiceImpl) processConfirmation(ctx context.Context, t *turn) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ConfirmationProcessing")
	defer span.End()

	l := s.logger.With(slog.String("method", "processConfirmation"), slog.String("session_id", t.sessionID))

	plan := t.session.Plan
	if !plan.Exists() {
		if cached, found := s.planCache.Get(t.sessionID); found {
			plan = cached.(*types.TravelPlan)
		}
	}
	if !plan.Exists() {
		t.final = &types.ChatResponse{
			Text:   guidanceNoPlan,
			Action: types.ActionRequestTravelPlan,
		}
		return
	}

	now := time.Now()
	plan.Status = types.PlanConfirmed
	plan.ConfirmedAt = &now
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	assignments := s.assignPlaces(plan)
	start, end := s.dateWindow(plan, now)
	plan.StartDate, plan.EndDate = &start, &end

	if _, err := s.planRepo.SavePlan(ctx, plan); err != nil {
		// Non-fatal: the plan is confirmed either way, just not persisted.
		l.WarnContext(ctx, "Confirmed plan persistence failed", slog.Any("error", err))
	}
	if s.metrics != nil {
		s.metrics.PlanConfirmationsTotal.Add(ctx, 1)
	}

	s.sessions.Update(t.sessionID, types.SessionUpdate{Plan: plan})

	t.final = &types.ChatResponse{
		Text:   fmt.Sprintf("여행 일정이 확정되었어요! %s부터 %s까지, 즐거운 여행 되세요.", start.Format("2006-01-02"), end.Format("2006-01-02")),
		Plan:   plan,
		Action: types.ActionConfirmRedirect,
		Redirect: &types.RedirectPayload{
			PlanID:      plan.ID.String(),
			Assignments: assignments,
			StartDate:   start.Format("2006-01-02"),
			EndDate:     end.Format("2006-01-02"),
		},
	}
}

// assignPlaces resolves every plan place to an itinerary day. Low-
// confidence matches for meal-category places prefer a day that already
// has a meal-labeled slot; an empty itinerary distributes places evenly
// across the trip days.
func (s *ServiceImpl) assignPlaces(plan *types.TravelPlan) []types.PlaceAssignment {
	duration := plan.DurationDays
	if duration <= 0 {
		duration = 1
	}

	assignments := make([]types.PlaceAssignment, 0, len(plan.Places))
	for i, p := range plan.Places {
		day := 0
		result := s.matcher.FindDayForPlace(p.Name, plan.Itinerary)

		switch {
		case result.Type == types.MatchNone:
			day = i%duration + 1
		case result.Confidence <= 0.1 && isMealCategory(p.Category):
			if mealDay := findMealDay(plan.Itinerary); mealDay > 0 {
				day = mealDay
			}
		}
		if day == 0 {
			day = result.Day
		}
		assignments = append(assignments, types.PlaceAssignment{Place: p.ID, Day: day})
	}
	return assignments
}

// dateWindow prefers explicitly parsed dates and falls back to a window
// starting today spanning the plan duration.
func (s *ServiceImpl) dateWindow(plan *types.TravelPlan, now time.Time) (time.Time, time.Time) {
	if plan.StartDate != nil && plan.EndDate != nil {
		return *plan.StartDate, *plan.EndDate
	}
	if start, end, ok := parseDateWindow(plan.RawDates, plan.DurationDays); ok {
		return start, end
	}
	duration := plan.DurationDays
	if duration <= 0 {
		duration = 1
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, duration-1)
}

func isMealCategory(category string) bool {
	for _, kw := range mealCategoryKeywords {
		if strings.Contains(category, kw) {
			return true
		}
	}
	return false
}

// findMealDay returns the first day carrying a meal-labeled schedule slot.
func findMealDay(itinerary types.Itinerary) int {
	for _, day := range itinerary.Days {
		for _, item := range day.Items {
			text := item.Description + " " + item.Category
			for _, kw := range mealSlotKeywords {
				if strings.Contains(text, kw) {
					return day.Number
				}
			}
		}
	}
	return 0
}

var koreanDatePattern = regexp.MustCompile(`(?:(\d{4})년\s*)?(\d{1,2})월\s*(\d{1,2})일`)

// parseDateWindow reads the first explicit Korean date out of a raw date
// expression ("10월 3일부터 2박 3일") and spans it by the duration. Dates
// already past roll into the next year.
func parseDateWindow(raw string, durationDays int) (time.Time, time.Time, bool) {
	m := koreanDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	now := time.Now()
	year := now.Year()
	if m[1] != "" {
		if y, err := strconv.Atoi(m[1]); err == nil {
			year = y
		}
	}
	month, err1 := strconv.Atoi(m[2])
	day, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, time.Time{}, false
	}

	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if m[1] == "" && start.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())) {
		start = start.AddDate(1, 0, 0)
	}
	if durationDays <= 0 {
		durationDays = 1
	}
	return start, start.AddDate(0, 0, durationDays-1), true
}

func parsePlanID(planID string) (uuid.UUID, error) {
	id, err := uuid.Parse(planID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid plan id %q: %w", planID, err)
	}
	return id, nil
}
