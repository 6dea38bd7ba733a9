package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daytour-ai/daytour/internal/api/place"
	"github.com/daytour-ai/daytour/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists confirmed travel plans. Save failures are non-fatal
// to the conversation; callers log and move on.
type Repository interface {
	SavePlan(ctx context.Context, plan *types.TravelPlan) (uuid.UUID, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*types.TravelPlan, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool place.PGXPool
}

func NewPlanRepository(pgpool place.PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) SavePlan(ctx context.Context, plan *types.TravelPlan) (uuid.UUID, error) {
	ctx, span := otel.Tracer("PlanRepository").Start(ctx, "SavePlan", trace.WithAttributes(
		attribute.String("plan.status", string(plan.Status)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SavePlan"))

	id := plan.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	cities, err := json.Marshal(plan.Cities)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal plan cities: %w", err)
	}
	itinerary, err := json.Marshal(plan.Itinerary)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal itinerary: %w", err)
	}
	places, err := json.Marshal(plan.Places)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal plan places: %w", err)
	}

	query := `
        INSERT INTO travel_plans (id, region, cities, duration_days, start_date, end_date, itinerary, places, status, confirmed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            region = EXCLUDED.region,
            cities = EXCLUDED.cities,
            duration_days = EXCLUDED.duration_days,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            itinerary = EXCLUDED.itinerary,
            places = EXCLUDED.places,
            status = EXCLUDED.status,
            confirmed_at = EXCLUDED.confirmed_at`

	_, err = r.pgpool.Exec(ctx, query, id, plan.Region, cities, plan.DurationDays,
		plan.StartDate, plan.EndDate, itinerary, places, string(plan.Status), plan.ConfirmedAt)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save travel plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return uuid.Nil, fmt.Errorf("failed to save travel plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan saved")
	return id, nil
}

func (r *RepositoryImpl) GetPlan(ctx context.Context, planID uuid.UUID) (*types.TravelPlan, error) {
	ctx, span := otel.Tracer("PlanRepository").Start(ctx, "GetPlan", trace.WithAttributes(
		attribute.String("plan.id", planID.String()),
	))
	defer span.End()

	query := `
        SELECT id, region, cities, duration_days, start_date, end_date, itinerary, places, status, confirmed_at
        FROM travel_plans WHERE id = $1`

	var (
		plan      types.TravelPlan
		cities    []byte
		itinerary []byte
		places    []byte
		status    string
	)
	err := r.pgpool.QueryRow(ctx, query, planID).Scan(&plan.ID, &plan.Region, &cities,
		&plan.DurationDays, &plan.StartDate, &plan.EndDate, &itinerary, &places, &status, &plan.ConfirmedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan not found")
		return nil, fmt.Errorf("failed to fetch travel plan %s: %w", planID, err)
	}

	if err := json.Unmarshal(cities, &plan.Cities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan cities: %w", err)
	}
	if err := json.Unmarshal(itinerary, &plan.Itinerary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal itinerary: %w", err)
	}
	if err := json.Unmarshal(places, &plan.Places); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan places: %w", err)
	}
	plan.Status = types.PlanStatus(status)

	span.SetStatus(codes.Ok, "Plan fetched")
	return &plan, nil
}
