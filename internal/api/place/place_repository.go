package place

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daytour-ai/daytour/internal/types"
)

// PGXPool is the slice of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// accommodationKeywords is the fixed category exclusion list. Rows whose
// category matches any of these never surface as itinerary candidates.
var accommodationKeywords = []string{"숙박", "호텔", "모텔", "펜션", "게스트하우스", "리조트"}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the structured pre-filter store over the place corpus.
// All predicates are parameter-bound; callers never pass SQL fragments.
type Repository interface {
	FilterByCities(ctx context.Context, cities, categories []string, limit int) ([]types.Place, error)
	FilterByRegions(ctx context.Context, regions, cities, categories []string, limit int) ([]types.Place, error)
	Sample(ctx context.Context, limit int) ([]types.Place, error)
	GetByID(ctx context.Context, id types.PlaceID) (*types.Place, error)
	ListWithoutEmbeddings(ctx context.Context, limit int) ([]PlaceContent, error)
	UpdateEmbedding(ctx context.Context, id types.PlaceID, embedding []float32) error
}

// PlaceContent pairs a place with the text used to embed it.
type PlaceContent struct {
	Place   types.Place
	Content string
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPlaceRepository(pgpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const placeColumns = `source_table, source_id, name, region, city, category,
        COALESCE(latitude, 0), COALESCE(longitude, 0)`

// FilterByCities runs the city-first phase: city tokens OR'ed together,
// optionally narrowed by categories, accommodation rows excluded.
func (r *RepositoryImpl) FilterByCities(ctx context.Context, cities, categories []string, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "FilterByCities", trace.WithAttributes(
		attribute.Int("cities.count", len(cities)),
		attribute.Int("limit", limit),
	))
	defer span.End()

	return r.filter(ctx, span, nil, cities, categories, limit)
}

// FilterByRegions runs the region-expansion phase: region and city tokens
// unioned with OR semantics.
func (r *RepositoryImpl) FilterByRegions(ctx context.Context, regions, cities, categories []string, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "FilterByRegions", trace.WithAttributes(
		attribute.Int("regions.count", len(regions)),
		attribute.Int("cities.count", len(cities)),
		attribute.Int("limit", limit),
	))
	defer span.End()

	return r.filter(ctx, span, regions, cities, categories, limit)
}

func (r *RepositoryImpl) filter(ctx context.Context, span trace.Span, regions, cities, categories []string, limit int) ([]types.Place, error) {
	l := r.logger.With(slog.String("method", "filter"))

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Region/city tokens are OR'ed across both columns: a provincial token
	// can appear in either field depending on the source table.
	var tokenConds []string
	for _, tok := range append(append([]string{}, regions...), cities...) {
		if tok == "" {
			continue
		}
		p := arg("%" + tok + "%")
		tokenConds = append(tokenConds, fmt.Sprintf("(region ILIKE %s OR city ILIKE %s)", p, p))
	}
	if len(tokenConds) > 0 {
		conds = append(conds, "("+strings.Join(tokenConds, " OR ")+")")
	}

	if len(categories) > 0 {
		var catConds []string
		for _, c := range categories {
			if c == "" {
				continue
			}
			catConds = append(catConds, "category ILIKE "+arg("%"+c+"%"))
		}
		if len(catConds) > 0 {
			conds = append(conds, "("+strings.Join(catConds, " OR ")+")")
		}
	}

	for _, kw := range accommodationKeywords {
		conds = append(conds, "category NOT ILIKE "+arg("%"+kw+"%"))
	}

	query := "SELECT " + placeColumns + " FROM places"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " LIMIT " + arg(limit)

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to execute place filter query", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to execute place filter query: %w", err)
	}
	defer rows.Close()

	places, err := scanPlaces(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Places filtered")
	return places, nil
}

// Sample returns a bounded slice of the corpus for filterless turns, with
// the accommodation exclusion still applied.
func (r *RepositoryImpl) Sample(ctx context.Context, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "Sample", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Sample"))

	var (
		conds []string
		args  []interface{}
	)
	for _, kw := range accommodationKeywords {
		args = append(args, "%"+kw+"%")
		conds = append(conds, fmt.Sprintf("category NOT ILIKE $%d", len(args)))
	}
	args = append(args, limit)
	query := fmt.Sprintf("SELECT %s FROM places WHERE %s LIMIT $%d",
		placeColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to sample places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to sample places: %w", err)
	}
	defer rows.Close()

	places, err := scanPlaces(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetStatus(codes.Ok, "Places sampled")
	return places, nil
}

// GetByID resolves a single place by its source-table identity. Used as a
// secondary source of truth during structured place extraction.
func (r *RepositoryImpl) GetByID(ctx context.Context, id types.PlaceID) (*types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	query := "SELECT " + placeColumns + " FROM places WHERE source_table = $1 AND source_id = $2"
	row := r.pgpool.QueryRow(ctx, query, id.Table, id.ID)

	var p types.Place
	err := row.Scan(&p.ID.Table, &p.ID.ID, &p.Name, &p.Region, &p.City, &p.Category, &p.Latitude, &p.Longitude)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place not found")
		return nil, fmt.Errorf("failed to fetch place %s: %w", id, err)
	}
	p.Source = types.SourceLookup
	span.SetStatus(codes.Ok, "Place found")
	return &p, nil
}

// ListWithoutEmbeddings feeds the embedding backfill job.
func (r *RepositoryImpl) ListWithoutEmbeddings(ctx context.Context, limit int) ([]PlaceContent, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "ListWithoutEmbeddings")
	defer span.End()

	query := "SELECT " + placeColumns + ", content FROM places WHERE embedding IS NULL LIMIT $1"
	rows, err := r.pgpool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list places without embeddings: %w", err)
	}
	defer rows.Close()

	var out []PlaceContent
	for rows.Next() {
		var pc PlaceContent
		if err := rows.Scan(&pc.Place.ID.Table, &pc.Place.ID.ID, &pc.Place.Name, &pc.Place.Region,
			&pc.Place.City, &pc.Place.Category, &pc.Place.Latitude, &pc.Place.Longitude, &pc.Content); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	span.SetStatus(codes.Ok, "Places listed")
	return out, nil
}

// UpdateEmbedding stores a freshly computed embedding for one place.
func (r *RepositoryImpl) UpdateEmbedding(ctx context.Context, id types.PlaceID, embedding []float32) error {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "UpdateEmbedding", trace.WithAttributes(
		attribute.String("place.id", id.String()),
		attribute.Int("embedding.dimension", len(embedding)),
	))
	defer span.End()

	query := "UPDATE places SET embedding = $1::vector WHERE source_table = $2 AND source_id = $3"
	tag, err := r.pgpool.Exec(ctx, query, vectorLiteral(embedding), id.Table, id.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("failed to update embedding for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no place found for %s", id)
	}
	span.SetStatus(codes.Ok, "Embedding updated")
	return nil
}

func scanPlaces(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]types.Place, error) {
	var places []types.Place
	for rows.Next() {
		var p types.Place
		if err := rows.Scan(&p.ID.Table, &p.ID.ID, &p.Name, &p.Region, &p.City, &p.Category, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		p.Source = types.SourceHybrid
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}
