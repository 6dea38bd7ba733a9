package place

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daytour-ai/daytour/internal/types"
)

var _ VectorIndex = (*VectorIndexImpl)(nil)

// ScoredPlace is one similarity hit, best-first.
type ScoredPlace struct {
	Place types.Place
	Score float64
}

// VectorIndex ranks the whole corpus by cosine similarity against a query
// embedding.
type VectorIndex interface {
	SearchWithScore(ctx context.Context, embedding []float32, k int) ([]ScoredPlace, error)
}

type VectorIndexImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewVectorIndex(pgpool PGXPool, logger *slog.Logger) *VectorIndexImpl {
	return &VectorIndexImpl{logger: logger, pgpool: pgpool}
}

// SearchWithScore returns the k nearest places by cosine similarity.
// Similarity is 1 - cosine distance, so higher is better.
func (v *VectorIndexImpl) SearchWithScore(ctx context.Context, embedding []float32, k int) ([]ScoredPlace, error) {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "SearchWithScore", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(embedding)),
		attribute.Int("k", k),
	))
	defer span.End()

	l := v.logger.With(slog.String("method", "SearchWithScore"))

	query := `
        SELECT ` + placeColumns + `,
            1 - (embedding <=> $1::vector) AS similarity_score
        FROM places
        WHERE embedding IS NOT NULL
        ORDER BY embedding <=> $1::vector
        LIMIT $2`

	rows, err := v.pgpool.Query(ctx, query, vectorLiteral(embedding), k)
	if err != nil {
		l.ErrorContext(ctx, "Failed to execute vector search", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer rows.Close()

	var results []ScoredPlace
	for rows.Next() {
		var sp ScoredPlace
		p := &sp.Place
		if err := rows.Scan(&p.ID.Table, &p.ID.ID, &p.Name, &p.Region, &p.City, &p.Category,
			&p.Latitude, &p.Longitude, &sp.Score); err != nil {
			l.ErrorContext(ctx, "Failed to scan vector search row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan vector search row: %w", err)
		}
		p.Score = sp.Score
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vector search rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Vector search completed")
	return results, nil
}

// vectorLiteral renders an embedding in pgvector's input format.
func vectorLiteral(embedding []float32) string {
	strs := make([]string, len(embedding))
	for i, f := range embedding {
		strs[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(strs, ",") + "]"
}
