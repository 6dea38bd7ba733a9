package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/daytour-ai/daytour/config"
	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/api/place"
	"github.com/daytour-ai/daytour/internal/types"
)

// second-line accommodation filter, applied to vector hits as well since
// the corpus can carry rows imported before the category cleanup.
var excludedCategoryKeywords = []string{"숙박", "호텔", "모텔", "펜션", "게스트하우스", "리조트"}

var _ Service = (*ServiceImpl)(nil)

// Service is the hybrid retriever: structured pre-filter, then vector
// similarity ranking over the survivors. Results are best-first and
// deduplicated by identity.
type Service interface {
	Search(ctx context.Context, query string, filter types.SearchFilter) ([]types.Place, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     place.Repository
	index    place.VectorIndex
	embedder generativeAI.Embedder
	cfg      config.RetrievalConfig
}

func NewRetrievalService(repo place.Repository, index place.VectorIndex, embedder generativeAI.Embedder, cfg config.RetrievalConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		index:    index,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Search runs the two-phase hybrid retrieval. The structured pre-filter and
// the full-corpus vector query are independent and run concurrently; a
// structured failure degrades to the vector-only fallback, a vector failure
// propagates up as an empty result.
func (s *ServiceImpl) Search(ctx context.Context, query string, filter types.SearchFilter) ([]types.Place, error) {
	ctx, span := otel.Tracer("RetrievalService").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("filter.regions", len(filter.Regions)),
		attribute.Int("filter.cities", len(filter.Cities)),
		attribute.Int("filter.categories", len(filter.Categories)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Search"))

	var (
		candidates []types.Place
		hits       []place.ScoredPlace
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Structured failures are recoverable: an empty candidate set
		// switches Search onto the fallback path.
		c, err := s.prefilter(gctx, filter)
		if err != nil {
			l.WarnContext(gctx, "Structured pre-filter failed, falling back to vector-only search", slog.Any("error", err))
			return nil
		}
		candidates = c
		return nil
	})
	g.Go(func() error {
		embedding, err := s.embedder.Embed(gctx, query)
		if err != nil {
			return err
		}
		h, err := s.index.SearchWithScore(gctx, embedding, s.cfg.VectorTopK)
		if err != nil {
			return err
		}
		hits = h
		return nil
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Vector search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Vector search failed")
		return nil, err
	}

	var results []types.Place
	if len(candidates) == 0 {
		results = s.collectFallback(hits)
	} else {
		results = s.collectIntersection(candidates, hits)
	}

	span.SetAttributes(
		attribute.Int("candidates.count", len(candidates)),
		attribute.Int("results.count", len(results)),
	)
	span.SetStatus(codes.Ok, "Search completed")
	return results, nil
}

// prefilter picks the structured phase: city-first, region expansion, or a
// bounded sample when no filter terms were extracted.
func (s *ServiceImpl) prefilter(ctx context.Context, filter types.SearchFilter) ([]types.Place, error) {
	cities := NormalizeAreaTokens(filter.Cities)
	regions := NormalizeAreaTokens(filter.Regions)

	if len(cities) > 0 {
		places, err := s.repo.FilterByCities(ctx, cities, filter.Categories, s.cfg.CandidateCap)
		if err != nil {
			return nil, err
		}
		// Enough city-scoped rows: do not widen to the region level.
		if len(places) >= s.cfg.CityMinResults {
			return places, nil
		}
	}

	if len(regions) > 0 || len(cities) > 0 {
		return s.repo.FilterByRegions(ctx, regions, cities, filter.Categories, s.cfg.CandidateCap)
	}

	return s.repo.Sample(ctx, s.cfg.SampleLimit)
}

// collectIntersection keeps vector hits that are also structured candidates
// and pass the score threshold, stopping once MaxResults accumulate.
func (s *ServiceImpl) collectIntersection(candidates []types.Place, hits []place.ScoredPlace) []types.Place {
	candidateSet := make(map[types.PlaceID]struct{}, len(candidates))
	for _, c := range candidates {
		candidateSet[c.ID] = struct{}{}
	}

	seen := make(map[types.PlaceID]struct{})
	var results []types.Place
	for _, hit := range hits {
		if len(results) >= s.cfg.MaxResults {
			break
		}
		if hit.Score < s.cfg.ScoreThreshold {
			continue
		}
		if _, ok := candidateSet[hit.Place.ID]; !ok {
			continue
		}
		if _, dup := seen[hit.Place.ID]; dup {
			continue
		}
		if isExcludedCategory(hit.Place.Category) {
			continue
		}
		seen[hit.Place.ID] = struct{}{}
		p := hit.Place
		p.Source = types.SourceHybrid
		results = append(results, p)
	}
	return results
}

// collectFallback is the no-candidate path: full-corpus hits bounded by the
// smaller fallback cap, same threshold and category exclusion.
func (s *ServiceImpl) collectFallback(hits []place.ScoredPlace) []types.Place {
	if len(hits) > s.cfg.FallbackTopK {
		hits = hits[:s.cfg.FallbackTopK]
	}
	seen := make(map[types.PlaceID]struct{})
	var results []types.Place
	for _, hit := range hits {
		if len(results) >= s.cfg.MaxResults {
			break
		}
		if hit.Score < s.cfg.ScoreThreshold {
			continue
		}
		if _, dup := seen[hit.Place.ID]; dup {
			continue
		}
		if isExcludedCategory(hit.Place.Category) {
			continue
		}
		seen[hit.Place.ID] = struct{}{}
		p := hit.Place
		p.Source = types.SourceVectorFallback
		results = append(results, p)
	}
	return results
}

func isExcludedCategory(category string) bool {
	for _, kw := range excludedCategoryKeywords {
		if strings.Contains(category, kw) {
			return true
		}
	}
	return false
}
