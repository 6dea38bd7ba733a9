package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/daytour-ai/daytour/app/observability/metrics"
	"github.com/daytour-ai/daytour/config"
	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/api/intent"
	"github.com/daytour-ai/daytour/internal/api/match"
	"github.com/daytour-ai/daytour/internal/api/place"
	"github.com/daytour-ai/daytour/internal/api/retrieval"
	"github.com/daytour-ai/daytour/internal/api/session"
	"github.com/daytour-ai/daytour/internal/types"
)

const (
	defaultTemperature = 0.5

	apologyRetrieval  = "죄송합니다. 장소 검색 중 문제가 발생했어요. 잠시 후 다시 시도해 주세요."
	apologyGeneration = "죄송합니다. 답변을 생성하는 중 문제가 발생했어요. 잠시 후 다시 시도해 주세요."
	guidanceNoPlan    = "확정할 여행 일정이 아직 없어요. 먼저 원하시는 여행 일정을 말씀해 주세요."
)

var _ Service = (*ServiceImpl)(nil)

// Service is the conversational engine: it classifies a turn, runs the
// selected processing stage, and merges the results into one response.
// A turn never fails outright; every stage degrades to a textual apology.
type Service interface {
	ProcessTurn(ctx context.Context, sessionID, query string) (*types.ChatResponse, error)
	ResetSession(sessionID string)
	GetPlan(ctx context.Context, planID string) (*types.TravelPlan, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	sessions   *session.Store
	retrieval  retrieval.Service
	matcher    match.Service
	classifier intent.Classifier
	fallback   intent.Classifier
	extractor  intent.EntityExtractor
	fallbackEx intent.EntityExtractor
	generator  generativeAI.TextGenerator
	planRepo   Repository
	placeRepo  place.Repository
	metrics    *metrics.AppMetrics
	cfg        config.RetrievalConfig

	// last good plan per session, the confirmation fallback when the live
	// session no longer carries one
	planCache *cache.Cache
}

func NewChatService(
	sessions *session.Store,
	retrievalSvc retrieval.Service,
	matcher match.Service,
	classifier intent.Classifier,
	extractor intent.EntityExtractor,
	generator generativeAI.TextGenerator,
	planRepo Repository,
	placeRepo place.Repository,
	appMetrics *metrics.AppMetrics,
	cfg config.RetrievalConfig,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		sessions:   sessions,
		retrieval:  retrievalSvc,
		matcher:    matcher,
		classifier: classifier,
		fallback:   intent.NewKeywordClassifier(),
		extractor:  extractor,
		fallbackEx: intent.NewKeywordExtractor(),
		generator:  generator,
		planRepo:   planRepo,
		placeRepo:  placeRepo,
		metrics:    appMetrics,
		cfg:        cfg,
		planCache:  cache.New(2*time.Hour, 30*time.Minute),
	}
}

// turn is the working state of one request as it moves through the stages.
type turn struct {
	sessionID string
	query     string
	session   types.SessionState

	classification types.Classification
	extraction     types.ExtractionResult

	places        []types.Place
	generated     string
	searchSummary string
	toolMessage   string

	// set by confirmation processing; short-circuits integration
	final *types.ChatResponse
}

// ProcessTurn drives the state machine for one conversational turn.
func (s *ServiceImpl) ProcessTurn(ctx context.Context, sessionID, query string) (*types.ChatResponse, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ProcessTurn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	start := time.Now()
	l := s.logger.With(slog.String("method", "ProcessTurn"), slog.String("session_id", sessionID))

	t := &turn{
		sessionID: sessionID,
		query:     query,
		session:   s.sessions.Get(sessionID),
	}

	s.classify(ctx, t)
	stage := routeClassification(t.classification, t.extraction.Intent)
	span.SetAttributes(attribute.String("stage", stage.String()))

	var resp *types.ChatResponse
	for st := stage; st != StageDone; st = nextStage(st) {
		switch st {
		case StageRAGProcessing:
			s.processRAG(ctx, t)
		case StageInformationSearch:
			s.processInformationSearch(ctx, t)
		case StageSearchProcessing:
			s.processSearch(ctx, t)
		case StageGeneralChat:
			s.processGeneralChat(ctx, t)
		case StageConfirmationProcessing:
			s.processConfirmation(ctx, t)
		case StageIntegrateResponse:
			resp = s.integrate(t)
		}
	}

	lastQuery := query
	s.sessions.Update(sessionID, types.SessionUpdate{LastQuery: &lastQuery})

	if s.metrics != nil {
		s.metrics.TurnsTotal.Add(ctx, 1)
		s.metrics.StageDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}
	l.InfoContext(ctx, "Turn processed",
		slog.String("stage", stage.String()),
		slog.Duration("latency", time.Since(start)))
	span.SetStatus(codes.Ok, "Turn processed")
	return resp, nil
}

// ResetSession drops the session's working state back to defaults.
func (s *ServiceImpl) ResetSession(sessionID string) {
	s.sessions.Reset(sessionID)
	s.planCache.Delete(sessionID)
}

// GetPlan exposes a persisted plan to the produced surface.
func (s *ServiceImpl) GetPlan(ctx context.Context, planID string) (*types.TravelPlan, error) {
	id, err := parsePlanID(planID)
	if err != nil {
		return nil, err
	}
	return s.planRepo.GetPlan(ctx, id)
}

// classify runs the intent classifier with its deterministic fallback and
// applies the plan-reset rule: a travel-planning intent while a plan
// already exists wipes the plan, places and context before processing.
func (s *ServiceImpl) classify(ctx context.Context, t *turn) {
	l := s.logger.With(slog.String("method", "classify"))

	c, err := s.classifier.Classify(ctx, t.query, t.session.Plan.Exists())
	if err != nil {
		l.WarnContext(ctx, "Primary classifier failed, using keyword fallback", slog.Any("error", err))
		c, _ = s.fallback.Classify(ctx, t.query, t.session.Plan.Exists())
	}
	t.classification = c

	if c.PrimaryIntent == types.IntentTravelPlanning && t.session.Plan.Exists() {
		// Reset on every travel-planning turn, whether or not the new
		// query supersedes the old plan. Flagged for product review.
		emptyContext := ""
		s.sessions.Update(t.sessionID, types.SessionUpdate{
			Plan:    &types.TravelPlan{Status: types.PlanDraft},
			Places:  []types.Place{},
			Context: &emptyContext,
		})
		t.session = s.sessions.Get(t.sessionID)
	}

	if c.RequiresRAG || c.RequiresSearch {
		e, err := s.extractor.Extract(ctx, t.query)
		if err != nil {
			l.WarnContext(ctx, "Primary extractor failed, using keyword fallback", slog.Any("error", err))
			e, _ = s.fallbackEx.Extract(ctx, t.query)
		}
		t.extraction = e
	}
}

// processRAG is the itinerary pipeline. Each sub-stage tolerates its own
// failure; the worst outcome is an apology in the rendered text.
func (s *ServiceImpl) processRAG(ctx context.Context, t *turn) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "RAGProcessing")
	defer span.End()

	l := s.logger.With(slog.String("method", "processRAG"), slog.String("session_id", t.sessionID))

	places, err := s.retrieval.Search(ctx, t.query, t.extraction.Filter())
	if err != nil {
		l.ErrorContext(ctx, "Hybrid retrieval failed", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.RetrievalErrorsTotal.Add(ctx, 1)
		}
		t.generated = apologyRetrieval
		return
	}
	if s.metrics != nil {
		s.metrics.RetrievalCandidates.Record(ctx, int64(len(places)))
	}

	places = s.regionPostFilter(places, t.extraction)
	places = s.enrichPlaces(ctx, places)
	t.places = places

	if len(places) == 0 {
		t.generated = apologyRetrieval
		return
	}

	prompt := getItineraryPrompt(t.query, t.extraction, places)
	text, err := s.generator.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		l.ErrorContext(ctx, "Itinerary generation failed", slog.Any("error", err))
		t.generated = apologyGeneration
		return
	}
	t.generated = text

	itinerary := parseItinerary(text, places)
	plan := s.buildPlan(t.extraction, itinerary, places)

	if plan.Exists() {
		if id, err := s.planRepo.SavePlan(ctx, plan); err != nil {
			// Persistence is optional at this point; the plan lives on in
			// the session either way.
			l.WarnContext(ctx, "Draft plan persistence failed", slog.Any("error", err))
		} else {
			// Later drafts and the confirmation upsert the same row.
			plan.ID = id
		}
		s.planCache.Set(t.sessionID, plan, cache.DefaultExpiration)
	}

	contextText := text
	s.sessions.Update(t.sessionID, types.SessionUpdate{
		Plan:    plan,
		Places:  places,
		Context: &contextText,
	})
	t.session = s.sessions.Get(t.sessionID)
}

// processInformationSearch answers place-search turns with a structured
// place list instead of a generated itinerary.
func (s *ServiceImpl) processInformationSearch(ctx context.Context, t *turn) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "InformationSearch")
	defer span.End()

	l := s.logger.With(slog.String("method", "processInformationSearch"))

	places, err := s.retrieval.Search(ctx, t.query, t.extraction.Filter())
	if err != nil {
		l.ErrorContext(ctx, "Place search failed", slog.Any("error", err))
		t.toolMessage = apologyRetrieval
		return
	}
	places = s.regionPostFilter(places, t.extraction)
	t.places = places

	if len(places) == 0 {
		t.toolMessage = "조건에 맞는 장소를 찾지 못했어요. 지역이나 카테고리를 바꿔서 다시 물어봐 주세요."
		return
	}
	t.toolMessage = renderPlaceList(places)
	s.sessions.Update(t.sessionID, types.SessionUpdate{Places: places})
}

// processSearch handles plain search turns with a model-written summary of
// the retrieved places, degrading to the raw list.
func (s *ServiceImpl) processSearch(ctx context.Context, t *turn) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SearchProcessing")
	defer span.End()

	l := s.logger.With(slog.String("method", "processSearch"))

	places, err := s.retrieval.Search(ctx, t.query, t.extraction.Filter())
	if err != nil {
		l.ErrorContext(ctx, "Search retrieval failed", slog.Any("error", err))
		t.searchSummary = apologyRetrieval
		return
	}
	t.places = places

	if len(places) == 0 {
		t.searchSummary = "검색 결과가 없어요. 다른 키워드로 다시 시도해 주세요."
		return
	}

	summary, err := s.generator.GenerateContent(ctx, getSearchSummaryPrompt(t.query, places), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		l.WarnContext(ctx, "Search summary generation failed, returning raw list", slog.Any("error", err))
		t.searchSummary = renderPlaceList(places)
		return
	}
	t.searchSummary = summary
}

func (s *ServiceImpl) processGeneralChat(ctx context.Context, t *turn) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GeneralChat")
	defer span.End()

	text, err := s.generator.GenerateContent(ctx, getGeneralChatPrompt(t.query, t.session.Context), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "General chat generation failed", slog.Any("error", err))
		t.generated = apologyGeneration
		return
	}
	t.generated = text
}

// integrate merges stage outputs into the final response. A confirmation
// result bypasses integration entirely.
func (s *ServiceImpl) integrate(t *turn) *types.ChatResponse {
	if t.final != nil {
		return t.final
	}

	var parts []string
	for _, p := range []string{t.generated, t.searchSummary, t.toolMessage} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n\n")
	if text == "" {
		text = apologyGeneration
	}

	return &types.ChatResponse{
		Text:   text,
		Plan:   t.session.Plan,
		Places: t.places,
	}
}

// regionPostFilter keeps candidates whose region or city contains one of
// the normalized target tokens. Emptying the set keeps the unfiltered one;
// either way the result is capped.
func (s *ServiceImpl) regionPostFilter(places []types.Place, extraction types.ExtractionResult) []types.Place {
	tokens := retrieval.NormalizeAreaTokens(append(append([]string{}, extraction.Regions...), extraction.Cities...))
	limit := s.cfg.RegionFilterCap
	if limit <= 0 {
		limit = 35
	}

	if len(tokens) > 0 {
		var filtered []types.Place
		for _, p := range places {
			for _, tok := range tokens {
				if strings.Contains(p.Region, tok) || strings.Contains(p.City, tok) {
					filtered = append(filtered, p)
					break
				}
			}
		}
		if len(filtered) > 0 {
			places = filtered
		}
	}

	if len(places) > limit {
		places = places[:limit]
	}
	return places
}

// enrichPlaces fills gaps in retrieved documents from the structured store
// when an identifier is present. Lookup failures leave the row as-is.
func (s *ServiceImpl) enrichPlaces(ctx context.Context, places []types.Place) []types.Place {
	for i, p := range places {
		if p.Name != "" && p.Region != "" && p.City != "" {
			continue
		}
		if p.ID.Table == "" {
			continue
		}
		fresh, err := s.placeRepo.GetByID(ctx, p.ID)
		if err != nil {
			continue
		}
		fresh.Score = p.Score
		fresh.Source = p.Source
		places[i] = *fresh
	}
	return places
}

// buildPlan assembles the draft plan for the session from this turn's
// extraction and parse results.
func (s *ServiceImpl) buildPlan(extraction types.ExtractionResult, itinerary types.Itinerary, places []types.Place) *types.TravelPlan {
	plan := &types.TravelPlan{
		Cities:    extraction.Cities,
		RawDates:  extraction.TravelDates,
		Itinerary: itinerary,
		Places:    places,
		Status:    types.PlanDraft,
	}
	if len(extraction.Regions) > 0 {
		plan.Region = extraction.Regions[0]
	}
	plan.DurationDays = extraction.Duration
	if plan.DurationDays <= 0 {
		for _, d := range itinerary.Days {
			if d.Number > plan.DurationDays {
				plan.DurationDays = d.Number
			}
		}
	}
	if start, end, ok := parseDateWindow(extraction.TravelDates, plan.DurationDays); ok {
		plan.StartDate, plan.EndDate = &start, &end
	}
	return plan
}

func renderPlaceList(places []types.Place) string {
	var b strings.Builder
	b.WriteString("이런 장소들을 찾았어요:\n")
	limit := len(places)
	if limit > 10 {
		limit = 10
	}
	for _, p := range places[:limit] {
		fmt.Fprintf(&b, "- %s (%s, %s %s)\n", p.Name, p.Category, p.Region, p.City)
	}
	return strings.TrimRight(b.String(), "\n")
}
