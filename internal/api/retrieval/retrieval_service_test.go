package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daytour-ai/daytour/config"
	"github.com/daytour-ai/daytour/internal/api/place"
	"github.com/daytour-ai/daytour/internal/types"
)

// MockPlaceRepository is a mock implementation of place.Repository.
type MockPlaceRepository struct {
	mock.Mock
}

func (m *MockPlaceRepository) FilterByCities(ctx context.Context, cities, categories []string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, cities, categories, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) FilterByRegions(ctx context.Context, regions, cities, categories []string, limit int) ([]types.Place, error) {
	args := m.Called(ctx, regions, cities, categories, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) Sample(ctx context.Context, limit int) ([]types.Place, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockPlaceRepository) GetByID(ctx context.Context, id types.PlaceID) (*types.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockPlaceRepository) ListWithoutEmbeddings(ctx context.Context, limit int) ([]place.PlaceContent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]place.PlaceContent), args.Error(1)
}

func (m *MockPlaceRepository) UpdateEmbedding(ctx context.Context, id types.PlaceID, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockVectorIndex is a mock implementation of place.VectorIndex.
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) SearchWithScore(ctx context.Context, embedding []float32, k int) ([]place.ScoredPlace, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]place.ScoredPlace), args.Error(1)
}

// MockEmbedder is a mock implementation of generativeAI.Embedder.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		CandidateCap:    3000,
		VectorTopK:      300,
		FallbackTopK:    2,
		ScoreThreshold:  0.65,
		CityMinResults:  2,
		MaxResults:      50,
		SampleLimit:     1000,
		RegionFilterCap: 35,
	}
}

func setupRetrievalTest(cfg config.RetrievalConfig) (*ServiceImpl, *MockPlaceRepository, *MockVectorIndex, *MockEmbedder) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := new(MockPlaceRepository)
	index := new(MockVectorIndex)
	embedder := new(MockEmbedder)
	service := NewRetrievalService(repo, index, embedder, cfg, logger)
	return service, repo, index, embedder
}

func placeID(id int64) types.PlaceID {
	return types.PlaceID{Table: "places", ID: id}
}

func testPlace(id int64, name, category string) types.Place {
	return types.Place{ID: placeID(id), Name: name, Region: "강원도", City: "강릉", Category: category}
}

func TestServiceImpl_Search(t *testing.T) {
	ctx := context.Background()
	embedding := []float32{0.1, 0.2, 0.3}

	t.Run("hybrid intersection keeps scored candidates above threshold", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		candidates := []types.Place{
			testPlace(1, "경포해변", "관광지"),
			testPlace(2, "강릉커피박물관", "박물관"),
		}
		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).Return(candidates, nil).Once()
		embedder.On("Embed", mock.Anything, "강릉 가볼만한 곳").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{
			{Place: testPlace(2, "강릉커피박물관", "박물관"), Score: 0.91},
			{Place: testPlace(3, "속초타워", "관광지"), Score: 0.88}, // not a candidate
			{Place: testPlace(1, "경포해변", "관광지"), Score: 0.40}, // below threshold
		}, nil).Once()

		results, err := service.Search(ctx, "강릉 가볼만한 곳", types.SearchFilter{Cities: []string{"강릉"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "강릉커피박물관", results[0].Name)
		assert.Equal(t, types.SourceHybrid, results[0].Source)
		repo.AssertExpectations(t)
		index.AssertExpectations(t)
		embedder.AssertExpectations(t)
	})

	t.Run("city suffix is normalized before filtering", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("FilterByCities", mock.Anything, []string{"서울"}, []string(nil), 3000).
			Return([]types.Place{testPlace(1, "남산타워", "관광지"), testPlace(2, "경복궁", "관광지")}, nil).Once()
		embedder.On("Embed", mock.Anything, "서울 관광").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{}, nil).Once()

		_, err := service.Search(ctx, "서울 관광", types.SearchFilter{Cities: []string{"서울특별시"}})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("enough city results skips region expansion", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).
			Return([]types.Place{testPlace(1, "경포해변", "관광지"), testPlace(2, "안목해변", "관광지")}, nil).Once()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{}, nil).Once()

		_, err := service.Search(ctx, "query", types.SearchFilter{Regions: []string{"강원도"}, Cities: []string{"강릉"}})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "FilterByRegions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("thin city results widen to the region", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).
			Return([]types.Place{testPlace(1, "경포해변", "관광지")}, nil).Once()
		repo.On("FilterByRegions", mock.Anything, []string{"강원"}, []string{"강릉"}, []string(nil), 3000).
			Return([]types.Place{testPlace(1, "경포해변", "관광지"), testPlace(4, "낙산사", "관광지")}, nil).Once()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{
			{Place: testPlace(4, "낙산사", "관광지"), Score: 0.8},
		}, nil).Once()

		results, err := service.Search(ctx, "query", types.SearchFilter{Regions: []string{"강원도"}, Cities: []string{"강릉"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "낙산사", results[0].Name)
		repo.AssertExpectations(t)
	})

	t.Run("no filter terms samples the corpus", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("Sample", mock.Anything, 1000).Return([]types.Place{testPlace(1, "경포해변", "관광지")}, nil).Once()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{}, nil).Once()

		_, err := service.Search(ctx, "query", types.SearchFilter{})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("structured failure degrades to vector-only fallback", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).
			Return(nil, errors.New("connection refused")).Once()
		repo.On("FilterByRegions", mock.Anything, []string(nil), []string{"강릉"}, []string(nil), 3000).
			Return(nil, errors.New("connection refused")).Maybe()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{
			{Place: testPlace(1, "경포해변", "관광지"), Score: 0.9},
			{Place: testPlace(2, "안목해변", "관광지"), Score: 0.8},
			{Place: testPlace(3, "낙산사", "관광지"), Score: 0.7},
		}, nil).Once()

		results, err := service.Search(ctx, "query", types.SearchFilter{Cities: []string{"강릉"}})
		require.NoError(t, err)
		require.Len(t, results, 2, "fallback is bounded by FallbackTopK")
		assert.Equal(t, types.SourceVectorFallback, results[0].Source)
		assert.Equal(t, types.SourceVectorFallback, results[1].Source)
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		service, repo, _, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("Sample", mock.Anything, 1000).Return([]types.Place{}, nil).Maybe()
		embedder.On("Embed", mock.Anything, "query").Return(nil, errors.New("quota exceeded")).Once()

		_, err := service.Search(ctx, "query", types.SearchFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("vector failure propagates even with candidates", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("Sample", mock.Anything, 1000).Return([]types.Place{testPlace(1, "경포해변", "관광지")}, nil).Maybe()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return(nil, errors.New("index offline")).Once()

		_, err := service.Search(ctx, "query", types.SearchFilter{})
		require.Error(t, err)
	})

	t.Run("accommodation categories never surface", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		candidates := []types.Place{
			testPlace(1, "경포해변", "관광지"),
			testPlace(2, "바다뷰 호텔", "숙박시설"),
		}
		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).Return(candidates, nil).Once()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{
			{Place: testPlace(2, "바다뷰 호텔", "숙박시설"), Score: 0.95},
			{Place: testPlace(1, "경포해변", "관광지"), Score: 0.9},
		}, nil).Once()

		results, err := service.Search(ctx, "query", types.SearchFilter{Cities: []string{"강릉"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "경포해변", results[0].Name)
	})

	t.Run("duplicate hits collapse to one result", func(t *testing.T) {
		service, repo, index, embedder := setupRetrievalTest(testRetrievalConfig())

		repo.On("FilterByCities", mock.Anything, []string{"강릉"}, []string(nil), 3000).
			Return([]types.Place{testPlace(1, "경포해변", "관광지"), testPlace(2, "안목해변", "관광지")}, nil).Once()
		embedder.On("Embed", mock.Anything, "query").Return(embedding, nil).Once()
		index.On("SearchWithScore", mock.Anything, embedding, 300).Return([]place.ScoredPlace{
			{Place: testPlace(1, "경포해변", "관광지"), Score: 0.9},
			{Place: testPlace(1, "경포해변", "관광지"), Score: 0.85},
		}, nil).Once()

		results, err := service.Search(ctx, "query", types.SearchFilter{Cities: []string{"강릉"}})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestNormalizeAreaToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"서울특별시", "서울"},
		{"강원특별자치도", "강원"},
		{"부산광역시", "부산"},
		{"강릉시", "강릉"},
		{"경기도", "경기"},
		{"수원", "수원"},
		{"시", "시"},
		{" 강릉시 ", "강릉"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAreaToken(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeAreaTokens(t *testing.T) {
	assert.Equal(t, []string{"서울", "강릉"}, NormalizeAreaTokens([]string{"서울특별시", "강릉시"}))
	assert.Empty(t, NormalizeAreaTokens(nil))
}
