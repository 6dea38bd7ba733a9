package place

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daytour-ai/daytour/internal/types"
)

var placeRowColumns = []string{"source_table", "source_id", "name", "region", "city", "category", "latitude", "longitude"}

func setupPlaceRepoTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPlaceRepository(mockPool, logger), mockPool
}

func TestRepositoryImpl_FilterByCities(t *testing.T) {
	ctx := context.Background()

	t.Run("city predicate is parameter bound", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		rows := pgxmock.NewRows(placeRowColumns).
			AddRow("tour_spots", int64(1), "경포해변", "강원도", "강릉시", "관광지", 37.8, 128.9)
		mockPool.ExpectQuery(`SELECT .+ FROM places WHERE \(\(region ILIKE \$1 OR city ILIKE \$1\)\)`).
			WithArgs("%서울%", "%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 100).
			WillReturnRows(rows)

		places, err := repo.FilterByCities(ctx, []string{"서울"}, nil, 100)
		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "경포해변", places[0].Name)
		assert.Equal(t, types.PlaceID{Table: "tour_spots", ID: 1}, places[0].ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("accommodation rows are excluded in the query itself", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		mockPool.ExpectQuery(`category NOT ILIKE \$2 AND category NOT ILIKE \$3`).
			WithArgs("%강릉%", "%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 50).
			WillReturnRows(pgxmock.NewRows(placeRowColumns))

		places, err := repo.FilterByCities(ctx, []string{"강릉"}, nil, 50)
		require.NoError(t, err)
		assert.Empty(t, places)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("category terms narrow the filter", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		mockPool.ExpectQuery(`category ILIKE \$2`).
			WithArgs("%강릉%", "%카페%", "%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 50).
			WillReturnRows(pgxmock.NewRows(placeRowColumns))

		_, err := repo.FilterByCities(ctx, []string{"강릉"}, []string{"카페"}, 50)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		mockPool.ExpectQuery(`SELECT .+ FROM places`).
			WithArgs("%강릉%", "%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 50).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.FilterByCities(ctx, []string{"강릉"}, nil, 50)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute place filter query")
	})
}

func TestRepositoryImpl_FilterByRegions(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupPlaceRepoTest(t)

	// Region and city tokens share one OR group across both columns.
	rows := pgxmock.NewRows(placeRowColumns).
		AddRow("tour_spots", int64(1), "경포해변", "강원도", "강릉시", "관광지", 37.8, 128.9).
		AddRow("tour_spots", int64(2), "낙산사", "강원도", "양양군", "사찰", 38.1, 128.6)
	mockPool.ExpectQuery(`\(region ILIKE \$1 OR city ILIKE \$1\) OR \(region ILIKE \$2 OR city ILIKE \$2\)`).
		WithArgs("%강원%", "%강릉%", "%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 3000).
		WillReturnRows(rows)

	places, err := repo.FilterByRegions(ctx, []string{"강원"}, []string{"강릉"}, nil, 3000)
	require.NoError(t, err)
	assert.Len(t, places, 2)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryImpl_Sample(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupPlaceRepoTest(t)

	rows := pgxmock.NewRows(placeRowColumns).
		AddRow("restaurants", int64(7), "초당순두부마을", "강원도", "강릉시", "음식점", 37.79, 128.91)
	mockPool.ExpectQuery(`SELECT .+ FROM places WHERE category NOT ILIKE \$1`).
		WithArgs("%숙박%", "%호텔%", "%모텔%", "%펜션%", "%게스트하우스%", "%리조트%", 1000).
		WillReturnRows(rows)

	places, err := repo.Sample(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "초당순두부마을", places[0].Name)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryImpl_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		rows := pgxmock.NewRows(placeRowColumns).
			AddRow("tour_spots", int64(1), "경포해변", "강원도", "강릉시", "관광지", 37.8, 128.9)
		mockPool.ExpectQuery(`WHERE source_table = \$1 AND source_id = \$2`).
			WithArgs("tour_spots", int64(1)).
			WillReturnRows(rows)

		p, err := repo.GetByID(ctx, types.PlaceID{Table: "tour_spots", ID: 1})
		require.NoError(t, err)
		assert.Equal(t, "경포해변", p.Name)
		assert.Equal(t, types.SourceLookup, p.Source)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mockPool := setupPlaceRepoTest(t)

		mockPool.ExpectQuery(`WHERE source_table = \$1 AND source_id = \$2`).
			WithArgs("tour_spots", int64(9)).
			WillReturnError(errors.New("no rows in result set"))

		_, err := repo.GetByID(ctx, types.PlaceID{Table: "tour_spots", ID: 9})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tour_spots:9")
	})
}

func TestRepositoryImpl_UpdateEmbedding(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupPlaceRepoTest(t)

	mockPool.ExpectExec(`UPDATE places SET embedding = \$1::vector`).
		WithArgs("[0.1,0.2]", "tour_spots", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateEmbedding(ctx, types.PlaceID{Table: "tour_spots", ID: 1}, []float32{0.1, 0.2})
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
