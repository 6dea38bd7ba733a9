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
)

func setupVectorIndexTest(t *testing.T) (*VectorIndexImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewVectorIndex(mockPool, logger), mockPool
}

func TestVectorIndexImpl_SearchWithScore(t *testing.T) {
	ctx := context.Background()
	columns := []string{"source_table", "source_id", "name", "region", "city", "category", "latitude", "longitude", "score"}

	t.Run("results come back best first with scores", func(t *testing.T) {
		index, mockPool := setupVectorIndexTest(t)

		rows := pgxmock.NewRows(columns).
			AddRow("tour_spots", int64(2), "강릉커피박물관", "강원도", "강릉시", "박물관", 37.77, 128.9, 0.91).
			AddRow("tour_spots", int64(1), "경포해변", "강원도", "강릉시", "관광지", 37.8, 128.9, 0.84)
		mockPool.ExpectQuery(`ORDER BY embedding <=> \$1::vector`).
			WithArgs("[0.1,0.2]", 300).
			WillReturnRows(rows)

		results, err := index.SearchWithScore(ctx, []float32{0.1, 0.2}, 300)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "강릉커피박물관", results[0].Place.Name)
		assert.InDelta(t, 0.91, results[0].Score, 1e-9)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		index, mockPool := setupVectorIndexTest(t)

		mockPool.ExpectQuery(`ORDER BY embedding <=> \$1::vector`).
			WithArgs("[0.1]", 10).
			WillReturnError(errors.New("index offline"))

		_, err := index.SearchWithScore(ctx, []float32{0.1}, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute vector search")
	})
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.1,0.25,-3]", vectorLiteral([]float32{0.1, 0.25, -3}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
