package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daytour-ai/daytour/internal/types"
)

func setupStoreTest(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewStore(ttl, time.Hour, logger)
	t.Cleanup(store.Stop)
	return store
}

func TestStore_GetCreatesDefaultState(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)

	state := store.Get("s1")
	assert.Empty(t, state.LastQuery)
	assert.Nil(t, state.Plan)
	assert.Nil(t, state.Places)
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	store.Update("s1", types.SessionUpdate{
		Places: []types.Place{{Name: "경포해변", City: "강릉"}},
	})

	state := store.Get("s1")
	state.Places[0].Name = "mutated"
	state.LastQuery = "mutated"

	again := store.Get("s1")
	assert.Equal(t, "경포해변", again.Places[0].Name)
	assert.Empty(t, again.LastQuery)
}

func TestStore_UpdateIsPartial(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	plan := &types.TravelPlan{Status: types.PlanDraft}

	query := "강릉 2박 3일"
	store.Update("s1", types.SessionUpdate{LastQuery: &query, Plan: plan})

	newQuery := "다른 질문"
	store.Update("s1", types.SessionUpdate{LastQuery: &newQuery})

	state := store.Get("s1")
	assert.Equal(t, "다른 질문", state.LastQuery)
	require.NotNil(t, state.Plan, "plan untouched by a query-only update")
	assert.Equal(t, types.PlanDraft, state.Plan.Status)
}

func TestStore_ResetClearsToDefaults(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	query := "강릉 여행"
	store.Update("s1", types.SessionUpdate{
		LastQuery: &query,
		Plan:      &types.TravelPlan{Status: types.PlanDraft},
		Places:    []types.Place{{Name: "경포해변"}},
	})

	store.Reset("s1")

	state := store.Get("s1")
	assert.Empty(t, state.LastQuery)
	assert.Nil(t, state.Plan)
	assert.Nil(t, state.Places)
	assert.Equal(t, 1, store.Len(), "reset keeps the session alive")
}

func TestStore_SweepRemovesIdleSessions(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	store.Get("fresh")
	store.Get("stale")

	// Age one session beyond the TTL.
	store.mu.Lock()
	store.sessions["stale"].UpdatedAt = time.Now().Add(-3 * time.Hour)
	store.mu.Unlock()

	removed := store.Sweep(time.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	state := store.Get("stale")
	assert.Empty(t, state.LastQuery, "swept session comes back as a fresh default")
}

func TestStore_SweepKeepsSessionsWithinTTL(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	store.Get("s1")

	removed := store.Sweep(time.Now().Add(time.Hour))
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, store.Len())
}

func TestStore_UpdateRefreshesTTL(t *testing.T) {
	store := setupStoreTest(t, 2*time.Hour)
	store.Get("s1")

	store.mu.Lock()
	store.sessions["s1"].UpdatedAt = time.Now().Add(-3 * time.Hour)
	store.mu.Unlock()

	query := "아직 쓰고 있어요"
	store.Update("s1", types.SessionUpdate{LastQuery: &query})

	removed := store.Sweep(time.Now())
	assert.Equal(t, 0, removed, "update moved the session back inside the TTL window")
}
