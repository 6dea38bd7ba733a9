package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daytour-ai/daytour/internal/types"
)

// MockChatService is a mock implementation of Service.
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ProcessTurn(ctx context.Context, sessionID, query string) (*types.ChatResponse, error) {
	args := m.Called(ctx, sessionID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ChatResponse), args.Error(1)
}

func (m *MockChatService) ResetSession(sessionID string) {
	m.Called(sessionID)
}

func (m *MockChatService) GetPlan(ctx context.Context, planID string) (*types.TravelPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TravelPlan), args.Error(1)
}

func setupHandlerTest() (*HandlerImpl, *MockChatService, *chi.Mux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockService := new(MockChatService)
	handler := NewHandlerImpl(mockService, logger)

	r := chi.NewRouter()
	r.Post("/chat", handler.ProcessTurn)
	r.Post("/chat/reset", handler.ResetSession)
	r.Get("/plans/{planID}", handler.GetPlan)
	return handler, mockService, r
}

func TestHandlerImpl_ProcessTurn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		_, mockService, router := setupHandlerTest()
		mockService.On("ProcessTurn", mock.Anything, "s1", "강릉 일정 짜줘").
			Return(&types.ChatResponse{Text: "## 1일차"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat",
			strings.NewReader(`{"session_id":"s1","message":"강릉 일정 짜줘"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp types.ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "## 1일차", resp.Text)
		mockService.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, mockService, router := setupHandlerTest()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"session_id":"s1"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ProcessTurn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, _, router := setupHandlerTest()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{not json`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service error", func(t *testing.T) {
		_, mockService, router := setupHandlerTest()
		mockService.On("ProcessTurn", mock.Anything, "s1", "hi").
			Return(nil, errors.New("boom")).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat",
			strings.NewReader(`{"session_id":"s1","message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandlerImpl_ResetSession(t *testing.T) {
	_, mockService, router := setupHandlerTest()
	mockService.On("ResetSession", "s1").Return().Once()

	req := httptest.NewRequest(http.MethodPost, "/chat/reset", strings.NewReader(`{"session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertExpectations(t)
}

func TestHandlerImpl_GetPlan(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		_, mockService, router := setupHandlerTest()
		mockService.On("GetPlan", mock.Anything, "abc").
			Return(&types.TravelPlan{Status: types.PlanConfirmed}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/plans/abc", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var plan types.TravelPlan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
		assert.Equal(t, types.PlanConfirmed, plan.Status)
	})

	t.Run("not found", func(t *testing.T) {
		_, mockService, router := setupHandlerTest()
		mockService.On("GetPlan", mock.Anything, "missing").
			Return(nil, errors.New("no rows")).Once()

		req := httptest.NewRequest(http.MethodGet, "/plans/missing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
