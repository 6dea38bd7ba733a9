package chat

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/daytour-ai/daytour/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ProcessTurn(w http.ResponseWriter, r *http.Request)
	ResetSession(w http.ResponseWriter, r *http.Request)
	GetPlan(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	chatService Service
	logger      *slog.Logger
}

func NewHandlerImpl(chatService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		chatService: chatService,
		logger:      logger,
	}
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ProcessTurn handles POST /chat.
func (h *HandlerImpl) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "ProcessTurn", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat"),
	))
	defer span.End()

	var req turnRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session_id and message are required")
		return
	}

	resp, err := h.chatService.ProcessTurn(ctx, req.SessionID, req.Message)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to process turn", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Turn processing failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to process message")
		return
	}

	span.SetStatus(codes.Ok, "Turn processed")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ResetSession handles POST /chat/reset.
func (h *HandlerImpl) ResetSession(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("HandlerImpl").Start(r.Context(), "ResetSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat/reset"),
	))
	defer span.End()

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session_id is required")
		return
	}

	h.chatService.ResetSession(req.SessionID)
	span.SetStatus(codes.Ok, "Session reset")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"success": true})
}

// GetPlan handles GET /plans/{planID}.
func (h *HandlerImpl) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "GetPlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/plans/{planID}"),
	))
	defer span.End()

	planID := chi.URLParam(r, "planID")
	plan, err := h.chatService.GetPlan(ctx, planID)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to fetch plan", slog.String("plan_id", planID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan not found")
		api.ErrorResponse(w, r, http.StatusNotFound, "plan not found")
		return
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}
