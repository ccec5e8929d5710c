package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zonegrid/presence-service/internal/domain"
	"github.com/zonegrid/presence-service/internal/postgres"
	httpmw "github.com/zonegrid/presence-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type PresenceSvc interface {
	EnterArea(ctx context.Context, userID, areaID string) (*domain.ParticipationLog, error)
	ExitArea(ctx context.Context, userID, areaID string) (int64, error)
	Status(ctx context.Context, userID string) ([]domain.ParticipationLog, error)
}

type StatsSvc interface {
	AreaStatistics(ctx context.Context, areaID string) (*domain.AreaStatistics, int64, error)
	Participants(ctx context.Context, areaID string) ([]domain.AreaParticipant, error)
}

type HistorySvc interface {
	AreaHistory(ctx context.Context, areaID, cursor string, limit int) ([]domain.ParticipationLog, string, error)
	UserHistory(ctx context.Context, userID, cursor string, limit int) ([]domain.ParticipationLog, string, error)
}

type Handler struct {
	presenceSvc PresenceSvc
	statsSvc    StatsSvc
	historySvc  HistorySvc
}

func NewHandler(presence PresenceSvc, stats StatsSvc, history HistorySvc) *Handler {
	return &Handler{
		presenceSvc: presence,
		statsSvc:    stats,
		historySvc:  history,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mapParticipation(p domain.ParticipationLog) ParticipationItem {
	return ParticipationItem{
		ID:              p.ID,
		UserID:          p.UserID,
		AreaID:          p.AreaID,
		EnteredAt:       p.EnteredAt,
		ExitedAt:        p.ExitedAt,
		DurationSeconds: p.DurationSeconds,
	}
}

// POST /areas/{id}/enter — ручной вход.
func (h *Handler) EnterArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	p, err := h.presenceSvc.EnterArea(r.Context(), userID, areaID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAreaNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "area not found"})
		case errors.Is(err, domain.ErrNotMember):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not a member of the area"})
		case errors.Is(err, domain.ErrAlreadyParticipating):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "already participating"})
		default:
			slog.Error("handler.EnterArea:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, mapParticipation(*p))
}

// POST /areas/{id}/exit — ручной выход.
func (h *Handler) ExitArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	duration, err := h.presenceSvc.ExitArea(r.Context(), userID, areaID)
	if err != nil {
		if errors.Is(err, domain.ErrNoOpenParticipation) {
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "no open participation"})
			return
		}
		slog.Error("handler.ExitArea:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ExitResponse{AreaID: areaID, DurationSeconds: duration})
}

// GET /presence/status — открытые участия вызывающего.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	items, err := h.presenceSvc.Status(r.Context(), userID)
	if err != nil {
		slog.Error("handler.Status:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := StatusResponse{Items: make([]ParticipationItem, 0, len(items))}
	for _, p := range items {
		resp.Items = append(resp.Items, mapParticipation(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /areas/{id}/statistics
func (h *Handler) AreaStatistics(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "id")

	st, open, err := h.statsSvc.AreaStatistics(r.Context(), areaID)
	if err != nil {
		if errors.Is(err, domain.ErrAreaNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "area not found"})
			return
		}
		slog.Error("handler.AreaStatistics:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, StatisticsResponse{
		AreaID:              st.AreaID,
		CurrentParticipants: st.CurrentParticipants,
		OpenParticipations:  open,
		TotalVisits:         st.TotalVisits,
		AverageStaySeconds:  st.AverageStaySeconds,
		LastActivity:        st.LastActivity,
	})
}

// GET /areas/{id}/participants
func (h *Handler) AreaParticipants(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "id")

	items, err := h.statsSvc.Participants(r.Context(), areaID)
	if err != nil {
		if errors.Is(err, domain.ErrAreaNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "area not found"})
			return
		}
		slog.Error("handler.AreaParticipants:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, ParticipantItem{
			UserID:      it.UserID,
			DisplayName: it.DisplayName,
			EnteredAt:   it.EnteredAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /areas/{id}/history?cursor=&limit=
func (h *Handler) AreaHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, func(ctx context.Context, cursor string, limit int) ([]domain.ParticipationLog, string, error) {
		return h.historySvc.AreaHistory(ctx, chi.URLParam(r, "id"), cursor, limit)
	})
}

// GET /users/{id}/history?cursor=&limit=
func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, func(ctx context.Context, cursor string, limit int) ([]domain.ParticipationLog, string, error) {
		return h.historySvc.UserHistory(ctx, chi.URLParam(r, "id"), cursor, limit)
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, cursor string, limit int) ([]domain.ParticipationLog, string, error),
) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	items, next, err := fetch(r.Context(), cursor, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.history:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := HistoryResponse{Items: make([]ParticipationItem, 0, len(items)), NextCursor: next}
	for _, p := range items {
		resp.Items = append(resp.Items, mapParticipation(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
