package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/repository"
)

type HealthHandler struct {
	db repository.Pinger
}

func NewHealthHandler(db repository.Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "database ping failed", "error", err)
		respond.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	respond.JSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
