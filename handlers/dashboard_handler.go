package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
	log              *zap.Logger
}

func NewDashboardHandler(dashboardService *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, log: log}
}

// GET /api/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	summary, err := h.dashboardService.Summary(ctx, actor)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
