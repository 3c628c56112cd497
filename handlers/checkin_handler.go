package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/services"
)

type CheckInHandler struct {
	checkInService *services.CheckInService
	log            *zap.Logger
}

func NewCheckInHandler(checkInService *services.CheckInService, log *zap.Logger) *CheckInHandler {
	return &CheckInHandler{checkInService: checkInService, log: log}
}

// GET /api/checkins/checkins?user=&date=YYYY-MM-DD
func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := queryUUID(w, r, "user")
	if !ok {
		return
	}
	filter := services.CheckInFilter{UserID: userID}
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = &day
	}

	items, err := h.checkInService.List(ctx, actor, filter)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// POST /api/checkins/checkins
func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req checkin.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.checkInService.Create(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// GET /api/checkins/checkins/{id}
func (h *CheckInHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.checkInService.Get(ctx, actor, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// PUT /api/checkins/checkins/{id}
func (h *CheckInHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req checkin.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.checkInService.Update(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// DELETE /api/checkins/checkins/{id}
func (h *CheckInHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.checkInService.Delete(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
