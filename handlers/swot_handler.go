package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/internal/swot"
	"muhasabahAPI/services"
)

type SwotHandler struct {
	swotService *services.SwotService
	log         *zap.Logger
}

func NewSwotHandler(swotService *services.SwotService, log *zap.Logger) *SwotHandler {
	return &SwotHandler{swotService: swotService, log: log}
}

// GET /api/swot/swot
func (h *SwotHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.swotService.List(ctx, actor)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// POST /api/swot/swot
func (h *SwotHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req swot.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.swotService.Create(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, s)
}

// GET /api/swot/swot/{id}
func (h *SwotHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	s, err := h.swotService.Get(ctx, actor, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// PUT /api/swot/swot/{id}
func (h *SwotHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var req swot.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.swotService.Update(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}
