package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/internal/navigation"
	"muhasabahAPI/services"
)

type NavigationHandler struct {
	navigationService *services.NavigationService
	log               *zap.Logger
}

func NewNavigationHandler(navigationService *services.NavigationService, log *zap.Logger) *NavigationHandler {
	return &NavigationHandler{navigationService: navigationService, log: log}
}

// GET /api/navigation/menu
func (h *NavigationHandler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.navigationService.Menu(ctx, actor.Role)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// GET /api/navigation/items
func (h *NavigationHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.navigationService.List(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// POST /api/navigation/items
func (h *NavigationHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req navigation.MenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.navigationService.Create(ctx, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

// PUT /api/navigation/items/{id}
func (h *NavigationHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req navigation.MenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.navigationService.Update(ctx, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// DELETE /api/navigation/items/{id}
func (h *NavigationHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.navigationService.Delete(ctx, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
