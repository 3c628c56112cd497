package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/internal/todo"
	"muhasabahAPI/services"
)

type TodoHandler struct {
	todoService *services.TodoService
	log         *zap.Logger
}

func NewTodoHandler(todoService *services.TodoService, log *zap.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, log: log}
}

// GET /api/todos/defaults
func (h *TodoHandler) ListDefaults(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.todoService.ListDefaults(ctx)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// GET /api/todos/defaults/{id}
func (h *TodoHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.todoService.GetDefault(ctx, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// POST /api/todos/defaults
func (h *TodoHandler) CreateDefault(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req todo.DefaultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.todoService.CreateDefault(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

// PUT /api/todos/defaults/{id}
func (h *TodoHandler) UpdateDefault(w http.ResponseWriter, r *http.Request) {
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
	var req todo.DefaultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.todoService.UpdateDefault(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// DELETE /api/todos/defaults/{id}
func (h *TodoHandler) DeleteDefault(w http.ResponseWriter, r *http.Request) {
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
	if err := h.todoService.DeleteDefault(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/todos/personals
func (h *TodoHandler) ListPersonal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.todoService.ListPersonal(ctx, actor)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

// GET /api/todos/personals/{id}
func (h *TodoHandler) GetPersonal(w http.ResponseWriter, r *http.Request) {
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
	item, err := h.todoService.GetPersonal(ctx, actor, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// POST /api/todos/personals
func (h *TodoHandler) CreatePersonal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req todo.PersonalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.todoService.CreatePersonal(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

// PUT /api/todos/personals/{id}
func (h *TodoHandler) UpdatePersonal(w http.ResponseWriter, r *http.Request) {
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
	var req todo.PersonalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.todoService.UpdatePersonal(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

// DELETE /api/todos/personals/{id}
func (h *TodoHandler) DeletePersonal(w http.ResponseWriter, r *http.Request) {
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
	if err := h.todoService.DeletePersonal(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
