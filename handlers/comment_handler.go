package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/internal/comment"
	"muhasabahAPI/services"
)

type CommentHandler struct {
	commentService *services.CommentService
	log            *zap.Logger
}

func NewCommentHandler(commentService *services.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, log: log}
}

// GET /api/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	comments, err := h.commentService.List(ctx, actor)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, comments)
}

// GET /api/comments/recent
func (h *CommentHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	comments, err := h.commentService.Recent(ctx, actor.ID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, comments)
}

// POST /api/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req comment.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.commentService.Create(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}
