package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"muhasabahAPI/internal/membership"
	"muhasabahAPI/internal/sitting"
	"muhasabahAPI/services"
)

type SittingHandler struct {
	sittingService    *services.SittingService
	membershipService *services.MembershipService
	log               *zap.Logger
}

func NewSittingHandler(sittingService *services.SittingService, membershipService *services.MembershipService, log *zap.Logger) *SittingHandler {
	return &SittingHandler{
		sittingService:    sittingService,
		membershipService: membershipService,
		log:               log,
	}
}

// GET /api/sittings/sittings
func (h *SittingHandler) ListSittings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var status *sitting.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := sitting.Status(raw)
		status = &s
	}

	sittings, err := h.sittingService.List(ctx, status)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sittings)
}

// POST /api/sittings/sittings
func (h *SittingHandler) CreateSitting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req sitting.SittingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.sittingService.Create(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, st)
}

// GET /api/sittings/sittings/{id}
func (h *SittingHandler) GetSitting(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	st, err := h.sittingService.Get(ctx, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

// PUT /api/sittings/sittings/{id}
func (h *SittingHandler) UpdateSitting(w http.ResponseWriter, r *http.Request) {
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
	var req sitting.SittingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.sittingService.Update(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

// DELETE /api/sittings/sittings/{id}
func (h *SittingHandler) DeleteSitting(w http.ResponseWriter, r *http.Request) {
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
	if err := h.sittingService.Delete(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sittings/memberships
func (h *SittingHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	sittingID, ok := queryUUID(w, r, "sitting")
	if !ok {
		return
	}
	filter := services.MembershipFilter{SittingID: sittingID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := membership.Status(raw)
		filter.Status = &s
	}

	memberships, err := h.membershipService.List(ctx, actor, filter)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, memberships)
}

// POST /api/sittings/memberships
func (h *SittingHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req membership.JoinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.membershipService.RequestJoin(ctx, actor, req.SittingID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

// GET /api/sittings/memberships/{id}
func (h *SittingHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
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
	m, err := h.membershipService.Get(ctx, actor, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

// PUT /api/sittings/memberships/{id}/status
func (h *SittingHandler) SetMembershipStatus(w http.ResponseWriter, r *http.Request) {
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
	var req membership.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.membershipService.SetStatus(ctx, actor, id, req.Status)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

// DELETE /api/sittings/memberships/{id}
func (h *SittingHandler) DeleteMembership(w http.ResponseWriter, r *http.Request) {
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
	if err := h.membershipService.Delete(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/sittings/evaluations
func (h *SittingHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	sittingID, ok := queryUUID(w, r, "sitting")
	if !ok {
		return
	}
	evaluations, err := h.sittingService.ListEvaluations(ctx, actor, sittingID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, evaluations)
}

// POST /api/sittings/evaluations
func (h *SittingHandler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req sitting.EvaluationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.sittingService.CreateEvaluation(ctx, actor, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, e)
}

// GET /api/sittings/evaluations/{id}
func (h *SittingHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
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
	e, err := h.sittingService.GetEvaluation(ctx, actor, id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, e)
}

// PUT /api/sittings/evaluations/{id}
func (h *SittingHandler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
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
	var req sitting.EvaluationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.sittingService.UpdateEvaluation(ctx, actor, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, e)
}

// DELETE /api/sittings/evaluations/{id}
func (h *SittingHandler) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
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
	if err := h.sittingService.DeleteEvaluation(ctx, actor, id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
