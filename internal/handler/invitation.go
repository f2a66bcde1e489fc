// internal/handler/invitation.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/service"
)

type InvitationHandler struct {
	memberService *service.MemberService
}

func NewInvitationHandler(memberService *service.MemberService) *InvitationHandler {
	return &InvitationHandler{memberService: memberService}
}

type InvitationResponse struct {
	BaseResponse
	Invitation *model.Invitation `json:"invitation"`
}

// ListHandler returns the paginated invitation audit trail.
func (h *InvitationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	offset, limit := pagination(r)
	invitations, total, err := h.memberService.ListInvitations(r.Context(), orgID, offset, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "List invitations error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, PageResponse{
		BaseResponse: BaseResponse{Ok: true},
		Total:        total,
		Offset:       offset,
		Limit:        limit,
		Items:        invitations,
	})
}

// ResendHandler re-sends a pending invitation.
func (h *InvitationHandler) ResendHandler(w http.ResponseWriter, r *http.Request) {
	orgID, invitationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	invitation, err := h.memberService.ResendInvitation(r.Context(), invitationID, orgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Resend invitation error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		h.respondInvitationError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, InvitationResponse{
		BaseResponse: BaseResponse{Ok: true},
		Invitation:   invitation,
	})
}

// CancelHandler cancels a pending invitation.
func (h *InvitationHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	orgID, invitationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	invitation, err := h.memberService.CancelInvitation(r.Context(), invitationID, orgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Cancel invitation error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		h.respondInvitationError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, InvitationResponse{
		BaseResponse: BaseResponse{Ok: true},
		Invitation:   invitation,
	})
}

func (h *InvitationHandler) pathIDs(w http.ResponseWriter, r *http.Request) (orgID, invitationID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return uuid.Nil, uuid.Nil, false
	}
	invitationID, err = uuid.Parse(chi.URLParam(r, "invitationID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invitation ID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, invitationID, true
}

func (h *InvitationHandler) respondInvitationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvitationNotFound):
		respondWithError(w, http.StatusNotFound, "Invitation not found")
	case errors.Is(err, domain.ErrInvitationNotPending):
		respondWithError(w, http.StatusBadRequest, "Invitation is not pending")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
