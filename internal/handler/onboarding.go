// internal/handler/onboarding.go
package handler

import (
	"log/slog"
	"net/http"

	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/middleware"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/service"
)

type OnboardingHandler struct {
	memberService *service.MemberService
}

func NewOnboardingHandler(memberService *service.MemberService) *OnboardingHandler {
	return &OnboardingHandler{memberService: memberService}
}

type OnboardingResponse struct {
	BaseResponse
	Membership         *model.Membership `json:"membership,omitempty"`
	InvitationAccepted bool              `json:"invitation_accepted"`
}

// CompleteHandler claims pending memberships for the authenticated identity
// after first login. The invitation status update is best-effort; the
// membership link is what matters.
func (h *OnboardingHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	rawUserID, _ := r.Context().Value(middleware.UserIDKey).(string)
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid user identity")
		return
	}

	userEmail, _ := r.Context().Value(middleware.UserEmailKey).(string)
	if userEmail == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing email claim")
		return
	}

	membership, err := h.memberService.LinkIdentityToPendingMemberships(r.Context(), userID, userEmail)
	if err != nil {
		slog.ErrorContext(r.Context(), "Onboarding link error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	accepted := h.memberService.MarkInvitationAccepted(r.Context(), userEmail, userID)

	respondWithJSON(w, http.StatusOK, OnboardingResponse{
		BaseResponse:       BaseResponse{Ok: true},
		Membership:         membership,
		InvitationAccepted: accepted,
	})
}
