// internal/handler/member.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/middleware"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/obs"
	"github.com/refera-hq/refera/internal/service"
)

type MemberHandler struct {
	memberService *service.MemberService
}

func NewMemberHandler(memberService *service.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

type InviteRequest struct {
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	DisplayName string     `json:"display_name"`
}

type MembershipResponse struct {
	BaseResponse
	Membership *model.Membership `json:"membership"`
}

// InviteHandler brings one person into the organization, by invitation or by
// linking an existing directory identity.
func (h *MemberHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	caller := middleware.MembershipFromContext(r.Context())
	var invitedBy *uuid.UUID
	if caller != nil {
		invitedBy = caller.UserID
	}

	membership, err := h.memberService.InviteOrAdd(r.Context(), service.InviteInput{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           req.Role,
		DisplayName:    req.DisplayName,
		InvitedByID:    invitedBy,
	})
	if err != nil {
		obs.CountInvitation("failed")
		slog.ErrorContext(r.Context(), "Member invite error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRole):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrForbidden):
			respondWithError(w, http.StatusForbidden, "Insufficient permissions")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	outcome := "added"
	if membership.IsPending() {
		outcome = "sent"
	}
	obs.CountInvitation(outcome)
	respondWithJSON(w, http.StatusCreated, MembershipResponse{
		BaseResponse: BaseResponse{Ok: true},
		Membership:   membership,
	})
}

type BulkInviteRequest struct {
	Entries []service.BulkInviteEntry `json:"entries"`
}

type BulkInviteResponse struct {
	BaseResponse
	Result *service.BulkInviteResult `json:"result"`
}

// BulkInviteHandler invites a batch of people, returning a partial-success
// report.
func (h *MemberHandler) BulkInviteHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req BulkInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	caller := middleware.MembershipFromContext(r.Context())
	var invitedBy *uuid.UUID
	if caller != nil {
		invitedBy = caller.UserID
	}

	result, err := h.memberService.BulkInvite(r.Context(), orgID, req.Entries, invitedBy)
	if err != nil {
		slog.ErrorContext(r.Context(), "Bulk invite error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		switch {
		case errors.Is(err, domain.ErrBulkInviteFailed):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, BulkInviteResponse{
		BaseResponse: BaseResponse{Ok: true},
		Result:       result,
	})
}

// ListMembersHandler returns the paginated roster.
func (h *MemberHandler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	offset, limit := pagination(r)
	views, total, err := h.memberService.ListMembers(r.Context(), orgID, offset, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "List members error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, PageResponse{
		BaseResponse: BaseResponse{Ok: true},
		Total:        total,
		Offset:       offset,
		Limit:        limit,
		Items:        views,
	})
}

// DeactivateHandler flips one member inactive.
func (h *MemberHandler) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	caller := middleware.MembershipFromContext(r.Context())
	membership, err := h.memberService.DeactivateMember(r.Context(), orgID, userID, caller)
	if err != nil {
		slog.ErrorContext(r.Context(), "Member deactivate error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		switch {
		case errors.Is(err, domain.ErrSelfActionNotPermitted):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrMembershipNotFound):
			respondWithError(w, http.StatusNotFound, "Membership not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, MembershipResponse{
		BaseResponse: BaseResponse{Ok: true},
		Membership:   membership,
	})
}

type CreateProfileRequest struct {
	Role          model.Role `json:"role"`
	DisplayName   string     `json:"display_name"`
	GradeLevel    *int       `json:"grade_level"`
	StudentNumber string     `json:"student_number"`
	Phone         string     `json:"phone"`
}

type ProfileResponse struct {
	BaseResponse
	Profile    *model.Profile    `json:"profile"`
	Membership *model.Membership `json:"membership"`
}

// CreateProfileHandler creates a synthetic student or guardian record with no
// backing directory identity.
func (h *MemberHandler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	profile, membership, err := h.memberService.CreateProfileOnly(r.Context(), service.CreateProfileInput{
		OrganizationID: orgID,
		Role:           req.Role,
		DisplayName:    req.DisplayName,
		GradeLevel:     req.GradeLevel,
		StudentNumber:  req.StudentNumber,
		Phone:          req.Phone,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Create profile error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRole):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, ProfileResponse{
		BaseResponse: BaseResponse{Ok: true},
		Profile:      profile,
		Membership:   membership,
	})
}
