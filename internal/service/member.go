// internal/service/member.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/authdir"
	"github.com/refera-hq/refera/internal/config"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/email"
	"github.com/refera-hq/refera/internal/email/mailer"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/rbac"
	"github.com/refera-hq/refera/internal/repository"
)

// MemberService reconciles the identity directory with the local membership,
// profile, and invitation stores. Every operation runs inside one database
// transaction; directory calls are the only outbound I/O.
type MemberService struct {
	membershipRepo repository.MembershipRepositoryIface
	profileRepo    repository.ProfileRepositoryIface
	invitationRepo repository.InvitationRepositoryIface
	orgRepo        *repository.OrganizationRepository
	directory      authdir.Directory
	emailService   *email.Service
	config         *config.Config
	validate       *validator.Validate
}

func NewMemberService(
	membershipRepo repository.MembershipRepositoryIface,
	profileRepo repository.ProfileRepositoryIface,
	invitationRepo repository.InvitationRepositoryIface,
	orgRepo *repository.OrganizationRepository,
	directory authdir.Directory,
	emailService *email.Service,
	config *config.Config,
) *MemberService {
	return &MemberService{
		membershipRepo: membershipRepo,
		profileRepo:    profileRepo,
		invitationRepo: invitationRepo,
		orgRepo:        orgRepo,
		directory:      directory,
		emailService:   emailService,
		config:         config,
		validate:       validator.New(),
	}
}

type InviteInput struct {
	OrganizationID uuid.UUID  `json:"organization_id" validate:"required"`
	Email          string     `json:"email" validate:"required,email"`
	Role           model.Role `json:"role" validate:"required"`
	DisplayName    string     `json:"display_name"`
	InvitedByID    *uuid.UUID `json:"invited_by_id"`
}

// InviteOrAdd is the single entry point for bringing a person into an
// organization. Unknown emails get a directory invitation plus a pending
// membership; known identities get a membership created, reactivated, or
// role-updated as needed. Re-invoking with the same input is idempotent.
func (s *MemberService) InviteOrAdd(ctx context.Context, input InviteInput) (*model.Membership, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !input.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	// Start transaction
	tx, err := s.membershipRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	identity, err := s.directory.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, authdir.ErrIdentityNotFound) {
		return nil, wrapProcessing(fmt.Errorf("querying directory: %w", err))
	}

	var membership *model.Membership
	if identity == nil {
		membership, err = s.inviteNewPerson(ctx, input, s.membershipRepo.WithTx(tx), s.invitationRepo.WithTx(tx))
	} else {
		membership, err = s.addExistingPerson(ctx, input, identity, s.membershipRepo.WithTx(tx), s.profileRepo.WithTx(tx))
	}
	if err != nil {
		return nil, wrapProcessing(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapProcessing(fmt.Errorf("committing transaction: %w", err))
	}

	return membership, nil
}

// inviteNewPerson handles emails the directory has never seen: an idempotent
// re-invite of an existing pending membership, or a fresh invitation plus
// pending membership. Both repositories must be bound to the caller's
// transaction so neither row survives alone.
func (s *MemberService) inviteNewPerson(ctx context.Context, input InviteInput, memberships repository.MembershipRepositoryIface, invitations repository.InvitationRepositoryIface) (*model.Membership, error) {
	existing, err := memberships.FindByOrgAndInviteEmail(ctx, input.OrganizationID, input.Email)
	if err != nil && !errors.Is(err, domain.ErrMembershipNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Role != input.Role {
			existing.Role = input.Role
			if err := memberships.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("updating pending membership role: %w", err)
			}
		}
		return existing, nil
	}

	if _, err := s.directory.SendInvitation(ctx, input.Email, s.config.Directory.InviteRedirectURL); err != nil {
		return nil, fmt.Errorf("sending invitation: %w", err)
	}

	invitation := model.NewInvitation(
		input.OrganizationID,
		input.Email,
		input.Role,
		input.InvitedByID,
		s.config.Invitation.ExpiryWindow,
	)
	if err := invitations.Create(ctx, invitation); err != nil {
		return nil, fmt.Errorf("creating invitation record: %w", err)
	}

	membership := model.NewPendingMembership(input.OrganizationID, input.Email, input.Role)
	if err := memberships.Create(ctx, membership); err != nil {
		return nil, fmt.Errorf("creating pending membership: %w", err)
	}

	return membership, nil
}

// addExistingPerson handles identities already known to the directory:
// resolve the profile, then create, reactivate, or role-update the
// membership. Repositories must be bound to the caller's transaction.
func (s *MemberService) addExistingPerson(ctx context.Context, input InviteInput, identity *authdir.Identity, memberships repository.MembershipRepositoryIface, profiles repository.ProfileRepositoryIface) (*model.Membership, error) {
	profile, err := profiles.FindByID(ctx, identity.ID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	if profile == nil {
		profile = &model.Profile{
			ID:                  identity.ID,
			DisplayName:         input.DisplayName,
			HasCompletedProfile: true,
			IsActive:            true,
		}
		if err := profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
	} else if !profile.HasCompletedProfile {
		// Presence in the directory is taken as evidence of a legitimate
		// prior account, so completion is flipped here.
		profile.HasCompletedProfile = true
		if profile.DisplayName == "" {
			profile.DisplayName = input.DisplayName
		}
		if err := profiles.Update(ctx, profile); err != nil {
			return nil, fmt.Errorf("updating profile: %w", err)
		}
	}

	membership, err := memberships.FindByOrgAndUser(ctx, input.OrganizationID, identity.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrMembershipNotFound) {
			return nil, err
		}
		membership = model.NewMembership(input.OrganizationID, identity.ID, input.Role)
		if err := memberships.Create(ctx, membership); err != nil {
			return nil, fmt.Errorf("creating membership: %w", err)
		}
		return membership, nil
	}

	switch {
	case membership.Status == model.MembershipInactive:
		// Reactivation overwrites the role and re-triggers a password
		// reset. The reset email is best-effort.
		membership.Status = model.MembershipActive
		membership.Role = input.Role
		if err := memberships.Update(ctx, membership); err != nil {
			return nil, fmt.Errorf("reactivating membership: %w", err)
		}
		if err := s.directory.SendPasswordReset(ctx, identity.Email, s.config.Directory.ResetRedirectURL); err != nil {
			slog.WarnContext(ctx, "password reset notification failed",
				"email", identity.Email, "error", err)
		}
	case membership.Role != input.Role:
		membership.Role = input.Role
		if err := memberships.Update(ctx, membership); err != nil {
			return nil, fmt.Errorf("updating membership role: %w", err)
		}
	}

	return membership, nil
}

// LinkIdentityToPendingMemberships claims every membership invited under the
// given email for the freshly onboarded identity. Returns the first linked
// membership, or nil when nothing was pending.
func (s *MemberService) LinkIdentityToPendingMemberships(ctx context.Context, userID uuid.UUID, userEmail string) (*model.Membership, error) {
	tx, err := s.membershipRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	membershipStore := s.membershipRepo.WithTx(tx)
	memberships, err := membershipStore.FindPendingByInviteEmail(ctx, userEmail)
	if err != nil {
		return nil, wrapProcessing(err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	for _, m := range memberships {
		m.UserID = &userID
		m.InviteEmail = nil
		if err := membershipStore.Update(ctx, m); err != nil {
			return nil, wrapProcessing(fmt.Errorf("linking membership: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapProcessing(fmt.Errorf("committing transaction: %w", err))
	}

	s.sendWelcomeEmail(ctx, userEmail, memberships[0])

	return memberships[0], nil
}

// MarkInvitationAccepted flips every pending invitation for the email to
// accepted. Best-effort side channel: the membership link is authoritative,
// so persistence failures are logged and reported as false, never raised.
func (s *MemberService) MarkInvitationAccepted(ctx context.Context, userEmail string, userID uuid.UUID) bool {
	invitations, err := s.invitationRepo.FindPendingByEmail(ctx, userEmail)
	if err != nil {
		slog.WarnContext(ctx, "looking up pending invitations failed",
			"email", userEmail, "error", err)
		return false
	}

	now := time.Now().UTC()
	updated := false
	for _, invitation := range invitations {
		invitation.Status = model.InvitationAccepted
		invitation.AcceptedAt = &now
		if err := s.invitationRepo.Update(ctx, invitation); err != nil {
			slog.WarnContext(ctx, "marking invitation accepted failed",
				"invitation_id", invitation.ID, "user_id", userID, "error", err)
			return false
		}
		updated = true
	}
	return updated
}

// ResendInvitation re-sends a pending invitation, extending its expiry when
// it has already lapsed or is about to.
func (s *MemberService) ResendInvitation(ctx context.Context, invitationID, orgID uuid.UUID) (*model.Invitation, error) {
	tx, err := s.membershipRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	invitations := s.invitationRepo.WithTx(tx)
	invitation, err := invitations.FindByIDAndOrg(ctx, invitationID, orgID)
	if err != nil {
		return nil, err
	}
	if invitation.Status != model.InvitationPending {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrInvitationNotPending, invitation.Status)
	}

	now := time.Now().UTC()
	if invitation.ExpiresAt.Before(now.Add(s.config.Invitation.ResendThreshold)) {
		invitation.ExpiresAt = now.Add(s.config.Invitation.ExpiryWindow)
	}

	if _, err := s.directory.SendInvitation(ctx, invitation.Email, s.config.Directory.InviteRedirectURL); err != nil {
		// The directory refuses invitations for registered emails; the
		// person already has access, so the resend still counts.
		if !authdir.IsAlreadyRegistered(err) {
			return nil, fmt.Errorf("resending invitation: %w", err)
		}
	}

	invitation.SentAt = now
	if err := invitations.Update(ctx, invitation); err != nil {
		return nil, wrapProcessing(fmt.Errorf("updating invitation: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapProcessing(fmt.Errorf("committing transaction: %w", err))
	}

	return invitation, nil
}

// CancelInvitation moves a pending invitation to cancelled. Cancelled rows
// are terminal audit records; a later re-invite creates a fresh one.
func (s *MemberService) CancelInvitation(ctx context.Context, invitationID, orgID uuid.UUID) (*model.Invitation, error) {
	invitation, err := s.invitationRepo.FindByIDAndOrg(ctx, invitationID, orgID)
	if err != nil {
		return nil, err
	}
	if invitation.Status != model.InvitationPending {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrInvitationNotPending, invitation.Status)
	}

	invitation.Status = model.InvitationCancelled
	if err := s.invitationRepo.Update(ctx, invitation); err != nil {
		return nil, wrapProcessing(fmt.Errorf("cancelling invitation: %w", err))
	}

	return invitation, nil
}

type BulkInviteEntry struct {
	Email       string     `json:"email" validate:"required,email"`
	Role        model.Role `json:"role" validate:"required"`
	DisplayName string     `json:"display_name"`
}

type BulkInviteFailure struct {
	Index   int    `json:"index"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type BulkInviteResult struct {
	Total       int                 `json:"total"`
	Succeeded   int                 `json:"succeeded"`
	FailedCount int                 `json:"failed_count"`
	Memberships []*model.Membership `json:"memberships"`
	Failures    []BulkInviteFailure `json:"failures"`
}

// BulkInvite runs InviteOrAdd per entry, each inside its own transaction so
// one failure cannot poison the next. Passive roles are rejected per entry;
// those records go through the profile creation path instead. The result is
// always a structured partial report unless every entry failed.
func (s *MemberService) BulkInvite(ctx context.Context, orgID uuid.UUID, entries []BulkInviteEntry, invitedByID *uuid.UUID) (*BulkInviteResult, error) {
	result := &BulkInviteResult{Total: len(entries)}

	for i, entry := range entries {
		if rbac.IsInactiveRole(entry.Role) {
			rejection := fmt.Errorf("%w: role %q cannot be invited; create the profile directly", domain.ErrRoleNotInvitable, entry.Role)
			result.Failures = append(result.Failures, BulkInviteFailure{
				Index:   i,
				Email:   entry.Email,
				Message: rejection.Error(),
			})
			continue
		}

		membership, err := s.InviteOrAdd(ctx, InviteInput{
			OrganizationID: orgID,
			Email:          entry.Email,
			Role:           entry.Role,
			DisplayName:    entry.DisplayName,
			InvitedByID:    invitedByID,
		})
		if err != nil {
			result.Failures = append(result.Failures, BulkInviteFailure{
				Index:   i,
				Email:   entry.Email,
				Message: err.Error(),
			})
			continue
		}
		result.Memberships = append(result.Memberships, membership)
	}

	result.Succeeded = len(result.Memberships)
	result.FailedCount = len(result.Failures)

	if result.Total > 0 && result.Succeeded == 0 {
		return nil, fmt.Errorf("%w: %d of %d entries failed", domain.ErrBulkInviteFailed, result.FailedCount, result.Total)
	}

	return result, nil
}

// sendWelcomeEmail notifies a freshly linked member. Best-effort only.
func (s *MemberService) sendWelcomeEmail(ctx context.Context, to string, membership *model.Membership) {
	if s.emailService == nil || s.orgRepo == nil {
		return
	}

	org, err := s.orgRepo.FindByID(ctx, membership.OrganizationID)
	if err != nil {
		slog.WarnContext(ctx, "loading organization for welcome email failed",
			"organization_id", membership.OrganizationID, "error", err)
		return
	}

	if err := mailer.SendMemberWelcomeEmail(s.emailService, to, org.Name, s.config.BaseURL); err != nil {
		slog.WarnContext(ctx, "sending welcome email failed", "email", to, "error", err)
	}
}

// wrapProcessing folds unexpected failures into a single processing error
// carrying the cause. Typed domain errors and directory API errors pass
// through untouched so handlers can keep dispatching on them.
func wrapProcessing(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *authdir.APIError
	switch {
	case errors.As(err, &apiErr),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrInvitationNotFound),
		errors.Is(err, domain.ErrInvitationNotPending),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvitationProcessing):
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInvitationProcessing, err)
}
