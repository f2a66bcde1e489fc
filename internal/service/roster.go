// internal/service/roster.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/rbac"
)

// MemberView pairs a membership with its profile for roster display. Pending
// memberships have no profile yet.
type MemberView struct {
	Membership *model.Membership `json:"membership"`
	Profile    *model.Profile    `json:"profile,omitempty"`
}

// ListMembers returns a page of the organization roster with profiles joined
// in.
func (s *MemberService) ListMembers(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*MemberView, int64, error) {
	memberships, count, err := s.membershipRepo.FindByOrganizationPaginated(ctx, orgID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing members: %w", err)
	}

	var userIDs []uuid.UUID
	for _, m := range memberships {
		if m.UserID != nil {
			userIDs = append(userIDs, *m.UserID)
		}
	}

	profilesByID := make(map[uuid.UUID]*model.Profile, len(userIDs))
	if len(userIDs) > 0 {
		profiles, err := s.profileRepo.FindByIDs(ctx, userIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("loading member profiles: %w", err)
		}
		for _, p := range profiles {
			profilesByID[p.ID] = p
		}
	}

	views := make([]*MemberView, 0, len(memberships))
	for _, m := range memberships {
		view := &MemberView{Membership: m}
		if m.UserID != nil {
			view.Profile = profilesByID[*m.UserID]
		}
		views = append(views, view)
	}

	return views, count, nil
}

// ListInvitations returns a page of the organization's invitation audit
// trail.
func (s *MemberService) ListInvitations(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*model.Invitation, int64, error) {
	invitations, count, err := s.invitationRepo.FindByOrganizationPaginated(ctx, orgID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing invitations: %w", err)
	}
	return invitations, count, nil
}

// DeactivateMember flips a member inactive without deleting anything.
// Admins cannot deactivate themselves. Passive-role members also have their
// synthetic profile flagged inactive; people with real directory identities
// may hold memberships elsewhere, so their profile is left alone.
func (s *MemberService) DeactivateMember(ctx context.Context, orgID, userID uuid.UUID, actor *model.Membership) (*model.Membership, error) {
	if actor != nil && actor.UserID != nil && *actor.UserID == userID {
		return nil, domain.ErrSelfActionNotPermitted
	}

	tx, err := s.membershipRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	memberships := s.membershipRepo.WithTx(tx)
	membership, err := memberships.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if membership.Status != model.MembershipInactive {
		membership.Status = model.MembershipInactive
		if err := memberships.Update(ctx, membership); err != nil {
			return nil, wrapProcessing(fmt.Errorf("deactivating membership: %w", err))
		}
	}

	if rbac.IsInactiveRole(membership.Role) {
		if err := s.profileRepo.WithTx(tx).Deactivate(ctx, userID); err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, wrapProcessing(fmt.Errorf("deactivating profile: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapProcessing(fmt.Errorf("committing transaction: %w", err))
	}

	return membership, nil
}

type CreateProfileInput struct {
	OrganizationID uuid.UUID  `json:"organization_id" validate:"required"`
	Role           model.Role `json:"role" validate:"required"`
	DisplayName    string     `json:"display_name" validate:"required"`
	GradeLevel     *int       `json:"grade_level"`
	StudentNumber  string     `json:"student_number"`
	Phone          string     `json:"phone"`
}

// CreateProfileOnly is the dedicated path for students and guardians: a
// synthetic profile with no backing directory identity, plus a passive
// membership. The membership's user ID is the profile's own; no linking will
// ever occur.
func (s *MemberService) CreateProfileOnly(ctx context.Context, input CreateProfileInput) (*model.Profile, *model.Membership, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !rbac.IsInactiveRole(input.Role) {
		return nil, nil, fmt.Errorf("%w: %s profiles must go through invitation", domain.ErrInvalidRole, input.Role)
	}

	tx, err := s.membershipRepo.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	profile := &model.Profile{
		ID:            uuid.New(),
		DisplayName:   input.DisplayName,
		GradeLevel:    input.GradeLevel,
		StudentNumber: input.StudentNumber,
		Phone:         input.Phone,
		IsActive:      true,
	}
	if err := s.profileRepo.WithTx(tx).Create(ctx, profile); err != nil {
		return nil, nil, wrapProcessing(fmt.Errorf("creating profile: %w", err))
	}

	membership := model.NewMembership(input.OrganizationID, profile.ID, input.Role)
	if err := s.membershipRepo.WithTx(tx).Create(ctx, membership); err != nil {
		return nil, nil, wrapProcessing(fmt.Errorf("creating membership: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, wrapProcessing(fmt.Errorf("committing transaction: %w", err))
	}

	return profile, membership, nil
}
