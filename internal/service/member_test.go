package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/authdir"
	"github.com/refera-hq/refera/internal/config"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/mocks"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Directory.InviteRedirectURL = "https://app.example.com/onboarding"
	cfg.Directory.ResetRedirectURL = "https://app.example.com/reset-password"
	cfg.Invitation.ExpiryWindow = 7 * 24 * time.Hour
	cfg.Invitation.ResendThreshold = 24 * time.Hour
	return cfg
}

type serviceMocks struct {
	membershipRepo *mocks.MockMembershipRepositoryIface
	profileRepo    *mocks.MockProfileRepositoryIface
	invitationRepo *mocks.MockInvitationRepositoryIface
	directory      *mocks.MockDirectory
	tx             *mocks.MockTransaction
}

func newServiceMocks(ctrl *gomock.Controller) (*service.MemberService, *serviceMocks) {
	m := &serviceMocks{
		membershipRepo: mocks.NewMockMembershipRepositoryIface(ctrl),
		profileRepo:    mocks.NewMockProfileRepositoryIface(ctrl),
		invitationRepo: mocks.NewMockInvitationRepositoryIface(ctrl),
		directory:      mocks.NewMockDirectory(ctrl),
		tx:             mocks.NewMockTransaction(ctrl),
	}
	svc := service.NewMemberService(
		m.membershipRepo,
		m.profileRepo,
		m.invitationRepo,
		nil,
		m.directory,
		nil,
		testConfig(),
	)
	return svc, m
}

// expectTx wires a Begin/Commit pair and lets WithTx hand back the same
// mocks. Rollback always fires via defer, so it is tolerated any number of
// times.
func (m *serviceMocks) expectTx(commit bool) {
	m.membershipRepo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.membershipRepo.EXPECT().WithTx(m.tx).Return(m.membershipRepo).AnyTimes()
	m.profileRepo.EXPECT().WithTx(m.tx).Return(m.profileRepo).AnyTimes()
	m.invitationRepo.EXPECT().WithTx(m.tx).Return(m.invitationRepo).AnyTimes()
	m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
	if commit {
		m.tx.EXPECT().Commit().Return(nil)
	}
}

func TestInviteOrAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("unknown email creates invitation and pending membership", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "new@example.com").
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, "new@example.com").
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), "new@example.com", "https://app.example.com/onboarding").
			Return(&authdir.InviteReceipt{Email: "new@example.com"}, nil)
		m.invitationRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv *model.Invitation) error {
				assert.Equal(t, model.InvitationPending, inv.Status)
				assert.Equal(t, orgID, inv.OrganizationID)
				assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)
				return nil
			})
		m.membershipRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, membership *model.Membership) error {
				assert.True(t, membership.IsPending())
				assert.Equal(t, "new@example.com", *membership.InviteEmail)
				return nil
			})

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "new@example.com",
			Role:           model.RoleStaff,
		})

		assert.NoError(t, err)
		assert.True(t, membership.IsPending())
		assert.Equal(t, model.MembershipActive, membership.Status)
	})

	t.Run("re-invite of a pending membership is idempotent", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		email := "pending@example.com"
		existing := model.NewPendingMembership(orgID, email, model.RoleStaff)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), email).
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, email).
			Return(existing, nil)
		// Same role: no update, no second invitation.

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          email,
			Role:           model.RoleStaff,
		})

		assert.NoError(t, err)
		assert.Same(t, existing, membership)
	})

	t.Run("re-invite with a different role updates the pending row", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		email := "pending@example.com"
		existing := model.NewPendingMembership(orgID, email, model.RoleStaff)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), email).
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, email).
			Return(existing, nil)
		m.membershipRepo.EXPECT().
			Update(gomock.Any(), existing).
			Return(nil)

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          email,
			Role:           model.RoleSecretary,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.RoleSecretary, membership.Role)
	})

	t.Run("known identity without profile gets profile and membership", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		identity := &authdir.Identity{ID: uuid.New(), Email: "known@example.com"}

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), identity.Email).
			Return(identity, nil)
		m.profileRepo.EXPECT().
			FindByID(gomock.Any(), identity.ID).
			Return(nil, domain.ErrProfileNotFound)
		m.profileRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, profile *model.Profile) error {
				assert.Equal(t, identity.ID, profile.ID)
				assert.True(t, profile.HasCompletedProfile)
				assert.Equal(t, "Kim Known", profile.DisplayName)
				return nil
			})
		m.membershipRepo.EXPECT().
			FindByOrgAndUser(gomock.Any(), orgID, identity.ID).
			Return(nil, domain.ErrMembershipNotFound)
		m.membershipRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          identity.Email,
			Role:           model.RoleAdmin,
			DisplayName:    "Kim Known",
		})

		assert.NoError(t, err)
		assert.False(t, membership.IsPending())
		assert.Equal(t, identity.ID, *membership.UserID)
		assert.Equal(t, model.MembershipActive, membership.Status)
	})

	t.Run("reactivation overwrites role and tolerates reset failure", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		identity := &authdir.Identity{ID: uuid.New(), Email: "dormant@example.com"}
		existing := model.NewMembership(orgID, identity.ID, model.RoleStaff)
		existing.Status = model.MembershipInactive

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), identity.Email).
			Return(identity, nil)
		m.profileRepo.EXPECT().
			FindByID(gomock.Any(), identity.ID).
			Return(&model.Profile{ID: identity.ID, HasCompletedProfile: true}, nil)
		m.membershipRepo.EXPECT().
			FindByOrgAndUser(gomock.Any(), orgID, identity.ID).
			Return(existing, nil)
		m.membershipRepo.EXPECT().
			Update(gomock.Any(), existing).
			Return(nil)
		m.directory.EXPECT().
			SendPasswordReset(gomock.Any(), identity.Email, gomock.Any()).
			Return(errors.New("smtp unavailable"))

		membership, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          identity.Email,
			Role:           model.RoleSecretary,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.MembershipActive, membership.Status)
		assert.Equal(t, model.RoleSecretary, membership.Role)
	})

	t.Run("unknown role is rejected before any I/O", func(t *testing.T) {
		svc, _ := newServiceMocks(ctrl)

		_, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "who@example.com",
			Role:           model.Role("wizard"),
		})

		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("directory failures wrap as processing errors", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(false)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "down@example.com").
			Return(nil, errors.New("connection refused"))

		_, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "down@example.com",
			Role:           model.RoleStaff,
		})

		assert.ErrorIs(t, err, domain.ErrInvitationProcessing)
	})

	t.Run("directory API errors pass through unwrapped", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(false)

		apiErr := &authdir.APIError{StatusCode: 429, Message: "rate limited"}

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "busy@example.com").
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, "busy@example.com").
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), "busy@example.com", gomock.Any()).
			Return(nil, apiErr)

		_, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "busy@example.com",
			Role:           model.RoleStaff,
		})

		var got *authdir.APIError
		assert.ErrorAs(t, err, &got)
		assert.Equal(t, 429, got.StatusCode)
		assert.NotErrorIs(t, err, domain.ErrInvitationProcessing)
	})
}

func TestInviteOrAddTransactionScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("writes go through the transaction-bound repositories", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		// WithTx hands back dedicated mocks. Every repository call must land
		// on them; any call on the base repos fails the test.
		txMemberships := mocks.NewMockMembershipRepositoryIface(ctrl)
		txInvitations := mocks.NewMockInvitationRepositoryIface(ctrl)

		m.membershipRepo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
		m.membershipRepo.EXPECT().WithTx(m.tx).Return(txMemberships)
		m.invitationRepo.EXPECT().WithTx(m.tx).Return(txInvitations)
		m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
		m.tx.EXPECT().Commit().Return(nil)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "scoped@example.com").
			Return(nil, authdir.ErrIdentityNotFound)
		txMemberships.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, "scoped@example.com").
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), "scoped@example.com", gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		txInvitations.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)
		txMemberships.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)

		_, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "scoped@example.com",
			Role:           model.RoleStaff,
		})

		assert.NoError(t, err)
	})

	t.Run("failed membership write rolls back, never commits", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		txMemberships := mocks.NewMockMembershipRepositoryIface(ctrl)
		txInvitations := mocks.NewMockInvitationRepositoryIface(ctrl)

		m.membershipRepo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
		m.membershipRepo.EXPECT().WithTx(m.tx).Return(txMemberships)
		m.invitationRepo.EXPECT().WithTx(m.tx).Return(txInvitations)
		// No Commit expectation: the invitation row must not outlive the
		// failed membership write.
		m.tx.EXPECT().Rollback().Return(nil).MinTimes(1)

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "half@example.com").
			Return(nil, authdir.ErrIdentityNotFound)
		txMemberships.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, "half@example.com").
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), "half@example.com", gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		txInvitations.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)
		txMemberships.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(errors.New("deadlock detected"))

		_, err := svc.InviteOrAdd(context.Background(), service.InviteInput{
			OrganizationID: orgID,
			Email:          "half@example.com",
			Role:           model.RoleStaff,
		})

		assert.ErrorIs(t, err, domain.ErrInvitationProcessing)
	})
}

func TestLinkIdentityToPendingMemberships(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	email := "fresh@example.com"

	t.Run("claims every pending membership across organizations", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		first := model.NewPendingMembership(uuid.New(), email, model.RoleStaff)
		second := model.NewPendingMembership(uuid.New(), email, model.RoleGuardian)

		m.membershipRepo.EXPECT().
			FindPendingByInviteEmail(gomock.Any(), email).
			Return([]*model.Membership{first, second}, nil)
		m.membershipRepo.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			Return(nil).
			Times(2)

		linked, err := svc.LinkIdentityToPendingMemberships(context.Background(), userID, email)

		assert.NoError(t, err)
		assert.Same(t, first, linked)
		for _, membership := range []*model.Membership{first, second} {
			assert.Equal(t, userID, *membership.UserID)
			assert.Nil(t, membership.InviteEmail)
		}
	})

	t.Run("nothing pending is a no-op", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(false)

		m.membershipRepo.EXPECT().
			FindPendingByInviteEmail(gomock.Any(), email).
			Return(nil, nil)

		linked, err := svc.LinkIdentityToPendingMemberships(context.Background(), userID, email)

		assert.NoError(t, err)
		assert.Nil(t, linked)
	})
}

func TestMarkInvitationAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	email := "accepted@example.com"

	t.Run("flips pending invitations to accepted", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		invitation := model.NewInvitation(uuid.New(), email, model.RoleStaff, nil, 7*24*time.Hour)

		m.invitationRepo.EXPECT().
			FindPendingByEmail(gomock.Any(), email).
			Return([]*model.Invitation{invitation}, nil)
		m.invitationRepo.EXPECT().
			Update(gomock.Any(), invitation).
			Return(nil)

		assert.True(t, svc.MarkInvitationAccepted(context.Background(), email, userID))
		assert.Equal(t, model.InvitationAccepted, invitation.Status)
		assert.NotNil(t, invitation.AcceptedAt)
	})

	t.Run("persistence failure reports false, never raises", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		m.invitationRepo.EXPECT().
			FindPendingByEmail(gomock.Any(), email).
			Return(nil, errors.New("db down"))

		assert.False(t, svc.MarkInvitationAccepted(context.Background(), email, userID))
	})
}

func TestResendInvitation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("near-expiry resend extends the expiry window", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		invitation := model.NewInvitation(orgID, "slow@example.com", model.RoleStaff, nil, 7*24*time.Hour)
		invitation.ID = uuid.New()
		invitation.ExpiresAt = time.Now().UTC().Add(2 * time.Hour)

		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), invitation.ID, orgID).
			Return(invitation, nil)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), invitation.Email, gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		m.invitationRepo.EXPECT().
			Update(gomock.Any(), invitation).
			Return(nil)

		resent, err := svc.ResendInvitation(context.Background(), invitation.ID, orgID)

		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), resent.ExpiresAt, time.Minute)
		assert.WithinDuration(t, time.Now().UTC(), resent.SentAt, time.Minute)
	})

	t.Run("resend far from expiry only bumps the sent timestamp", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		invitation := model.NewInvitation(orgID, "eager@example.com", model.RoleStaff, nil, 7*24*time.Hour)
		invitation.ID = uuid.New()
		originalExpiry := invitation.ExpiresAt

		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), invitation.ID, orgID).
			Return(invitation, nil)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), invitation.Email, gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		m.invitationRepo.EXPECT().
			Update(gomock.Any(), invitation).
			Return(nil)

		resent, err := svc.ResendInvitation(context.Background(), invitation.ID, orgID)

		assert.NoError(t, err)
		assert.Equal(t, originalExpiry, resent.ExpiresAt)
	})

	t.Run("directory refusing a registered email still counts as sent", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		invitation := model.NewInvitation(orgID, "taken@example.com", model.RoleStaff, nil, 7*24*time.Hour)
		invitation.ID = uuid.New()

		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), invitation.ID, orgID).
			Return(invitation, nil)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), invitation.Email, gomock.Any()).
			Return(nil, &authdir.APIError{StatusCode: 422, Code: "email_exists", Message: "already registered"})
		m.invitationRepo.EXPECT().
			Update(gomock.Any(), invitation).
			Return(nil)

		_, err := svc.ResendInvitation(context.Background(), invitation.ID, orgID)

		assert.NoError(t, err)
	})

	t.Run("non-pending invitation cannot be resent", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(false)

		invitation := model.NewInvitation(orgID, "done@example.com", model.RoleStaff, nil, 7*24*time.Hour)
		invitation.ID = uuid.New()
		invitation.Status = model.InvitationCancelled

		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), invitation.ID, orgID).
			Return(invitation, nil)

		_, err := svc.ResendInvitation(context.Background(), invitation.ID, orgID)

		assert.ErrorIs(t, err, domain.ErrInvitationNotPending)
	})
}

func TestCancelInvitation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("pending invitation moves to cancelled", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		invitation := model.NewInvitation(orgID, "cancel@example.com", model.RoleStaff, nil, 7*24*time.Hour)
		invitation.ID = uuid.New()

		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), invitation.ID, orgID).
			Return(invitation, nil)
		m.invitationRepo.EXPECT().
			Update(gomock.Any(), invitation).
			Return(nil)

		cancelled, err := svc.CancelInvitation(context.Background(), invitation.ID, orgID)

		assert.NoError(t, err)
		assert.Equal(t, model.InvitationCancelled, cancelled.Status)
	})

	t.Run("unknown invitation surfaces not found", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)

		id := uuid.New()
		m.invitationRepo.EXPECT().
			FindByIDAndOrg(gomock.Any(), id, orgID).
			Return(nil, domain.ErrInvitationNotFound)

		_, err := svc.CancelInvitation(context.Background(), id, orgID)

		assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
	})
}

func TestDeactivateMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("active member goes inactive", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		userID := uuid.New()
		membership := model.NewMembership(orgID, userID, model.RoleStaff)

		m.membershipRepo.EXPECT().
			FindByOrgAndUser(gomock.Any(), orgID, userID).
			Return(membership, nil)
		m.membershipRepo.EXPECT().
			Update(gomock.Any(), membership).
			Return(nil)

		deactivated, err := svc.DeactivateMember(context.Background(), orgID, userID, nil)

		assert.NoError(t, err)
		assert.Equal(t, model.MembershipInactive, deactivated.Status)
	})

	t.Run("passive members also lose their synthetic profile", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		m.expectTx(true)

		profileID := uuid.New()
		membership := model.NewMembership(orgID, profileID, model.RoleStudent)

		m.membershipRepo.EXPECT().
			FindByOrgAndUser(gomock.Any(), orgID, profileID).
			Return(membership, nil)
		m.profileRepo.EXPECT().
			Deactivate(gomock.Any(), profileID).
			Return(nil)

		_, err := svc.DeactivateMember(context.Background(), orgID, profileID, nil)

		assert.NoError(t, err)
	})

	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		svc, _ := newServiceMocks(ctrl)

		adminID := uuid.New()
		actor := model.NewMembership(orgID, adminID, model.RoleAdmin)

		_, err := svc.DeactivateMember(context.Background(), orgID, adminID, actor)

		assert.ErrorIs(t, err, domain.ErrSelfActionNotPermitted)
	})
}

func TestBulkInvite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	// expectPendingInvite wires the full unknown-email path for one entry.
	expectPendingInvite := func(m *serviceMocks, email string) {
		m.expectTx(true)
		m.directory.EXPECT().
			FindByEmail(gomock.Any(), email).
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, email).
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), email, gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		m.invitationRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)
		m.membershipRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(nil)
	}

	t.Run("passive roles are rejected per entry without poisoning the batch", func(t *testing.T) {
		svc, m := newServiceMocks(ctrl)
		expectPendingInvite(m, "teacher1@example.com")
		expectPendingInvite(m, "teacher2@example.com")

		result, err := svc.BulkInvite(context.Background(), orgID, []service.BulkInviteEntry{
			{Email: "teacher1@example.com", Role: model.RoleStaff},
			{Email: "kid@example.com", Role: model.RoleStudent},
			{Email: "teacher2@example.com", Role: model.RoleStaff},
		}, nil)

		assert.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.FailedCount)
		assert.Len(t, result.Failures, 1)
		assert.Equal(t, 1, result.Failures[0].Index)
		assert.Equal(t, "kid@example.com", result.Failures[0].Email)
		assert.Contains(t, result.Failures[0].Message, "cannot be invited")
	})

	t.Run("every entry failing raises a batch error", func(t *testing.T) {
		svc, _ := newServiceMocks(ctrl)

		_, err := svc.BulkInvite(context.Background(), orgID, []service.BulkInviteEntry{
			{Email: "kid@example.com", Role: model.RoleStudent},
			{Email: "parent@example.com", Role: model.RoleGuardian},
		}, nil)

		assert.ErrorIs(t, err, domain.ErrBulkInviteFailed)
	})
}
