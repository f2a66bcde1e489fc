package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/refera-hq/refera/internal/authdir"
	"github.com/refera-hq/refera/internal/config"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/handler"
	"github.com/refera-hq/refera/internal/mocks"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/obs"
	"github.com/refera-hq/refera/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type handlerMocks struct {
	membershipRepo *mocks.MockMembershipRepositoryIface
	profileRepo    *mocks.MockProfileRepositoryIface
	invitationRepo *mocks.MockInvitationRepositoryIface
	directory      *mocks.MockDirectory
	tx             *mocks.MockTransaction
}

func newMemberHandler(ctrl *gomock.Controller) (*handler.MemberHandler, *handlerMocks) {
	m := &handlerMocks{
		membershipRepo: mocks.NewMockMembershipRepositoryIface(ctrl),
		profileRepo:    mocks.NewMockProfileRepositoryIface(ctrl),
		invitationRepo: mocks.NewMockInvitationRepositoryIface(ctrl),
		directory:      mocks.NewMockDirectory(ctrl),
		tx:             mocks.NewMockTransaction(ctrl),
	}

	cfg := &config.Config{}
	cfg.Directory.InviteRedirectURL = "https://app.example.com/onboarding"
	cfg.Directory.ResetRedirectURL = "https://app.example.com/reset-password"
	cfg.Invitation.ExpiryWindow = 7 * 24 * time.Hour
	cfg.Invitation.ResendThreshold = 24 * time.Hour

	svc := service.NewMemberService(
		m.membershipRepo,
		m.profileRepo,
		m.invitationRepo,
		nil,
		m.directory,
		nil,
		cfg,
	)
	return handler.NewMemberHandler(svc), m
}

func (m *handlerMocks) expectTx() {
	m.membershipRepo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.membershipRepo.EXPECT().WithTx(m.tx).Return(m.membershipRepo).AnyTimes()
	m.profileRepo.EXPECT().WithTx(m.tx).Return(m.profileRepo).AnyTimes()
	m.invitationRepo.EXPECT().WithTx(m.tx).Return(m.invitationRepo).AnyTimes()
	m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
	m.tx.EXPECT().Commit().Return(nil)
}

func inviteRequest(orgID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orgs/"+orgID.String()+"/members", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orgID", orgID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestInviteHandlerMetricOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()

	t.Run("fresh invitation counts as sent", func(t *testing.T) {
		h, m := newMemberHandler(ctrl)
		m.expectTx()

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "new@example.com").
			Return(nil, authdir.ErrIdentityNotFound)
		m.membershipRepo.EXPECT().
			FindByOrgAndInviteEmail(gomock.Any(), orgID, "new@example.com").
			Return(nil, domain.ErrMembershipNotFound)
		m.directory.EXPECT().
			SendInvitation(gomock.Any(), "new@example.com", gomock.Any()).
			Return(&authdir.InviteReceipt{}, nil)
		m.invitationRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		m.membershipRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		sentBefore := testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("sent"))
		addedBefore := testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("added"))

		rec := httptest.NewRecorder()
		h.InviteHandler(rec, inviteRequest(orgID, `{"email":"new@example.com","role":"staff"}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, sentBefore+1, testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("sent")))
		assert.Equal(t, addedBefore, testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("added")))
	})

	t.Run("linking an existing identity counts as added, not sent", func(t *testing.T) {
		h, m := newMemberHandler(ctrl)
		m.expectTx()

		identity := &authdir.Identity{ID: uuid.New(), Email: "known@example.com"}

		m.directory.EXPECT().
			FindByEmail(gomock.Any(), identity.Email).
			Return(identity, nil)
		m.profileRepo.EXPECT().
			FindByID(gomock.Any(), identity.ID).
			Return(&model.Profile{ID: identity.ID, HasCompletedProfile: true}, nil)
		m.membershipRepo.EXPECT().
			FindByOrgAndUser(gomock.Any(), orgID, identity.ID).
			Return(nil, domain.ErrMembershipNotFound)
		m.membershipRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		sentBefore := testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("sent"))
		addedBefore := testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("added"))

		rec := httptest.NewRecorder()
		h.InviteHandler(rec, inviteRequest(orgID, `{"email":"known@example.com","role":"staff"}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, sentBefore, testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("sent")))
		assert.Equal(t, addedBefore+1, testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("added")))
	})

	t.Run("a failing invite counts as failed", func(t *testing.T) {
		h, m := newMemberHandler(ctrl)

		m.membershipRepo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
		m.tx.EXPECT().Rollback().Return(nil).AnyTimes()
		m.directory.EXPECT().
			FindByEmail(gomock.Any(), "down@example.com").
			Return(nil, &authdir.APIError{StatusCode: 503, Message: "unavailable"})

		failedBefore := testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("failed"))

		rec := httptest.NewRecorder()
		h.InviteHandler(rec, inviteRequest(orgID, `{"email":"down@example.com","role":"staff"}`))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, failedBefore+1, testutil.ToFloat64(obs.InvitationsSent.WithLabelValues("failed")))
	})
}
