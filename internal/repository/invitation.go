// internal/repository/invitation.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"gorm.io/gorm"
)

type InvitationRepositoryIface interface {
	WithTx(tx Transaction) InvitationRepositoryIface

	Create(ctx context.Context, invitation *model.Invitation) error
	Update(ctx context.Context, invitation *model.Invitation) error
	FindByIDAndOrg(ctx context.Context, id, orgID uuid.UUID) (*model.Invitation, error)
	FindPendingByEmail(ctx context.Context, email string) ([]*model.Invitation, error)
	FindByOrganizationPaginated(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*model.Invitation, int64, error)
}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// WithTx returns a repository bound to the transaction's connection.
func (r *InvitationRepository) WithTx(tx Transaction) InvitationRepositoryIface {
	if gtx, ok := tx.(*gormTransaction); ok {
		return &InvitationRepository{db: gtx.tx}
	}
	return r
}

func (r *InvitationRepository) Create(ctx context.Context, invitation *model.Invitation) error {
	result := r.db.WithContext(ctx).Create(invitation)
	if result.Error != nil {
		return fmt.Errorf("failed to create invitation: %w", result.Error)
	}
	return nil
}

func (r *InvitationRepository) Update(ctx context.Context, invitation *model.Invitation) error {
	result := r.db.WithContext(ctx).Save(invitation)
	if result.Error != nil {
		return fmt.Errorf("failed to update invitation: %w", result.Error)
	}
	return nil
}

func (r *InvitationRepository) FindByIDAndOrg(ctx context.Context, id, orgID uuid.UUID) (*model.Invitation, error) {
	var invitation model.Invitation
	result := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&invitation)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", result.Error)
	}
	return &invitation, nil
}

func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, email string) ([]*model.Invitation, error) {
	var invitations []*model.Invitation
	result := r.db.WithContext(ctx).
		Where("email = ? AND status = ?", email, model.InvitationPending).
		Find(&invitations)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find pending invitations: %w", result.Error)
	}
	return invitations, nil
}

// FindByOrganizationPaginated returns a paginated invitation audit trail
func (r *InvitationRepository) FindByOrganizationPaginated(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*model.Invitation, int64, error) {
	var invitations []*model.Invitation
	var count int64

	// Get total count
	if err := r.db.WithContext(ctx).Model(&model.Invitation{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invitations: %w", err)
	}

	// Get paginated invitations
	result := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("sent_at DESC").
		Offset(offset).Limit(limit).
		Find(&invitations)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to find paginated invitations: %w", result.Error)
	}

	return invitations, count, nil
}
