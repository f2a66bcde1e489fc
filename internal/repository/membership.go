// internal/repository/membership.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"gorm.io/gorm"
)

type MembershipRepositoryIface interface {
	Begin(ctx context.Context) (Transaction, error) // For mocking support in tests
	WithTx(tx Transaction) MembershipRepositoryIface

	Create(ctx context.Context, membership *model.Membership) error
	Update(ctx context.Context, membership *model.Membership) error
	FindByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*model.Membership, error)
	FindByOrgAndInviteEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Membership, error)
	FindPendingByInviteEmail(ctx context.Context, email string) ([]*model.Membership, error)
	FindByOrganizationPaginated(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*model.Membership, int64, error)
}

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Begin starts a new database transaction and returns a Transaction instance.
func (r *MembershipRepository) Begin(ctx context.Context) (Transaction, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormTransaction{tx: tx}, nil
}

// WithTx returns a repository bound to the transaction's connection, so its
// reads and writes participate in that transaction. A foreign Transaction
// implementation falls back to the base connection.
func (r *MembershipRepository) WithTx(tx Transaction) MembershipRepositoryIface {
	if gtx, ok := tx.(*gormTransaction); ok {
		return &MembershipRepository{db: gtx.tx}
	}
	return r
}

func (r *MembershipRepository) Create(ctx context.Context, membership *model.Membership) error {
	result := r.db.WithContext(ctx).Create(membership)
	if result.Error != nil {
		return fmt.Errorf("failed to create membership: %w", result.Error)
	}
	return nil
}

func (r *MembershipRepository) Update(ctx context.Context, membership *model.Membership) error {
	result := r.db.WithContext(ctx).Save(membership)
	if result.Error != nil {
		return fmt.Errorf("failed to update membership: %w", result.Error)
	}
	return nil
}

func (r *MembershipRepository) FindByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*model.Membership, error) {
	var membership model.Membership
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&membership)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", result.Error)
	}
	return &membership, nil
}

func (r *MembershipRepository) FindByOrgAndInviteEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Membership, error) {
	var membership model.Membership
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND invite_email = ?", orgID, email).
		First(&membership)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to find membership by invite email: %w", result.Error)
	}
	return &membership, nil
}

// FindPendingByInviteEmail returns every unlinked membership invited under
// the given email, across organizations. Rows that already carry a user_id
// are excluded so linking can never reassign a claimed membership.
func (r *MembershipRepository) FindPendingByInviteEmail(ctx context.Context, email string) ([]*model.Membership, error) {
	var memberships []*model.Membership
	result := r.db.WithContext(ctx).
		Where("invite_email = ? AND user_id IS NULL", email).
		Find(&memberships)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find pending memberships: %w", result.Error)
	}
	return memberships, nil
}

// FindByOrganizationPaginated returns a paginated roster for one organization
func (r *MembershipRepository) FindByOrganizationPaginated(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]*model.Membership, int64, error) {
	var memberships []*model.Membership
	var count int64

	// Get total count
	if err := r.db.WithContext(ctx).Model(&model.Membership{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count memberships: %w", err)
	}

	// Get paginated memberships
	result := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("joined_at").
		Offset(offset).Limit(limit).
		Find(&memberships)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to find paginated memberships: %w", result.Error)
	}

	return memberships, count, nil
}
