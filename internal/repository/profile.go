// internal/repository/profile.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"gorm.io/gorm"
)

type ProfileRepositoryIface interface {
	WithTx(tx Transaction) ProfileRepositoryIface

	Create(ctx context.Context, profile *model.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx returns a repository bound to the transaction's connection.
func (r *ProfileRepository) WithTx(tx Transaction) ProfileRepositoryIface {
	if gtx, ok := tx.(*gormTransaction); ok {
		return &ProfileRepository{db: gtx.tx}
	}
	return r
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	result := r.db.WithContext(ctx).Create(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to create profile: %w", result.Error)
	}
	return nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	result := r.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", result.Error)
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Profile, error) {
	var profiles []*model.Profile
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", result.Error)
	}
	return profiles, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *model.Profile) error {
	result := r.db.WithContext(ctx).Save(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	return nil
}

// Deactivate flags a profile inactive. Profiles are never deleted; historical
// referrals keep referencing them.
func (r *ProfileRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
