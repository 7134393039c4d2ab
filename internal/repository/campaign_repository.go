package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crowdfund-api/internal/model"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(campaign).Error; err != nil {
		return fmt.Errorf("create campaign failed: %w", err)
	}
	return nil
}

func (r *CampaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("list campaigns failed: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) ListByOwnerID(ctx context.Context, ownerID uint) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("list campaigns by owner failed: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id uint) (*model.Campaign, error) {
	var campaign model.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get campaign failed: %w", err)
	}
	return &campaign, nil
}

func (r *CampaignRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Campaign{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check campaign exists failed: %w", err)
	}
	return count > 0, nil
}

// Update writes the editable columns of campaign. The owner is never touched.
func (r *CampaignRepository) Update(ctx context.Context, campaign *model.Campaign) error {
	err := r.db.WithContext(ctx).
		Model(campaign).
		Select("title", "description", "target_amount", "start_date", "end_date").
		Updates(campaign).Error
	if err != nil {
		return fmt.Errorf("update campaign failed: %w", err)
	}
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Campaign{}, id).Error; err != nil {
		return fmt.Errorf("delete campaign failed: %w", err)
	}
	return nil
}
