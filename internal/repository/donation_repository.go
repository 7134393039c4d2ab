package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crowdfund-api/internal/model"
)

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(ctx context.Context, donation *model.Donation) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(donation).Error; err != nil {
		return fmt.Errorf("create donation failed: %w", err)
	}
	return nil
}

func (r *DonationRepository) ListByCampaignID(ctx context.Context, campaignID uint, limit int) ([]model.Donation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var donations []model.Donation
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("list donations failed: %w", err)
	}
	return donations, nil
}

func (r *DonationRepository) SumByCampaignID(ctx context.Context, campaignID uint) (decimal.Decimal, error) {
	row := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("campaign_id = ?", campaignID).
		Row()

	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum donations failed: %w", err)
	}
	return total, nil
}
