package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"crowdfund-api/internal/model"
	"crowdfund-api/internal/repository"
)

var (
	ErrDonationAmount  = errors.New("donation amount must be greater than zero")
	ErrDonationEnqueue = errors.New("donation enqueue failed")
)

type DonationPublisher interface {
	Publish(ctx context.Context, donation model.Donation) error
}

type DonationService struct {
	donationRepo *repository.DonationRepository
	campaignRepo *repository.CampaignRepository
	userRepo     *repository.UserRepository
	publisher    DonationPublisher
}

type PledgeInput struct {
	UserID     uint
	CampaignID uint
	Amount     decimal.Decimal
}

type CampaignDonations struct {
	CampaignID uint             `json:"campaign"`
	Total      decimal.Decimal  `json:"total"`
	Donations  []model.Donation `json:"donations"`
}

func NewDonationService(
	donationRepo *repository.DonationRepository,
	campaignRepo *repository.CampaignRepository,
	userRepo *repository.UserRepository,
	publisher DonationPublisher,
) *DonationService {
	return &DonationService{
		donationRepo: donationRepo,
		campaignRepo: campaignRepo,
		userRepo:     userRepo,
		publisher:    publisher,
	}
}

// Pledge validates a donation and queues it for persistence.
func (s *DonationService) Pledge(ctx context.Context, input PledgeInput) (*model.Donation, error) {
	if input.UserID == 0 {
		return nil, ErrNotAuthenticated
	}
	if !input.Amount.IsPositive() {
		return nil, ErrDonationAmount
	}
	if !model.FitsDecimal(input.Amount, model.DonationAmountDigits, model.DonationAmountPlaces) {
		return nil, ErrInvalidAmount
	}

	if err := s.checkReferences(ctx, input.UserID, input.CampaignID); err != nil {
		return nil, err
	}

	donation := model.Donation{
		UserID:     input.UserID,
		CampaignID: input.CampaignID,
		Amount:     input.Amount,
		CreatedAt:  time.Now(),
	}
	if s.publisher == nil {
		return nil, ErrDonationEnqueue
	}
	if err := s.publisher.Publish(ctx, donation); err != nil {
		return nil, ErrDonationEnqueue
	}
	return &donation, nil
}

// Persist stores a queued donation. The references are checked again since
// either side may have been deleted while the pledge sat in the queue.
func (s *DonationService) Persist(ctx context.Context, donation *model.Donation) error {
	if err := s.checkReferences(ctx, donation.UserID, donation.CampaignID); err != nil {
		return err
	}
	donation.ID = 0
	return s.donationRepo.Create(ctx, donation)
}

func (s *DonationService) ListByCampaign(ctx context.Context, campaignID uint, limit int) (*CampaignDonations, error) {
	exists, err := s.campaignRepo.Exists(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCampaignNotFound
	}

	donations, err := s.donationRepo.ListByCampaignID(ctx, campaignID, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.donationRepo.SumByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignDonations{
		CampaignID: campaignID,
		Total:      total,
		Donations:  donations,
	}, nil
}

func (s *DonationService) checkReferences(ctx context.Context, userID, campaignID uint) error {
	userExists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !userExists {
		return ErrAccountGone
	}

	campaignExists, err := s.campaignRepo.Exists(ctx, campaignID)
	if err != nil {
		return err
	}
	if !campaignExists {
		return ErrCampaignNotFound
	}
	return nil
}
