package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crowdfund-api/internal/model"
	"crowdfund-api/internal/policy"
	"crowdfund-api/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("you must be logged in")
	ErrAccountGone      = errors.New("user account no longer exists")
	ErrNotOwner         = errors.New("you do not have permission to perform this action")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrInvalidAmount    = errors.New("amount does not fit the allowed digits")
)

type CampaignCache interface {
	GetCampaign(ctx context.Context, id uint) (*model.Campaign, bool, error)
	SetCampaign(ctx context.Context, campaign *model.Campaign) error
	DeleteCampaign(ctx context.Context, id uint) error
}

type CampaignService struct {
	campaignRepo *repository.CampaignRepository
	userRepo     *repository.UserRepository
	cache        CampaignCache
	log          logrus.FieldLogger
}

type CreateCampaignInput struct {
	RequesterID  uint
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	StartDate    *model.Date
	EndDate      model.Date
}

// UpdateCampaignInput carries a PUT (Partial false) or PATCH (Partial true).
// Nil fields are left unchanged; on PUT every field except StartDate is
// required.
type UpdateCampaignInput struct {
	RequesterID  uint
	CampaignID   uint
	Partial      bool
	Title        *string
	Description  *string
	TargetAmount *decimal.Decimal
	StartDate    *model.Date
	EndDate      *model.Date
}

func NewCampaignService(
	campaignRepo *repository.CampaignRepository,
	userRepo *repository.UserRepository,
	cache CampaignCache,
	log logrus.FieldLogger,
) *CampaignService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CampaignService{
		campaignRepo: campaignRepo,
		userRepo:     userRepo,
		cache:        cache,
		log:          log,
	}
}

func (s *CampaignService) List(ctx context.Context) ([]model.Campaign, error) {
	return s.campaignRepo.List(ctx)
}

func (s *CampaignService) ListMine(ctx context.Context, requesterID uint) ([]model.Campaign, error) {
	if requesterID == 0 {
		return nil, ErrNotAuthenticated
	}
	return s.campaignRepo.ListByOwnerID(ctx, requesterID)
}

func (s *CampaignService) Get(ctx context.Context, id uint) (*model.Campaign, error) {
	if id == 0 {
		return nil, ErrCampaignNotFound
	}

	if s.cache != nil {
		cached, hit, err := s.cache.GetCampaign(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("campaign_id", id).Warn("campaign cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetCampaign(ctx, campaign); err != nil {
			s.log.WithError(err).WithField("campaign_id", id).Warn("campaign cache write failed")
		}
	}
	return campaign, nil
}

// Create persists a campaign owned by the requester. The identity must be
// authenticated and must still exist, checked in that order.
func (s *CampaignService) Create(ctx context.Context, input CreateCampaignInput) (*model.Campaign, error) {
	if input.RequesterID == 0 {
		return nil, ErrNotAuthenticated
	}

	exists, err := s.userRepo.Exists(ctx, input.RequesterID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountGone
	}

	startDate := model.Today()
	if input.StartDate != nil {
		startDate = *input.StartDate
	}
	campaign := &model.Campaign{
		OwnerID:      input.RequesterID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		TargetAmount: input.TargetAmount,
		StartDate:    startDate,
		EndDate:      input.EndDate,
	}
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *CampaignService) Update(ctx context.Context, input UpdateCampaignInput) (*model.Campaign, error) {
	method := http.MethodPut
	if input.Partial {
		method = http.MethodPatch
	}

	campaign, err := s.authorize(ctx, method, input.RequesterID, input.CampaignID)
	if err != nil {
		return nil, err
	}
	if !input.Partial && (input.Title == nil || input.Description == nil || input.TargetAmount == nil || input.EndDate == nil) {
		return nil, ErrInvalidInput
	}

	if input.Title != nil {
		campaign.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		campaign.Description = strings.TrimSpace(*input.Description)
	}
	if input.TargetAmount != nil {
		campaign.TargetAmount = *input.TargetAmount
	}
	if input.StartDate != nil {
		campaign.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		campaign.EndDate = *input.EndDate
	}
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, err
	}
	s.invalidate(ctx, campaign.ID)
	return campaign, nil
}

func (s *CampaignService) Delete(ctx context.Context, requesterID, campaignID uint) error {
	if _, err := s.authorize(ctx, http.MethodDelete, requesterID, campaignID); err != nil {
		return err
	}
	if err := s.campaignRepo.Delete(ctx, campaignID); err != nil {
		return err
	}
	s.invalidate(ctx, campaignID)
	return nil
}

// authorize runs the view-level then the object-level permission check and
// returns the campaign loaded from storage.
func (s *CampaignService) authorize(ctx context.Context, method string, requesterID, campaignID uint) (*model.Campaign, error) {
	if !policy.IsAuthenticatedOrReadOnly(method, requesterID) {
		return nil, ErrNotAuthenticated
	}

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if !policy.IsOwnerOrReadOnly(method, requesterID, campaign.OwnerID) {
		return nil, ErrNotOwner
	}
	return campaign, nil
}

// OwnedIDs lists the campaigns of ownerID that may sit in the cache.
func (s *CampaignService) OwnedIDs(ctx context.Context, ownerID uint) ([]uint, error) {
	if s.cache == nil {
		return nil, nil
	}
	campaigns, err := s.campaignRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *CampaignService) Evict(ctx context.Context, ids []uint) {
	for _, id := range ids {
		s.invalidate(ctx, id)
	}
}

func (s *CampaignService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteCampaign(ctx, id); err != nil {
		s.log.WithError(err).WithField("campaign_id", id).Warn("campaign cache invalidation failed")
	}
}

func validateCampaign(c *model.Campaign) error {
	if c.Title == "" || utf8.RuneCountInString(c.Title) > model.CampaignTitleMaxLen {
		return ErrInvalidInput
	}
	if c.Description == "" {
		return ErrInvalidInput
	}
	if c.EndDate.IsZero() || c.StartDate.IsZero() {
		return ErrInvalidInput
	}
	if !model.FitsDecimal(c.TargetAmount, model.CampaignAmountDigits, model.CampaignAmountPlaces) {
		return ErrInvalidAmount
	}
	return nil
}
