package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crowdfund-api/internal/app"
	"crowdfund-api/internal/model"
	"crowdfund-api/internal/transport/http/middleware"
	"crowdfund-api/internal/transport/http/response"
)

type CampaignHandler struct {
	campaignService *app.CampaignService
}

// CampaignRequest is the writable part of a campaign. owner is read-only
// and ignored when sent.
type CampaignRequest struct {
	Title        *string          `json:"title" binding:"omitempty,max=255"`
	Description  *string          `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	StartDate    *model.Date      `json:"start_date"`
	EndDate      *model.Date      `json:"end_date"`
}

type campaignResponse struct {
	ID           uint       `json:"id"`
	Owner        uint       `json:"owner"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetAmount string     `json:"target_amount"`
	StartDate    model.Date `json:"start_date"`
	EndDate      model.Date `json:"end_date"`
}

func NewCampaignHandler(campaignService *app.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService}
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.campaignService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list campaigns failed")
		return
	}
	response.OK(c, campaignViews(campaigns))
}

func (h *CampaignHandler) ListMine(c *gin.Context) {
	campaigns, err := h.campaignService.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err, "list campaigns failed")
		return
	}
	response.OK(c, campaignViews(campaigns))
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	// Payload validation runs before the authentication gate, so an
	// anonymous request with an incomplete body gets 40000, not 40003.
	if req.Title == nil || req.Description == nil || req.TargetAmount == nil || req.EndDate == nil {
		writeError(c, app.ErrInvalidInput, "")
		return
	}

	campaign, err := h.campaignService.Create(c.Request.Context(), app.CreateCampaignInput{
		RequesterID:  middleware.UserID(c),
		Title:        *req.Title,
		Description:  *req.Description,
		TargetAmount: *req.TargetAmount,
		StartDate:    req.StartDate,
		EndDate:      *req.EndDate,
	})
	if err != nil {
		writeCreateError(c, err)
		return
	}
	response.Created(c, campaignView(campaign))
}

func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	campaign, err := h.campaignService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get campaign failed")
		return
	}
	response.OK(c, campaignView(campaign))
}

func (h *CampaignHandler) Update(c *gin.Context) {
	h.update(c, false)
}

func (h *CampaignHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	if err := h.campaignService.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeMutationError(c, err, "delete campaign failed")
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *CampaignHandler) update(c *gin.Context, partial bool) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	campaign, err := h.campaignService.Update(c.Request.Context(), app.UpdateCampaignInput{
		RequesterID:  middleware.UserID(c),
		CampaignID:   id,
		Partial:      partial,
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeMutationError(c, err, "update campaign failed")
		return
	}
	response.OK(c, campaignView(campaign))
}

// writeCreateError reports the authentication gate as a validation error.
func writeCreateError(c *gin.Context, err error) {
	if errors.Is(err, app.ErrNotAuthenticated) {
		response.Error(c, http.StatusBadRequest, response.CodeNotAuthenticated, err.Error())
		return
	}
	writeError(c, err, "create campaign failed")
}

func writeMutationError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, app.ErrNotAuthenticated) {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication credentials were not provided")
		return
	}
	writeError(c, err, fallback)
}

func campaignID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(c, app.ErrCampaignNotFound, "")
		return 0, false
	}
	return uint(id), true
}

func campaignView(campaign *model.Campaign) campaignResponse {
	return campaignResponse{
		ID:           campaign.ID,
		Owner:        campaign.OwnerID,
		Title:        campaign.Title,
		Description:  campaign.Description,
		TargetAmount: campaign.TargetAmount.StringFixed(model.CampaignAmountPlaces),
		StartDate:    campaign.StartDate,
		EndDate:      campaign.EndDate,
	}
}

func campaignViews(campaigns []model.Campaign) []campaignResponse {
	out := make([]campaignResponse, 0, len(campaigns))
	for i := range campaigns {
		out = append(out, campaignView(&campaigns[i]))
	}
	return out
}
