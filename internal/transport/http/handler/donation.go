package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crowdfund-api/internal/app"
	"crowdfund-api/internal/model"
	"crowdfund-api/internal/transport/http/middleware"
	"crowdfund-api/internal/transport/http/response"
)

type DonationHandler struct {
	donationService *app.DonationService
}

type PledgeRequest struct {
	Campaign uint             `json:"campaign" binding:"required"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
}

type donationResponse struct {
	ID        uint   `json:"id,omitempty"`
	User      uint   `json:"user"`
	Campaign  uint   `json:"campaign"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

func NewDonationHandler(donationService *app.DonationService) *DonationHandler {
	return &DonationHandler{donationService: donationService}
}

// Pledge queues a donation and answers 202; the row appears once the
// worker has stored it.
func (h *DonationHandler) Pledge(c *gin.Context) {
	var req PledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	donation, err := h.donationService.Pledge(c.Request.Context(), app.PledgeInput{
		UserID:     middleware.UserID(c),
		CampaignID: req.Campaign,
		Amount:     *req.Amount,
	})
	if err != nil {
		writeError(c, err, "pledge failed")
		return
	}
	response.Accepted(c, donationView(donation))
}

func (h *DonationHandler) ListByCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.donationService.ListByCampaign(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err, "list donations failed")
		return
	}

	donations := make([]donationResponse, 0, len(result.Donations))
	for i := range result.Donations {
		donations = append(donations, donationView(&result.Donations[i]))
	}
	response.OK(c, gin.H{
		"campaign":  result.CampaignID,
		"total":     result.Total.StringFixed(model.DonationAmountPlaces),
		"donations": donations,
	})
}

func donationView(d *model.Donation) donationResponse {
	return donationResponse{
		ID:        d.ID,
		User:      d.UserID,
		Campaign:  d.CampaignID,
		Amount:    d.Amount.StringFixed(model.DonationAmountPlaces),
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
