package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CampaignTitleMaxLen  = 255
	CampaignAmountDigits = 12
	CampaignAmountPlaces = 2
)

type Campaign struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OwnerID      uint            `gorm:"not null;index" json:"owner"`
	Owner        *User           `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	Description  string          `gorm:"type:text;not null" json:"description"`
	TargetAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	StartDate    Date            `gorm:"type:date;not null" json:"start_date"`
	EndDate      Date            `gorm:"type:date;not null" json:"end_date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FitsDecimal reports whether d can be stored in a DECIMAL(digits, places)
// column without rounding.
func FitsDecimal(d decimal.Decimal, digits, places int) bool {
	if !d.Equal(d.Truncate(int32(places))) {
		return false
	}
	limit := decimal.New(1, int32(digits-places))
	return d.Abs().LessThan(limit)
}
