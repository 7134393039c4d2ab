package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DonationAmountDigits = 10
	DonationAmountPlaces = 2
)

type Donation struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user"`
	User       *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CampaignID uint            `gorm:"not null;index" json:"campaign"`
	Campaign   *Campaign       `gorm:"foreignKey:CampaignID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}
