package model

import (
	"regexp"
	"time"
)

// PhonePattern accepts local mobile numbers: "01" followed by nine digits.
var PhonePattern = regexp.MustCompile(`^01[0-9]{9}$`)

type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string       `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Phone        string       `gorm:"size:11;not null;uniqueIndex" json:"phone"`
	FirstName    string       `gorm:"size:150" json:"first_name"`
	LastName     string       `gorm:"size:150" json:"last_name"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	Groups       []Group      `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE" json:"-"`
	Permissions  []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Group struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;not null;uniqueIndex" json:"name"`
}

type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Codename string `gorm:"size:100;not null;uniqueIndex" json:"codename"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

func ValidPhone(phone string) bool {
	return PhonePattern.MatchString(phone)
}
