package models

import (
	"gorm.io/gorm"
)

// User is an admin account, provisioned on first OAuth login.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
}
