package models

import (
	"gorm.io/gorm"
)

// RegistrationHistory is an audit snapshot written in the same
// transaction as every registration mutation.
type RegistrationHistory struct {
	gorm.Model
	RegistrationID     uint   `json:"registration_id" gorm:"index"`
	CaravanID          uint   `json:"caravan_id"`
	ChangedBy          string `json:"changed_by"`
	RegistrationFields `gorm:"embedded"`
}
