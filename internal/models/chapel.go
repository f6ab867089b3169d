package models

import (
	"gorm.io/gorm"
)

// Chapel is the origin unit a participant registers from.
type Chapel struct {
	gorm.Model
	Name string `json:"name"`
	City string `json:"city"`
}
