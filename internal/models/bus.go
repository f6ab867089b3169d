package models

import (
	"gorm.io/gorm"
)

// Bus is a fixed-capacity vehicle, reusable across caravans.
// Occupancy is never stored here; it is always computed from active
// registrations.
type Bus struct {
	gorm.Model
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}
