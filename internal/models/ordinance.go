package models

import (
	"database/sql/driver"

	"github.com/temple-caravans/caravan-api/internal/capacity"
	"gorm.io/gorm"
)

// OrdinanceSession is one bookable time window of an ordinance in the
// catalog. Gender empty means the capacity is shared; sessions with
// gender M or F for the same slot merge into one per-gender cell when
// a caravan snapshots the catalog.
type OrdinanceSession struct {
	Slot        string          `json:"slot"`
	MaxCapacity int             `json:"max_capacity"`
	Gender      capacity.Gender `json:"gender,omitempty"`
}

type OrdinanceSessions []OrdinanceSession

func (s OrdinanceSessions) Value() (driver.Value, error) {
	if s == nil {
		s = OrdinanceSessions{}
	}
	return jsonValue(s)
}

func (s *OrdinanceSessions) Scan(src interface{}) error {
	return jsonScan(s, src)
}

// Ordinance is a catalog entry (e.g. "Baptistry"). Read-only input to
// caravan creation; the booking engine never touches it.
type Ordinance struct {
	gorm.Model
	Name     string            `json:"name"`
	Sessions OrdinanceSessions `json:"sessions" gorm:"type:text"`
}
