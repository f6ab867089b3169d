package models

import (
	"database/sql/driver"
	"time"

	"github.com/temple-caravans/caravan-api/internal/capacity"
	"gorm.io/gorm"
)

// BusIDList is the set of buses assigned to a caravan, stored as a
// JSON text column.
type BusIDList []uint

func (l BusIDList) Value() (driver.Value, error) {
	if l == nil {
		l = BusIDList{}
	}
	return jsonValue(l)
}

func (l *BusIDList) Scan(src interface{}) error {
	return jsonScan(l, src)
}

func (l BusIDList) Contains(id uint) bool {
	for _, b := range l {
		if b == id {
			return true
		}
	}
	return false
}

// Caravan is one scheduled trip instance. OrdinanceLimits is snapshot
// from the ordinance catalog at creation and never changes afterwards;
// OrdinanceCounts are the live booked counts and are only written by
// the booking engine. Version backs the engine's compare-and-swap:
// every capacity-relevant write bumps it, so two transactions racing
// on the same caravan cannot both commit against the same read.
type Caravan struct {
	gorm.Model
	Name                 string           `json:"name"`
	DepartureAt          time.Time        `json:"departure_at"`
	ReturnAt             time.Time        `json:"return_at"`
	RegistrationOpensAt  *time.Time       `json:"registration_opens_at"`
	RegistrationClosesAt *time.Time       `json:"registration_closes_at"`
	BusIDs               BusIDList        `json:"bus_ids" gorm:"type:text"`
	OrdinanceLimits      capacity.CellMap `json:"ordinance_capacity_limits" gorm:"type:text"`
	OrdinanceCounts      capacity.CellMap `json:"ordinance_capacity_counts" gorm:"type:text"`
	Version              uint             `json:"-"`
}
