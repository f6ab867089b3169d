package booking

import (
	"github.com/temple-caravans/caravan-api/internal/capacity"
	"github.com/temple-caravans/caravan-api/internal/models"
)

// SnapshotLimits builds a caravan's capacity limits from the
// ordinance catalog at creation time. Sessions with no gender become
// flat cells; M and F sessions for the same slot merge into one
// per-gender cell. The snapshot is immutable afterwards: later
// catalog edits never change an existing caravan.
func SnapshotLimits(ordinances []models.Ordinance) capacity.CellMap {
	limits := capacity.CellMap{}
	for _, o := range ordinances {
		for _, s := range o.Sessions {
			switch s.Gender {
			case capacity.Male, capacity.Female:
				cell, ok := limits.Cell(o.ID, s.Slot)
				if !ok || !cell.Gendered {
					cell = capacity.GenderedCell(0, 0)
				}
				if s.Gender == capacity.Male {
					cell.M = s.MaxCapacity
				} else {
					cell.F = s.MaxCapacity
				}
				limits.Set(o.ID, s.Slot, cell)
			default:
				limits.Set(o.ID, s.Slot, capacity.FlatCell(s.MaxCapacity))
			}
		}
	}
	return limits
}
