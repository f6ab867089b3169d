package capacity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// CellMap maps ordinance id -> slot label -> cell. Stored as a JSON
// text column on the caravan; the same type serves both the limits
// snapshot and the live counts.
type CellMap map[string]map[string]Cell

// OrdinanceKey renders an ordinance id the way CellMap keys it.
func OrdinanceKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Cell looks up one cell.
func (m CellMap) Cell(ordinanceID uint, slot string) (Cell, bool) {
	slots, ok := m[OrdinanceKey(ordinanceID)]
	if !ok {
		return Cell{}, false
	}
	c, ok := slots[slot]
	return c, ok
}

// Set stores one cell, creating the slot map if needed.
func (m CellMap) Set(ordinanceID uint, slot string, c Cell) {
	key := OrdinanceKey(ordinanceID)
	if m[key] == nil {
		m[key] = make(map[string]Cell)
	}
	m[key][slot] = c
}

// Increment adds one booking to the count cell at (ordinanceID, slot)
// on the side g selects. A missing count cell is initialized to zero
// in the shape of limit, which the caller reads from the caravan's
// limits snapshot. The map is mutated in place.
func (m CellMap) Increment(ordinanceID uint, slot string, g Gender, limit Cell) {
	c, ok := m.Cell(ordinanceID, slot)
	if !ok {
		c = limit.Zero()
	}
	m.Set(ordinanceID, slot, c.Add(g, 1))
}

// Decrement releases one booking, flooring at zero. A missing cell is
// left missing: there is nothing to release.
func (m CellMap) Decrement(ordinanceID uint, slot string, g Gender) {
	c, ok := m.Cell(ordinanceID, slot)
	if !ok {
		return
	}
	m.Set(ordinanceID, slot, c.Add(g, -1))
}

// Clone deep-copies the map so a transaction can mutate counts without
// touching the loaded caravan row until commit.
func (m CellMap) Clone() CellMap {
	out := make(CellMap, len(m))
	for ord, slots := range m {
		cp := make(map[string]Cell, len(slots))
		for slot, c := range slots {
			cp[slot] = c
		}
		out[ord] = cp
	}
	return out
}

func (m CellMap) Value() (driver.Value, error) {
	if m == nil {
		m = CellMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *CellMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = CellMap{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into CellMap", src)
	}
}
