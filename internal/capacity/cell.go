// Package capacity holds the pure capacity arithmetic for ordinance
// sessions: cells that are either a flat number shared by both genders
// or a separately tracked {M, F} pair, and the maps of them kept on a
// caravan for limits and live counts.
package capacity

import (
	"encoding/json"
	"fmt"
)

// Gender selects which side of a gendered cell applies. The empty
// value means shared/mixed.
type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

// Cell is one capacity value at an (ordinance, slot) key. Gendered
// cells track M and F independently; flat cells hold a single number
// that both genders draw from.
type Cell struct {
	Gendered bool
	Flat     int
	M        int
	F        int
}

// FlatCell returns a shared-capacity cell.
func FlatCell(n int) Cell {
	return Cell{Flat: n}
}

// GenderedCell returns a per-gender cell.
func GenderedCell(m, f int) Cell {
	return Cell{Gendered: true, M: m, F: f}
}

// For resolves the cell for one gender. A gendered cell queried with
// the empty gender yields the combined M+F value; a flat cell yields
// its number regardless of gender.
func (c Cell) For(g Gender) int {
	if !c.Gendered {
		return c.Flat
	}
	switch g {
	case Male:
		return c.M
	case Female:
		return c.F
	default:
		return c.M + c.F
	}
}

// Zero returns an empty cell of the same shape. Used to initialize a
// missing count cell from its limit cell.
func (c Cell) Zero() Cell {
	return Cell{Gendered: c.Gendered}
}

// Add changes the cell by delta on the side g selects. The result
// never goes below zero, so a double release cannot drive a count
// negative.
func (c Cell) Add(g Gender, delta int) Cell {
	if !c.Gendered {
		c.Flat = floor(c.Flat + delta)
		return c
	}
	switch g {
	case Female:
		c.F = floor(c.F + delta)
	default:
		c.M = floor(c.M + delta)
	}
	return c
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// genderedCellJSON is the wire shape of a gendered cell. Flat cells
// are stored as a bare number.
type genderedCellJSON struct {
	M int `json:"M"`
	F int `json:"F"`
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Gendered {
		return json.Marshal(genderedCellJSON{M: c.M, F: c.F})
	}
	return json.Marshal(c.Flat)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Cell{Flat: n}
		return nil
	}
	var g genderedCellJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("capacity cell must be a number or an {M,F} object: %w", err)
	}
	*c = Cell{Gendered: true, M: g.M, F: g.F}
	return nil
}
