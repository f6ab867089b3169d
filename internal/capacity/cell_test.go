package capacity

import (
	"encoding/json"
	"testing"
)

func TestCellFor(t *testing.T) {
	flat := FlatCell(5)
	if got := flat.For(Male); got != 5 {
		t.Errorf("flat cell for M: expected 5, got %d", got)
	}
	if got := flat.For(Female); got != 5 {
		t.Errorf("flat cell for F: expected 5, got %d", got)
	}
	if got := flat.For(""); got != 5 {
		t.Errorf("flat cell for shared: expected 5, got %d", got)
	}

	gendered := GenderedCell(2, 1)
	if got := gendered.For(Male); got != 2 {
		t.Errorf("gendered cell for M: expected 2, got %d", got)
	}
	if got := gendered.For(Female); got != 1 {
		t.Errorf("gendered cell for F: expected 1, got %d", got)
	}
	if got := gendered.For(""); got != 3 {
		t.Errorf("gendered cell for shared: expected M+F=3, got %d", got)
	}
}

func TestCellAddFloorsAtZero(t *testing.T) {
	c := FlatCell(0).Add(Male, -1)
	if c.Flat != 0 {
		t.Errorf("flat decrement below zero: expected 0, got %d", c.Flat)
	}

	g := GenderedCell(0, 0).Add(Female, -1)
	if g.F != 0 {
		t.Errorf("gendered decrement below zero: expected 0, got %d", g.F)
	}
}

func TestCellJSONShapes(t *testing.T) {
	b, err := json.Marshal(FlatCell(4))
	if err != nil {
		t.Fatalf("marshal flat: %v", err)
	}
	if string(b) != "4" {
		t.Errorf("flat cell should serialize as a bare number, got %s", b)
	}

	b, err = json.Marshal(GenderedCell(2, 1))
	if err != nil {
		t.Fatalf("marshal gendered: %v", err)
	}
	if string(b) != `{"M":2,"F":1}` {
		t.Errorf("unexpected gendered cell JSON: %s", b)
	}

	var c Cell
	if err := json.Unmarshal([]byte("7"), &c); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if c.Gendered || c.Flat != 7 {
		t.Errorf("expected flat 7, got %+v", c)
	}

	if err := json.Unmarshal([]byte(`{"M":3,"F":2}`), &c); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if !c.Gendered || c.M != 3 || c.F != 2 {
		t.Errorf("expected gendered {3,2}, got %+v", c)
	}

	if err := json.Unmarshal([]byte(`"nope"`), &c); err == nil {
		t.Error("expected error unmarshalling a string cell")
	}
}

func TestIncrementInitializesFromLimitShape(t *testing.T) {
	counts := CellMap{}

	counts.Increment(1, "9:30-11:00", Male, GenderedCell(2, 1))
	c, ok := counts.Cell(1, "9:30-11:00")
	if !ok {
		t.Fatal("expected count cell to exist after increment")
	}
	if !c.Gendered || c.M != 1 || c.F != 0 {
		t.Errorf("expected gendered {1,0}, got %+v", c)
	}

	counts.Increment(2, "14:00-15:30", Female, FlatCell(10))
	c, _ = counts.Cell(2, "14:00-15:30")
	if c.Gendered || c.Flat != 1 {
		t.Errorf("expected flat 1, got %+v", c)
	}
}

func TestDecrementMissingCellIsNoop(t *testing.T) {
	counts := CellMap{}
	counts.Decrement(9, "9:30-11:00", Male)
	if _, ok := counts.Cell(9, "9:30-11:00"); ok {
		t.Error("decrement must not create a cell")
	}
}

func TestResolveFailsClosed(t *testing.T) {
	limits := CellMap{}
	limits.Set(1, "9:30-11:00", FlatCell(1))

	got := Resolve(limits, CellMap{}, 2, "9:30-11:00", Male)
	if got.Available != 0 || got.MaxCapacity != 0 {
		t.Errorf("unconfigured ordinance should resolve to {0,0}, got %+v", got)
	}
	got = Resolve(limits, CellMap{}, 1, "12:00-13:30", Male)
	if got.Available != 0 || got.MaxCapacity != 0 {
		t.Errorf("unconfigured slot should resolve to {0,0}, got %+v", got)
	}
}

func TestResolvePerGender(t *testing.T) {
	limits := CellMap{}
	limits.Set(1, "9:30-11:00", GenderedCell(2, 1))
	counts := CellMap{}
	counts.Set(1, "9:30-11:00", GenderedCell(2, 0))

	got := Resolve(limits, counts, 1, "9:30-11:00", Male)
	if got.Available != 0 || got.MaxCapacity != 2 {
		t.Errorf("M side: expected {0,2}, got %+v", got)
	}
	got = Resolve(limits, counts, 1, "9:30-11:00", Female)
	if got.Available != 1 || got.MaxCapacity != 1 {
		t.Errorf("F side: expected {1,1}, got %+v", got)
	}
}

func TestResolveAllMatchesSingle(t *testing.T) {
	limits := CellMap{}
	limits.Set(1, "9:30-11:00", GenderedCell(2, 1))
	limits.Set(1, "11:30-13:00", FlatCell(4))
	limits.Set(3, "9:30-11:00", FlatCell(1))
	counts := CellMap{}
	counts.Set(1, "9:30-11:00", GenderedCell(1, 1))
	counts.Set(3, "9:30-11:00", FlatCell(1))

	all := ResolveAll(limits, counts, Male)
	for ordKey, slots := range limits {
		for slot := range slots {
			var id uint
			switch ordKey {
			case "1":
				id = 1
			case "3":
				id = 3
			}
			single := Resolve(limits, counts, id, slot, Male)
			if all[ordKey][slot] != single {
				t.Errorf("batch result for %s/%s = %+v, single = %+v", ordKey, slot, all[ordKey][slot], single)
			}
		}
	}
}

func TestCellMapScanRoundTrip(t *testing.T) {
	m := CellMap{}
	m.Set(1, "9:30-11:00", GenderedCell(2, 1))
	m.Set(2, "14:00-15:30", FlatCell(8))

	v, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var back CellMap
	if err := back.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}

	c, ok := back.Cell(1, "9:30-11:00")
	if !ok || !c.Gendered || c.M != 2 || c.F != 1 {
		t.Errorf("expected gendered {2,1} after round trip, got %+v (ok=%v)", c, ok)
	}
	c, ok = back.Cell(2, "14:00-15:30")
	if !ok || c.Gendered || c.Flat != 8 {
		t.Errorf("expected flat 8 after round trip, got %+v (ok=%v)", c, ok)
	}
}
