package capacity

// Availability reports how many bookings remain for one gender at one
// (ordinance, slot) key.
type Availability struct {
	Available   int `json:"available"`
	MaxCapacity int `json:"max_capacity"`
}

// Resolve answers "how many slots remain" for a gender by combining a
// caravan's limits snapshot with its live counts. A key absent from
// the limits is not configured and therefore not bookable: the result
// fails closed to {0, 0}.
func Resolve(limits, counts CellMap, ordinanceID uint, slot string, g Gender) Availability {
	limit, ok := limits.Cell(ordinanceID, slot)
	if !ok {
		return Availability{}
	}
	max := limit.For(g)
	used := 0
	if count, ok := counts.Cell(ordinanceID, slot); ok {
		used = count.For(g)
	}
	avail := max - used
	if avail < 0 {
		avail = 0
	}
	return Availability{Available: avail, MaxCapacity: max}
}

// ResolveAll resolves every configured slot of every ordinance for one
// gender. Each entry equals what Resolve would return for that key.
func ResolveAll(limits, counts CellMap, g Gender) map[string]map[string]Availability {
	out := make(map[string]map[string]Availability, len(limits))
	for ordKey, slots := range limits {
		perSlot := make(map[string]Availability, len(slots))
		for slot, limit := range slots {
			max := limit.For(g)
			used := 0
			if cs, ok := counts[ordKey]; ok {
				if c, ok := cs[slot]; ok {
					used = c.For(g)
				}
			}
			avail := max - used
			if avail < 0 {
				avail = 0
			}
			perSlot[slot] = Availability{Available: avail, MaxCapacity: max}
		}
		out[ordKey] = perSlot
	}
	return out
}
