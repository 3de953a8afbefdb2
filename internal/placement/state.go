package placement

import (
	"sort"
	"time"
)

// #region new-state

// NewState builds the starting state for placing itemID into a tier that
// already holds existingCount ranked items. ranks is snapshotted; later
// changes to the caller's map do not affect the placement.
func NewState(itemID ItemID, tier Tier, existingCount int, ranks RankMap) State {
	strategy := SelectStrategy(existingCount)
	maxComparisons := MaxComparisons(existingCount)
	initialPosition := ceilDiv(existingCount+1, 2)
	zone := InitialZone(strategy, initialPosition, existingCount)

	snapshot := make(RankMap, len(ranks))
	for id, r := range ranks {
		snapshot[id] = r
	}

	return State{
		ItemID:               itemID,
		Tier:                 tier,
		Strategy:             strategy,
		CurrentZone:          zone,
		Zones:                DefineZones(existingCount, strategy),
		Compared:             map[ItemID]bool{},
		CompletedComparisons: 0,
		MaxComparisons:       maxComparisons,
		IsComplete:           maxComparisons == 0,
		Bounds:               Bounds{Lower: 1, Upper: existingCount + 1},
		Ranks:                snapshot,
		History:              nil,
		Metrics: Metrics{
			StartedAt:    time.Now().UTC(),
			ZonesVisited: []Zone{zone},
		},
	}
}

// #endregion

// #region available

// Available lists the ranked items that have not been compared yet,
// ordered best rank first.
func Available(st State) []ItemID {
	out := make([]ItemID, 0, len(st.Ranks))
	for id := range st.Ranks {
		if id == st.ItemID || st.Compared[id] {
			continue
		}
		out = append(out, id)
	}
	sortByRank(out, st.Ranks)
	return out
}

// sortByRank orders ids by rank ascending, ties broken by id.
func sortByRank(ids []ItemID, ranks RankMap) {
	sort.SliceStable(ids, func(i, j int) bool {
		ri, rj := ranks[ids[i]], ranks[ids[j]]
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
}

// #endregion

// #region clone

// clone copies the mutable parts of st so the result can be changed freely.
// Ranks is shared: it is never written after NewState.
func (s State) clone() State {
	c := s

	c.Compared = make(map[ItemID]bool, len(s.Compared)+1)
	for id, v := range s.Compared {
		c.Compared[id] = v
	}

	c.History = make([]ComparisonRecord, len(s.History), len(s.History)+1)
	copy(c.History, s.History)

	c.Metrics.ComparedAt = append([]time.Time(nil), s.Metrics.ComparedAt...)
	c.Metrics.ZonesVisited = append([]Zone(nil), s.Metrics.ZonesVisited...)

	return c
}

// #endregion
