package placement

import (
	"fmt"
	"time"
)

// #region apply-result

// ApplyResult records the answer for comparisonID and returns the next state.
// st is left untouched.
//
// A better answer caps Upper at the comparison item's rank; a worse answer
// raises Lower past it. Each bound is clamped against the other so that a
// contradictory answer narrows the range to a point instead of inverting it.
// Skipped answers consume budget but leave bounds and zone alone.
//
// comparisonID must be present in the rank map and must not be the item
// being placed; otherwise ApplyResult panics. Re-comparing an item already in
// History is accepted: it spends budget, appends a second record and clamps
// the bounds like any other answer, which is how contradictions arise.
func ApplyResult(st State, comparisonID ItemID, r Result) State {
	if comparisonID == st.ItemID {
		panic(fmt.Sprintf("placement: item %s compared against itself", comparisonID))
	}
	position, ok := st.Ranks[comparisonID]
	if !ok {
		panic(fmt.Sprintf("placement: comparison %s has no rank in tier %s", comparisonID, st.Tier))
	}
	if !r.Valid() {
		panic(fmt.Sprintf("placement: unknown comparison result %q", r))
	}

	next := st.clone()

	switch r {
	case ResultBetter:
		upper := min(next.Bounds.Upper, position)
		next.Bounds.Upper = max(upper, next.Bounds.Lower)
	case ResultWorse:
		lower := max(next.Bounds.Lower, position+1)
		next.Bounds.Lower = min(lower, next.Bounds.Upper)
	}

	if r != ResultSkipped {
		next.CurrentZone = adjustZone(next.Strategy, next.CurrentZone, r)
		next.Metrics.ZonesVisited = append(next.Metrics.ZonesVisited, next.CurrentZone)
	}

	next.Compared[comparisonID] = true
	next.History = append(next.History, ComparisonRecord{ComparisonID: comparisonID, Result: r})
	next.CompletedComparisons++
	next.Metrics.ComparedAt = append(next.Metrics.ComparedAt, time.Now().UTC())

	next.IsComplete = next.CompletedComparisons >= next.MaxComparisons || len(Available(next)) == 0

	return next
}

// #endregion
