package placement

import "math"

// #region detect-contradictions

// DetectContradictions reports whether the history implies a preference cycle.
//
// Every worse answer at index i yields an edge from its comparison item to the
// comparison item of each better answer before i: the later item beat the new
// item, which beat the earlier one. A cycle in that graph (a self-loop
// included) means no total order satisfies all answers. Only cycles reachable
// through recorded edges are found.
func DetectContradictions(history []ComparisonRecord) bool {
	edges := make(map[ItemID][]ItemID)
	for i, rec := range history {
		if rec.Result != ResultWorse {
			continue
		}
		for _, earlier := range history[:i] {
			if earlier.Result == ResultBetter {
				edges[rec.ComparisonID] = append(edges[rec.ComparisonID], earlier.ComparisonID)
			}
		}
	}

	const (
		unvisited = iota
		onStack
		done
	)
	mark := make(map[ItemID]int)

	var visit func(ItemID) bool
	visit = func(n ItemID) bool {
		mark[n] = onStack
		for _, next := range edges[n] {
			switch mark[next] {
			case onStack:
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		mark[n] = done
		return false
	}

	// Walk in history order so the search is deterministic.
	for _, rec := range history {
		if mark[rec.ComparisonID] == unvisited && visit(rec.ComparisonID) {
			return true
		}
	}
	return false
}

// #endregion

// #region resolve-final-position

// ResolveFinalPosition turns a finished (or exhausted) placement into the
// 1-based rank the new item is inserted at. Rules apply in priority order;
// the result always lies in [1, existingCount+1].
func ResolveFinalPosition(st State) int {
	n := st.ExistingCount()
	return clamp(resolve(st, n), 1, n+1)
}

func resolve(st State, n int) int {
	b := st.Bounds
	t := tallyResults(st.History)

	// 1. Bisection already pinned the position.
	if b.Lower == b.Upper {
		return b.Lower
	}

	// 2. Small tiers resolve from the answers alone.
	if n <= 3 {
		return resolveSmallTier(st, n, t)
	}

	// 3. Inconsistent answers: place by win ratio inside the current bounds.
	if DetectContradictions(st.History) {
		if t.decisive() == 0 {
			return b.Mid()
		}
		return b.Lower + int(math.Floor(float64(b.Upper-b.Lower)*(1-t.winRatio())))
	}

	path := decisivePath(st.History)

	// 4. Leading wins with no losses: commit to #1 only when confirmed.
	if b.Lower == 1 && leadingRun(path, ResultBetter) >= 2 && t.worse == 0 {
		if answeredAtRank(st, 1, ResultBetter) || b.Upper <= 2 {
			return 1
		}
	}

	// 5. Leading losses with no wins, pressed against the end of the list.
	if b.Upper == n+1 && leadingRun(path, ResultWorse) >= 3 && t.better == 0 {
		if answeredAtRank(st, n, ResultWorse) || b.Lower >= n {
			return n + 1
		}
	}

	// 6. Strong or weak starts that later wavered.
	if hasPrefix(path, []Result{won, won}) && containsResult(path[2:], ResultWorse) {
		return clamp(min(b.Lower+1, b.Upper-1), b.Lower, b.Upper)
	}
	if hasPrefix(path, []Result{lost, lost}) && containsResult(path[2:], ResultBetter) {
		return clamp(max(b.Upper-1, b.Lower+1), b.Lower, b.Upper)
	}

	// 7. Midpoint of what is left.
	return b.Mid()
}

// resolveSmallTier handles tiers of at most three existing items.
// All-skipped placements land on the midpoint of the bounds.
func resolveSmallTier(st State, n int, t tally) int {
	if t.decisive() == 0 {
		return st.Bounds.Mid()
	}

	if n <= 1 {
		for _, rec := range st.History {
			switch rec.Result {
			case ResultBetter:
				return 1
			case ResultWorse:
				return n + 1
			}
		}
	}

	ratio := t.winRatio()
	switch {
	case ratio >= 0.67:
		return 1
	case ratio >= 0.33:
		return ceilDiv(n+1, 2)
	default:
		return n + 1
	}
}

// #endregion

// #region tally

type tally struct {
	better, worse, skipped int
}

func tallyResults(history []ComparisonRecord) tally {
	var t tally
	for _, rec := range history {
		switch rec.Result {
		case ResultBetter:
			t.better++
		case ResultWorse:
			t.worse++
		case ResultSkipped:
			t.skipped++
		}
	}
	return t
}

func (t tally) decisive() int {
	return t.better + t.worse
}

// winRatio is better/(better+worse); skips are excluded.
func (t tally) winRatio() float64 {
	if t.decisive() == 0 {
		return 0
	}
	return float64(t.better) / float64(t.decisive())
}

// #endregion

// #region helpers

// leadingRun counts how many times r repeats at the start of path.
func leadingRun(path []Result, r Result) int {
	n := 0
	for _, x := range path {
		if x != r {
			break
		}
		n++
	}
	return n
}

// answeredAtRank reports whether the history holds answer r against the item at rank.
func answeredAtRank(st State, rank int, r Result) bool {
	for _, rec := range st.History {
		if rec.Result == r && st.Ranks[rec.ComparisonID] == rank {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

// #endregion
