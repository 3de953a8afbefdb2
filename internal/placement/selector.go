package placement

import (
	"fmt"
	"math"
)

// #region bands

// band is an inclusive percentile range over rank positions, 0 = best, 1 = worst.
type band struct {
	lo, hi float64
}

var (
	bandTop5        = band{0, 0.05}
	bandTop10       = band{0, 0.10}
	bandNearTop     = band{0.05, 0.15}
	bandUpperMiddle = band{0.10, 0.25}
	bandUpperSpread = band{0.15, 0.35}
	bandLowerMiddle = band{0.60, 0.75}
	bandLowerSpread = band{0.65, 0.85}
	bandNearBottom  = band{0.85, 0.95}
	bandBottom10    = band{0.90, 1}
	bandBottom5     = band{0.95, 1}
)

const percentileSlack = 1e-9

// boundary names an explicit edge-of-list test.
type boundary int

const (
	boundaryNone boundary = iota
	boundaryTop
	boundaryBottom
)

// pathRule routes a history prefix to a boundary test and then to bands,
// tried in order until one yields a candidate.
type pathRule struct {
	prefix   []Result
	boundary boundary
	bands    []band
}

// Shorthands for rule prefixes.
const (
	won  = ResultBetter
	lost = ResultWorse
)

// thirdRules apply to the third comparison and match the first two answers exactly.
var thirdRules = []pathRule{
	{prefix: []Result{won, won}, boundary: boundaryTop, bands: []band{bandTop5, bandTop10}},
	{prefix: []Result{won, lost}, bands: []band{bandUpperMiddle}},
	{prefix: []Result{lost, won}, bands: []band{bandLowerMiddle}},
	{prefix: []Result{lost, lost}, boundary: boundaryBottom, bands: []band{bandBottom5, bandBottom10}},
}

// laterRules apply from the fourth comparison on, matched against the
// decisive (non-skipped) answers. First match wins.
var laterRules = []pathRule{
	{prefix: []Result{won, won, won}, boundary: boundaryTop, bands: []band{bandTop5, bandTop10}},
	{prefix: []Result{lost, lost, lost}, boundary: boundaryBottom, bands: []band{bandBottom5, bandBottom10}},
	{prefix: []Result{won, won, lost}, bands: []band{bandNearTop}},
	{prefix: []Result{lost, lost, won}, bands: []band{bandNearBottom}},
	{prefix: []Result{won, lost}, bands: []band{bandUpperSpread}},
	{prefix: []Result{lost, won}, bands: []band{bandLowerSpread}},
	{prefix: []Result{won, won}, boundary: boundaryTop, bands: []band{bandTop10}},
	{prefix: []Result{lost, lost}, boundary: boundaryBottom, bands: []band{bandBottom10}},
}

// #endregion

// #region select-next

// SelectNext picks the next existing item to compare the new item against.
// It returns false when the placement is complete or no candidate remains.
//
// available must hold only ranked existing items; passing the item being
// placed, or an id missing from the rank map, panics.
func SelectNext(st State, available []ItemID) (ItemID, bool) {
	pool := make([]ItemID, 0, len(available))
	for _, id := range available {
		if id == st.ItemID {
			panic(fmt.Sprintf("placement: candidate pool contains the item being placed (%s)", id))
		}
		if _, ok := st.Ranks[id]; !ok {
			panic(fmt.Sprintf("placement: candidate %s has no rank in tier %s", id, st.Tier))
		}
		if st.Compared[id] {
			continue
		}
		pool = append(pool, id)
	}
	if st.IsComplete || len(pool) == 0 {
		return "", false
	}
	sortByRank(pool, st.Ranks)

	p := picker{st: st, pool: pool, n: st.ExistingCount()}

	var (
		id ItemID
		ok bool
	)
	switch st.CompletedComparisons {
	case 0:
		id, ok = p.median()
	case 1:
		id, ok = p.secondComparison()
	case 2:
		id, ok = p.thirdComparison()
	default:
		id, ok = p.laterComparison()
	}
	if ok {
		return id, true
	}

	if id, ok := p.closestToMidpoint(); ok {
		return id, true
	}
	return pool[0], true
}

// #endregion

// #region picker

// picker holds one selection call's sorted candidate pool.
type picker struct {
	st   State
	pool []ItemID
	n    int
}

func (p picker) median() (ItemID, bool) {
	return p.pool[len(p.pool)/2], true
}

// secondComparison tests the boundary on the side the first answer pointed to.
func (p picker) secondComparison() (ItemID, bool) {
	if len(p.st.History) < 1 {
		return "", false
	}
	switch p.st.History[0].Result {
	case ResultBetter:
		if id, ok := p.boundaryItem(boundaryTop); ok {
			return id, true
		}
		return p.pool[0], true
	case ResultWorse:
		if id, ok := p.boundaryItem(boundaryBottom); ok {
			return id, true
		}
		return p.pool[len(p.pool)-1], true
	}
	return "", false
}

func (p picker) thirdComparison() (ItemID, bool) {
	if len(p.st.History) < 2 {
		return "", false
	}
	path := []Result{p.st.History[0].Result, p.st.History[1].Result}
	for _, rule := range thirdRules {
		if equalResults(path, rule.prefix) {
			return p.applyRule(rule)
		}
	}
	return "", false
}

func (p picker) laterComparison() (ItemID, bool) {
	path := decisivePath(p.st.History)

	if p.st.Bounds.Lower <= 2 && containsResult(path, ResultBetter) {
		if id, ok := p.boundaryItem(boundaryTop); ok {
			return id, true
		}
	}
	if p.st.Bounds.Upper >= p.n && containsResult(path, ResultWorse) {
		if id, ok := p.boundaryItem(boundaryBottom); ok {
			return id, true
		}
	}

	for _, rule := range laterRules {
		if hasPrefix(path, rule.prefix) {
			return p.applyRule(rule)
		}
	}
	return "", false
}

// applyRule tries the rule's boundary test first, then each band in order.
func (p picker) applyRule(rule pathRule) (ItemID, bool) {
	if rule.boundary != boundaryNone {
		if id, ok := p.boundaryItem(rule.boundary); ok {
			return id, true
		}
	}
	for _, b := range rule.bands {
		if id, ok := p.bandMidpoint(b); ok {
			return id, true
		}
	}
	return "", false
}

// boundaryItem returns the uncompared item holding exactly rank 1 (top)
// or rank existingCount (bottom).
func (p picker) boundaryItem(b boundary) (ItemID, bool) {
	rank := 1
	if b == boundaryBottom {
		rank = p.n
	}
	id, ok := p.st.Ranks.At(rank)
	if !ok || p.st.Compared[id] {
		return "", false
	}
	return id, true
}

// bandMidpoint returns the element at floor(len/2) of the pool items whose
// rank percentile falls inside b.
func (p picker) bandMidpoint(b band) (ItemID, bool) {
	var in []ItemID
	for _, id := range p.pool {
		pct := p.percentile(p.st.Ranks[id])
		if pct >= b.lo-percentileSlack && pct <= b.hi+percentileSlack {
			in = append(in, id)
		}
	}
	if len(in) == 0 {
		return "", false
	}
	return in[len(in)/2], true
}

// percentile maps a rank onto [0,1]: 0 for rank 1, 1 for rank existingCount.
func (p picker) percentile(rank int) float64 {
	if p.n <= 1 {
		return 0
	}
	pct := float64(rank-1) / float64(p.n-1)
	return math.Min(1, math.Max(0, pct))
}

// closestToMidpoint targets ceil((lower+upper)/2): the item at that exact
// rank if uncompared, else the uncompared item with the nearest rank.
func (p picker) closestToMidpoint() (ItemID, bool) {
	target := p.st.Bounds.Mid()
	best := ItemID("")
	bestDist := math.MaxInt
	for _, id := range p.pool {
		d := p.st.Ranks[id] - target
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, best != ""
}

// #endregion

// #region path-helpers

// decisivePath drops skipped answers from the history.
func decisivePath(history []ComparisonRecord) []Result {
	path := make([]Result, 0, len(history))
	for _, rec := range history {
		if rec.Result != ResultSkipped {
			path = append(path, rec.Result)
		}
	}
	return path
}

func hasPrefix(path, prefix []Result) bool {
	if len(path) < len(prefix) {
		return false
	}
	return equalResults(path[:len(prefix)], prefix)
}

func equalResults(a, b []Result) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsResult(path []Result, r Result) bool {
	for _, x := range path {
		if x == r {
			return true
		}
	}
	return false
}

// #endregion
