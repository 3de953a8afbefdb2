package placement

import "math"

// #region strategy-thresholds

// strategyThresholds maps the largest existing count each strategy covers.
// Counts above the last entry use StrategyFullZone.
var strategyThresholds = []struct {
	maxCount int
	strategy Strategy
}{
	{1, StrategyDirect},
	{4, StrategySimple},
	{8, StrategyTwoZone},
}

// budgetThresholds maps the largest existing count to a comparison budget.
// Counts above the last entry get fullBudget.
var budgetThresholds = []struct {
	maxCount int
	budget   int
}{
	{0, 0},
	{1, 1},
	{2, 2},
	{5, 3},
	{10, 4},
	{20, 5},
}

const fullBudget = 6

// #endregion

// #region select-strategy

// SelectStrategy picks the placement strategy for a tier holding existingCount items.
func SelectStrategy(existingCount int) Strategy {
	for _, t := range strategyThresholds {
		if existingCount <= t.maxCount {
			return t.strategy
		}
	}
	return StrategyFullZone
}

// MaxComparisons is the number of user-facing comparisons a placement may ask.
// The budget stays flat past 20 items since each comparison interrupts the user.
func MaxComparisons(existingCount int) int {
	for _, t := range budgetThresholds {
		if existingCount <= t.maxCount {
			return t.budget
		}
	}
	return fullBudget
}

// #endregion

// #region define-zones

// DefineZones computes the zone spans for a collection of existingCount items.
func DefineZones(existingCount int, s Strategy) Zones {
	full := Span{Start: 1, End: existingCount + 1}

	switch s {
	case StrategyTwoZone:
		mid := ceilDiv(existingCount, 2)
		upper := Span{Start: 1, End: mid}
		lower := Span{Start: mid + 1, End: existingCount + 1}
		return Zones{
			Top:         upper,
			UpperMiddle: upper,
			Middle:      Span{Start: mid, End: mid},
			LowerMiddle: lower,
			Bottom:      lower,
		}

	case StrategyFullZone:
		n := float64(existingCount)
		topEnd := int(math.Max(2, math.Ceil(n*0.2)))
		p40 := int(math.Ceil(n * 0.4))
		p60 := int(math.Ceil(n * 0.6))
		p80 := int(math.Ceil(n * 0.8))
		if p40 < topEnd {
			p40 = topEnd
		}
		return Zones{
			Top:         Span{Start: 1, End: topEnd},
			UpperMiddle: Span{Start: topEnd + 1, End: p40},
			Middle:      Span{Start: p40 + 1, End: p60},
			LowerMiddle: Span{Start: p60 + 1, End: p80},
			Bottom:      Span{Start: p80 + 1, End: existingCount + 1},
		}
	}

	return Zones{Top: full, UpperMiddle: full, Middle: full, LowerMiddle: full, Bottom: full}
}

// InitialZone classifies the starting position of a placement.
// Full-zone placements always start from the middle regardless of position.
func InitialZone(s Strategy, initialPosition, existingCount int) Zone {
	if s == StrategyTwoZone {
		if initialPosition <= ceilDiv(existingCount, 2) {
			return ZoneTop
		}
		return ZoneBottom
	}
	return ZoneMiddle
}

// #endregion

// #region adjust-zone

// adjustZone moves the tracked zone one step after a decisive answer.
func adjustZone(s Strategy, current Zone, r Result) Zone {
	if r == ResultSkipped {
		return current
	}

	switch s {
	case StrategyTwoZone:
		if r == ResultBetter {
			return ZoneTop
		}
		return ZoneBottom

	case StrategyFullZone:
		idx := zoneIndex(current)
		if r == ResultBetter && idx > 0 {
			idx--
		}
		if r == ResultWorse && idx < len(zoneOrder)-1 {
			idx++
		}
		return zoneOrder[idx]
	}

	return current
}

func zoneIndex(z Zone) int {
	for i, o := range zoneOrder {
		if o == z {
			return i
		}
	}
	return 2 // middle
}

// #endregion
