package placement

import "time"

// #region identifiers

// ItemID identifies a ranked item (a course review) within a tier.
type ItemID string

// Tier is the sentiment bucket an item is ranked within (e.g. "liked").
type Tier string

// #endregion

// #region strategy

// Strategy selects how many comparisons a placement may use and how
// candidates are sampled. Fixed for the lifetime of one placement.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategySimple   Strategy = "simple"
	StrategyTwoZone  Strategy = "two_zone"
	StrategyFullZone Strategy = "full_zone"
)

// Strategies returns every strategy, smallest budget first.
func Strategies() []Strategy {
	return []Strategy{StrategyDirect, StrategySimple, StrategyTwoZone, StrategyFullZone}
}

// #endregion

// #region zone

// Zone is a coarse percentile band of the ranked list. Zones are tracked
// for telemetry and never gate candidate selection.
type Zone string

const (
	ZoneTop         Zone = "top"
	ZoneUpperMiddle Zone = "upper_middle"
	ZoneMiddle      Zone = "middle"
	ZoneLowerMiddle Zone = "lower_middle"
	ZoneBottom      Zone = "bottom"
)

// zoneOrder lists zones from best to worst.
var zoneOrder = []Zone{ZoneTop, ZoneUpperMiddle, ZoneMiddle, ZoneLowerMiddle, ZoneBottom}

// Span is a rank-position range. End may be one past the last valid position.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Zones maps every zone to its span for one collection size.
type Zones struct {
	Top         Span `json:"top"`
	UpperMiddle Span `json:"upper_middle"`
	Middle      Span `json:"middle"`
	LowerMiddle Span `json:"lower_middle"`
	Bottom      Span `json:"bottom"`
}

// Get returns the span for z. Unknown zones return the zero Span.
func (z Zones) Get(zone Zone) Span {
	switch zone {
	case ZoneTop:
		return z.Top
	case ZoneUpperMiddle:
		return z.UpperMiddle
	case ZoneMiddle:
		return z.Middle
	case ZoneLowerMiddle:
		return z.LowerMiddle
	case ZoneBottom:
		return z.Bottom
	}
	return Span{}
}

// #endregion

// #region bounds

// Bounds is the range of final positions still consistent with the answers
// so far. 1 <= Lower <= Upper <= existingCount+1 always holds.
type Bounds struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Mid returns ceil((Lower+Upper)/2).
func (b Bounds) Mid() int {
	return ceilDiv(b.Lower+b.Upper, 2)
}

// #endregion

// #region result

// Result is the user's answer to one "which do you prefer" prompt.
type Result string

const (
	// ResultBetter means the new item beat the comparison item.
	ResultBetter Result = "better"
	// ResultWorse means the comparison item beat the new item.
	ResultWorse Result = "worse"
	// ResultSkipped means the user declined to answer.
	ResultSkipped Result = "skipped"
)

// Valid reports whether r is one of the three known answers.
func (r Result) Valid() bool {
	return r == ResultBetter || r == ResultWorse || r == ResultSkipped
}

// ComparisonRecord is one answered (or skipped) comparison.
type ComparisonRecord struct {
	ComparisonID ItemID `json:"comparison_id"`
	Result       Result `json:"result"`
}

// #endregion

// #region rank-map

// RankMap holds the current 1-based rank of every existing item in a tier.
// Ranks need not be contiguous but must be unique per tier.
type RankMap map[ItemID]int

// Rank returns the rank of id.
func (m RankMap) Rank(id ItemID) (int, bool) {
	r, ok := m[id]
	return r, ok
}

// At returns the item holding exactly rank r.
func (m RankMap) At(r int) (ItemID, bool) {
	for id, rank := range m {
		if rank == r {
			return id, true
		}
	}
	return "", false
}

// #endregion

// #region metrics

// Metrics is diagnostic telemetry carried alongside the state.
type Metrics struct {
	StartedAt    time.Time   `json:"started_at"`
	ComparedAt   []time.Time `json:"compared_at,omitempty"`
	ZonesVisited []Zone      `json:"zones_visited,omitempty"`
}

// #endregion

// #region state

// State is the value threaded through one placement. Every transition
// returns a new State; a previously returned State is never modified.
type State struct {
	ItemID ItemID `json:"item_id"`
	Tier   Tier   `json:"tier"`

	Strategy    Strategy `json:"strategy"`
	CurrentZone Zone     `json:"current_zone"`
	Zones       Zones    `json:"zones"`

	Compared             map[ItemID]bool `json:"compared"`
	CompletedComparisons int             `json:"completed_comparisons"`
	MaxComparisons       int             `json:"max_comparisons"`
	IsComplete           bool            `json:"is_complete"`

	Bounds  Bounds             `json:"bounds"`
	Ranks   RankMap            `json:"ranks"`
	History []ComparisonRecord `json:"history"`

	Metrics Metrics `json:"metrics"`
}

// ExistingCount is the number of already-ranked items in the tier.
func (s State) ExistingCount() int {
	return len(s.Ranks)
}

// #endregion

// #region helpers

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

// #endregion
