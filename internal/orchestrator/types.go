package orchestrator

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region errors

var (
	// ErrPlacementComplete is returned when an answer arrives after the
	// placement stopped asking questions.
	ErrPlacementComplete = errors.New("placement complete")
	// ErrNotAvailable means the comparison item is unranked, already
	// compared, or the item being placed.
	ErrNotAvailable  = errors.New("comparison item not available")
	ErrInvalidResult = errors.New("invalid comparison result")
	// ErrInvariant wraps an eval failure; it indicates an engine bug.
	ErrInvariant = errors.New("placement invariant violated")
)

// #endregion

// #region progress

// Progress is the caller-facing view of a session after each step.
type Progress struct {
	Session   state.Session
	VersionID string
	State     placement.State
	// Next is the item to ask about; empty when HasNext is false.
	Next    placement.ItemID
	HasNext bool
}

// Placement is the outcome of a finished session.
type Placement struct {
	Session  state.Session
	Position int
}

// #endregion

// #region outcome-record

// OutcomeRecord is one closed session as stored in placement_outcomes.
type OutcomeRecord struct {
	SessionID       string
	UserID          string
	Tier            placement.Tier
	Strategy        placement.Strategy
	ExistingCount   int
	ComparisonsUsed int
	MaxComparisons  int
	Skipped         int
	Contradiction   bool
	FinalPosition   int // 0 when cancelled
	Status          string
	Duration        time.Duration
	CreatedAt       time.Time
}

// StrategyStats aggregates outcomes for one strategy. Averages are
// decay-weighted so recent sessions count more.
type StrategyStats struct {
	Strategy          placement.Strategy
	Sessions          int
	Cancelled         int
	AvgComparisons    float64
	AvgBudgetUse      float64 // comparisons used / budget
	SkipRate          float64 // skipped / comparisons
	ContradictionRate float64 // share of resolved sessions with a preference cycle
}

// #endregion
