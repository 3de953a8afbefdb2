package logging

import "time"

// #region decision-events
// Decision log events.
const (
	EventCompare = "compare"
	EventUndo    = "undo"
	EventResolve = "resolve"
	EventCancel  = "cancel"
)
// #endregion decision-events

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	SessionID    string
	VersionID    string
	Event        string
	ComparisonID string // compare only
	Result       string // compare only
	Lower        int
	Upper        int
	Position     int // resolve only
	Reason       string
	CreatedAt    time.Time
}
// #endregion decision-entry
