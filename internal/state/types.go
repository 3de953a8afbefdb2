package state

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region session-status
// Session statuses.
const (
	StatusOpen      = "open"
	StatusResolved  = "resolved"
	StatusCancelled = "cancelled"
)
// #endregion session-status

// #region errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrNothingToUndo   = errors.New("nothing to undo")
)
// #endregion errors

// #region session
// Session is one attempt to place an item into a user's tier.
type Session struct {
	SessionID     string
	UserID        string
	Tier          placement.Tier
	ItemID        placement.ItemID
	Status        string
	FinalPosition int // 0 until resolved
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
// #endregion session

// #region snapshot
// Snapshot is one immutable version of a session's placement state.
// Versions chain through ParentID; the session's active pointer selects
// the one the placement continues from.
type Snapshot struct {
	VersionID string
	ParentID  string
	SessionID string
	State     placement.State
	CreatedAt time.Time
}
// #endregion snapshot
