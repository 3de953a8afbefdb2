package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	session_id    TEXT NOT NULL,
	version_id    TEXT NOT NULL,
	event         TEXT NOT NULL,
	comparison_id TEXT,
	result        TEXT,
	lower_bound   INTEGER NOT NULL,
	upper_bound   INTEGER NOT NULL,
	position      INTEGER,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_session ON decision_log(session_id);
`

// Migrate creates the decision_log table.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate decision log: %w", err)
	}
	return nil
}
// #endregion schema

// #region log-decision
// LogDecision writes an entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var pos interface{}
	if entry.Position > 0 {
		pos = entry.Position
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (session_id, version_id, event, comparison_id, result, lower_bound, upper_bound, position, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.VersionID,
		entry.Event,
		nullIfEmpty(entry.ComparisonID),
		nullIfEmpty(entry.Result),
		entry.Lower,
		entry.Upper,
		pos,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns a session's entries in the order they were written.
func ListDecisions(db *sql.DB, sessionID string) ([]DecisionEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, version_id, event, comparison_id, result, lower_bound, upper_bound, position, reason, created_at
		 FROM decision_log WHERE session_id = ? ORDER BY rowid ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var comparisonID, result, reason sql.NullString
		var pos sql.NullInt64
		var created string
		if err := rows.Scan(&e.SessionID, &e.VersionID, &e.Event, &comparisonID, &result,
			&e.Lower, &e.Upper, &pos, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.ComparisonID = comparisonID.String
		e.Result = result.String
		e.Reason = reason.String
		e.Position = int(pos.Int64)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
