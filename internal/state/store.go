package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS placement_sessions (
	session_id     TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	tier           TEXT NOT NULL,
	item_id        TEXT NOT NULL,
	status         TEXT NOT NULL,
	final_position INTEGER,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS placement_versions (
	version_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	state_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES placement_sessions(session_id),
	FOREIGN KEY (parent_id) REFERENCES placement_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_placement_versions_session ON placement_versions(session_id);

CREATE TABLE IF NOT EXISTS active_versions (
	session_id    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES placement_sessions(session_id),
	FOREIGN KEY (version_id) REFERENCES placement_versions(version_id)
);
`
// #endregion schema

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store persists placement sessions and their versioned state snapshots in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB runs migrations on an already-open database.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (rankings, logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region create-session
// CreateSession opens a session for st and stores st as its first version.
func (s *Store) CreateSession(ctx context.Context, userID string, st placement.State) (Session, Snapshot, error) {
	now := time.Now().UTC()
	sess := Session{
		SessionID: uuid.New().String(),
		UserID:    userID,
		Tier:      st.Tier,
		ItemID:    st.ItemID,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	snap := Snapshot{
		VersionID: uuid.New().String(),
		SessionID: sess.SessionID,
		State:     st,
		CreatedAt: now,
	}

	stateJSON, err := encodeState(st)
	if err != nil {
		return Session{}, Snapshot{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO placement_sessions (session_id, user_id, tier, item_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.UserID, string(sess.Tier), string(sess.ItemID), sess.Status,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return Session{}, Snapshot{}, fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO placement_versions (version_id, session_id, parent_id, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.VersionID, sess.SessionID, nil, stateJSON, now.Format(timeLayout),
	)
	if err != nil {
		return Session{}, Snapshot{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO active_versions (session_id, version_id) VALUES (?, ?)`,
		sess.SessionID, snap.VersionID,
	)
	if err != nil {
		return Session{}, Snapshot{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Session{}, Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return sess, snap, nil
}
// #endregion create-session

// #region commit-snapshot
// CommitSnapshot stores st as a child of the session's active version and
// moves the active pointer to it atomically.
func (s *Store) CommitSnapshot(ctx context.Context, sessionID string, st placement.State) (Snapshot, error) {
	stateJSON, err := encodeState(st)
	if err != nil {
		return Snapshot{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireOpen(ctx, tx, sessionID); err != nil {
		return Snapshot{}, err
	}

	var parentID string
	err = tx.QueryRowContext(ctx,
		`SELECT version_id FROM active_versions WHERE session_id = ?`, sessionID,
	).Scan(&parentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get active: %w", err)
	}

	now := time.Now().UTC()
	snap := Snapshot{
		VersionID: uuid.New().String(),
		ParentID:  parentID,
		SessionID: sessionID,
		State:     st,
		CreatedAt: now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO placement_versions (version_id, session_id, parent_id, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.VersionID, sessionID, parentID, stateJSON, now.Format(timeLayout),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE active_versions SET version_id = ? WHERE session_id = ?`, snap.VersionID, sessionID,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("update active: %w", err)
	}
	if err := touchSession(ctx, tx, sessionID, now); err != nil {
		return Snapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return snap, nil
}
// #endregion commit-snapshot

// #region get-session
// GetSession reads a session row.
func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, tier, item_id, status, final_position, created_at, updated_at
		 FROM placement_sessions WHERE session_id = ?`, sessionID,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}
// #endregion get-session

// #region get-current
// GetCurrent reads the session's active version.
func (s *Store) GetCurrent(ctx context.Context, sessionID string) (Snapshot, error) {
	var versionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT version_id FROM active_versions WHERE session_id = ?`, sessionID,
	).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("get active %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(ctx, versionID)
}
// #endregion get-current

// #region get-version
// GetVersion retrieves a specific snapshot by version ID.
func (s *Store) GetVersion(ctx context.Context, versionID string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_id, session_id, parent_id, state_json, created_at
		 FROM placement_versions WHERE version_id = ?`, versionID,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("get version %s: %w", versionID, ErrVersionNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get version %s: %w", versionID, err)
	}
	return snap, nil
}
// #endregion get-version

// #region rollback
// Rollback moves the session's active pointer to an earlier version of the same session.
func (s *Store) Rollback(ctx context.Context, sessionID, targetVersionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireOpen(ctx, tx, sessionID); err != nil {
		return err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM placement_versions WHERE version_id = ? AND session_id = ?`,
		targetVersionID, sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s in session %s: %w", targetVersionID, sessionID, ErrVersionNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE active_versions SET version_id = ? WHERE session_id = ?`, targetVersionID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	if err := touchSession(ctx, tx, sessionID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// Undo rolls the session back to the parent of its active version.
func (s *Store) Undo(ctx context.Context, sessionID string) (Snapshot, error) {
	cur, err := s.GetCurrent(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if cur.ParentID == "" {
		return Snapshot{}, ErrNothingToUndo
	}
	if err := s.Rollback(ctx, sessionID, cur.ParentID); err != nil {
		return Snapshot{}, err
	}
	return s.GetVersion(ctx, cur.ParentID)
}
// #endregion rollback

// #region close-session
// CloseSession marks an open session resolved or cancelled. finalPosition is
// stored only for resolved sessions.
func (s *Store) CloseSession(ctx context.Context, sessionID, status string, finalPosition int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := CloseSessionTx(ctx, tx, sessionID, status, finalPosition); err != nil {
		return err
	}
	return tx.Commit()
}

// CloseSessionTx is CloseSession inside a caller-owned transaction.
func CloseSessionTx(ctx context.Context, tx *sql.Tx, sessionID, status string, finalPosition int) error {
	if status != StatusResolved && status != StatusCancelled {
		return fmt.Errorf("close session: invalid status %q", status)
	}
	if err := requireOpen(ctx, tx, sessionID); err != nil {
		return err
	}

	var pos interface{}
	if status == StatusResolved {
		pos = finalPosition
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE placement_sessions SET status = ?, final_position = ?, updated_at = ? WHERE session_id = ?`,
		status, pos, time.Now().UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
// #endregion close-session

// #region list
// ListVersions returns a session's versions, most recent first. A limit of
// zero or less returns them all.
func (s *Store) ListVersions(ctx context.Context, sessionID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, session_id, parent_id, state_json, created_at
		 FROM placement_versions WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListSessions returns the most recently updated sessions. An empty status
// matches every session; a limit of zero or less returns them all.
func (s *Store) ListSessions(ctx context.Context, status string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, tier, item_id, status, final_position, created_at, updated_at
		 FROM placement_sessions WHERE (? = '' OR status = ?)
		 ORDER BY updated_at DESC, rowid DESC LIMIT ?`, status, status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
// #endregion list

// #region helpers
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var tier, item, createdStr, updatedStr string
	var pos sql.NullInt64
	if err := row.Scan(&sess.SessionID, &sess.UserID, &tier, &item, &sess.Status, &pos, &createdStr, &updatedStr); err != nil {
		return Session{}, err
	}
	sess.Tier = placement.Tier(tier)
	sess.ItemID = placement.ItemID(item)
	if pos.Valid {
		sess.FinalPosition = int(pos.Int64)
	}
	sess.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return sess, nil
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var parentID sql.NullString
	var stateJSON, createdStr string
	if err := row.Scan(&snap.VersionID, &snap.SessionID, &parentID, &stateJSON, &createdStr); err != nil {
		return Snapshot{}, err
	}
	if parentID.Valid {
		snap.ParentID = parentID.String
	}
	st, err := decodeState(stateJSON)
	if err != nil {
		return Snapshot{}, err
	}
	snap.State = st
	snap.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return snap, nil
}

func requireOpen(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM placement_sessions WHERE session_id = ?`, sessionID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if status != StatusOpen {
		return fmt.Errorf("session %s is %s: %w", sessionID, status, ErrSessionClosed)
	}
	return nil
}

func touchSession(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE placement_sessions SET updated_at = ? WHERE session_id = ?`,
		now.Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
// #endregion helpers

// #region state-encoding
func encodeState(st placement.State) (string, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(b), nil
}

func decodeState(s string) (placement.State, error) {
	var st placement.State
	if err := json.Unmarshal([]byte(s), &st); err != nil {
		return placement.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	if st.Compared == nil {
		st.Compared = map[placement.ItemID]bool{}
	}
	return st, nil
}
// #endregion state-encoding
