package graph

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS preference_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     TEXT NOT NULL,
    tier        TEXT NOT NULL,
    winner_id   TEXT NOT NULL,
    loser_id    TEXT NOT NULL,
    weight      INTEGER NOT NULL DEFAULT 1,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE(user_id, tier, winner_id, loser_id)
);
CREATE INDEX IF NOT EXISTS idx_pref_winner ON preference_edges(user_id, tier, winner_id);
CREATE INDEX IF NOT EXISTS idx_pref_loser ON preference_edges(user_id, tier, loser_id);
`

// #endregion schema

// #region types
// Edge records that the user preferred WinnerID over LoserID. Weight counts
// how many answers asserted it.
type Edge struct {
	ID        int64
	UserID    string
	Tier      placement.Tier
	WinnerID  placement.ItemID
	LoserID   placement.ItemID
	Weight    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GraphStore manages the preference_edges table.
type GraphStore struct {
	db *sql.DB
}

// #endregion types

// #region constructor
// NewGraphStore creates tables and returns a GraphStore.
func NewGraphStore(db *sql.DB) (*GraphStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	return &GraphStore{db: db}, nil
}

// #endregion constructor

// #region add-preference
// AddPreference records winner over loser, incrementing the weight when the
// edge already exists.
func (g *GraphStore) AddPreference(userID string, tier placement.Tier, winner, loser placement.ItemID) error {
	return addPreference(g.db, userID, tier, winner, loser)
}

// RecordPlacement stores one edge per decisive answer in a finished
// placement. Skipped answers carry no preference.
func (g *GraphStore) RecordPlacement(userID string, st placement.State) error {
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range st.History {
		var err error
		switch rec.Result {
		case placement.ResultBetter:
			err = addPreference(tx, userID, st.Tier, st.ItemID, rec.ComparisonID)
		case placement.ResultWorse:
			err = addPreference(tx, userID, st.Tier, rec.ComparisonID, st.ItemID)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func addPreference(db execer, userID string, tier placement.Tier, winner, loser placement.ItemID) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT INTO preference_edges (user_id, tier, winner_id, loser_id, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(user_id, tier, winner_id, loser_id) DO UPDATE SET
		   weight = preference_edges.weight + 1,
		   updated_at = ?`,
		userID, string(tier), string(winner), string(loser), now, now,
		now,
	)
	if err != nil {
		return fmt.Errorf("add preference %s>%s: %w", winner, loser, err)
	}
	return nil
}

// #endregion add-preference

// #region queries
// Preferences returns every edge in the user's tier.
func (g *GraphStore) Preferences(userID string, tier placement.Tier) ([]Edge, error) {
	return g.query(
		`SELECT id, user_id, tier, winner_id, loser_id, weight, created_at, updated_at
		 FROM preference_edges
		 WHERE user_id = ? AND tier = ?
		 ORDER BY winner_id, loser_id`,
		userID, string(tier),
	)
}

// Neighbors returns edges touching itemID on either side, heaviest first.
func (g *GraphStore) Neighbors(userID string, tier placement.Tier, itemID placement.ItemID) ([]Edge, error) {
	return g.query(
		`SELECT id, user_id, tier, winner_id, loser_id, weight, created_at, updated_at
		 FROM preference_edges
		 WHERE user_id = ? AND tier = ? AND (winner_id = ? OR loser_id = ?)
		 ORDER BY weight DESC, id ASC`,
		userID, string(tier), string(itemID), string(itemID),
	)
}

func (g *GraphStore) query(q string, args ...interface{}) ([]Edge, error) {
	rows, err := g.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var tier, winner, loser, createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.UserID, &tier, &winner, &loser, &e.Weight, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.Tier = placement.Tier(tier)
		e.WinnerID = placement.ItemID(winner)
		e.LoserID = placement.ItemID(loser)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// #endregion queries

// #region beaten
// Beaten walks winner→loser edges breadth-first from itemID and returns the
// items it transitively beats, nearest first, up to maxDepth hops.
func (g *GraphStore) Beaten(userID string, tier placement.Tier, itemID placement.ItemID, maxDepth int) ([]placement.ItemID, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}

	type queueItem struct {
		id    placement.ItemID
		depth int
	}
	visited := map[placement.ItemID]bool{itemID: true}
	queue := []queueItem{{itemID, 0}}
	var out []placement.ItemID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}

		edges, err := g.query(
			`SELECT id, user_id, tier, winner_id, loser_id, weight, created_at, updated_at
			 FROM preference_edges
			 WHERE user_id = ? AND tier = ? AND winner_id = ?
			 ORDER BY loser_id`,
			userID, string(tier), string(current.id),
		)
		if err != nil {
			return out, fmt.Errorf("walk from %s: %w", current.id, err)
		}
		for _, e := range edges {
			if visited[e.LoserID] {
				continue
			}
			visited[e.LoserID] = true
			out = append(out, e.LoserID)
			queue = append(queue, queueItem{e.LoserID, current.depth + 1})
		}
	}
	return out, nil
}

// #endregion beaten

// #region sever
// SeverItem deletes all edges where itemID is either winner or loser.
func (g *GraphStore) SeverItem(userID string, tier placement.Tier, itemID placement.ItemID) error {
	_, err := g.db.Exec(
		`DELETE FROM preference_edges WHERE user_id = ? AND tier = ? AND (winner_id = ? OR loser_id = ?)`,
		userID, string(tier), string(itemID), string(itemID),
	)
	return err
}

// #endregion sever

// #region clear
// Clear deletes every edge in the user's tier.
func (g *GraphStore) Clear(userID string, tier placement.Tier) error {
	_, err := g.db.Exec(
		`DELETE FROM preference_edges WHERE user_id = ? AND tier = ?`,
		userID, string(tier),
	)
	return err
}

// #endregion clear
