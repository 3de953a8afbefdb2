package ranking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region errors
var (
	ErrAlreadyRanked   = errors.New("item already ranked in tier")
	ErrNotRanked       = errors.New("item not ranked in tier")
	ErrInvalidPosition = errors.New("position out of range")
)
// #endregion errors

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS rankings (
	user_id    TEXT NOT NULL,
	tier       TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	rank       INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, tier, item_id)
);

CREATE INDEX IF NOT EXISTS idx_rankings_order ON rankings(user_id, tier, rank);
`
// #endregion schema

// Entry is one ranked item.
type Entry struct {
	ItemID    placement.ItemID
	Rank      int
	UpdatedAt time.Time
}

// Store holds each user's ranked list per tier. Ranks within a tier are
// contiguous from 1; every mutation keeps them that way in one transaction.
type Store struct {
	db *sql.DB
}

// NewStore migrates the rankings table on db.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate rankings: %w", err)
	}
	return &Store{db: db}, nil
}

// #region read
// RankMap returns the tier's item → rank snapshot used to start a placement.
func (s *Store) RankMap(ctx context.Context, userID string, tier placement.Tier) (placement.RankMap, error) {
	entries, err := s.List(ctx, userID, tier)
	if err != nil {
		return nil, err
	}
	ranks := make(placement.RankMap, len(entries))
	for _, e := range entries {
		ranks[e.ItemID] = e.Rank
	}
	return ranks, nil
}

// List returns the tier ordered best first.
func (s *Store) List(ctx context.Context, userID string, tier placement.Tier) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, rank, updated_at FROM rankings
		 WHERE user_id = ? AND tier = ? ORDER BY rank ASC`, userID, string(tier),
	)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var item, updated string
		if err := rows.Scan(&item, &e.Rank, &updated); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		e.ItemID = placement.ItemID(item)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of ranked items in the tier.
func (s *Store) Count(ctx context.Context, userID string, tier placement.Tier) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rankings WHERE user_id = ? AND tier = ?`, userID, string(tier),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rankings: %w", err)
	}
	return n, nil
}
// #endregion read

// #region write
// Insert places itemID at position, shifting every item at or below that
// rank down by one. position must be in [1, n+1].
func (s *Store) Insert(ctx context.Context, userID string, tier placement.Tier, itemID placement.ItemID, position int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := InsertTx(ctx, tx, userID, tier, itemID, position); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertTx is Insert inside a caller-owned transaction, so the new rank can
// commit together with other writes on the same database.
func InsertTx(ctx context.Context, tx *sql.Tx, userID string, tier placement.Tier, itemID placement.ItemID, position int) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rankings WHERE user_id = ? AND tier = ? AND item_id = ?`,
		userID, string(tier), string(itemID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check ranked: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("insert %s into %s: %w", itemID, tier, ErrAlreadyRanked)
	}

	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rankings WHERE user_id = ? AND tier = ?`, userID, string(tier),
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("count rankings: %w", err)
	}
	if position < 1 || position > n+1 {
		return fmt.Errorf("insert at %d with %d ranked: %w", position, n, ErrInvalidPosition)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE rankings SET rank = rank + 1 WHERE user_id = ? AND tier = ? AND rank >= ?`,
		userID, string(tier), position,
	)
	if err != nil {
		return fmt.Errorf("shift ranks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rankings (user_id, tier, item_id, rank, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, string(tier), string(itemID), position, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert ranking: %w", err)
	}
	return nil
}

// Remove deletes itemID from the tier and closes the gap it leaves.
func (s *Store) Remove(ctx context.Context, userID string, tier placement.Tier, itemID placement.ItemID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var rank int
	err = tx.QueryRowContext(ctx,
		`SELECT rank FROM rankings WHERE user_id = ? AND tier = ? AND item_id = ?`,
		userID, string(tier), string(itemID),
	).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("remove %s from %s: %w", itemID, tier, ErrNotRanked)
	}
	if err != nil {
		return fmt.Errorf("get rank: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM rankings WHERE user_id = ? AND tier = ? AND item_id = ?`,
		userID, string(tier), string(itemID),
	)
	if err != nil {
		return fmt.Errorf("delete ranking: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE rankings SET rank = rank - 1 WHERE user_id = ? AND tier = ? AND rank > ?`,
		userID, string(tier), rank,
	)
	if err != nil {
		return fmt.Errorf("close gap: %w", err)
	}
	return tx.Commit()
}
// #endregion write
