package ranking

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func order(t *testing.T, s *Store, user string, tier placement.Tier) []placement.ItemID {
	t.Helper()
	entries, err := s.List(context.Background(), user, tier)
	require.NoError(t, err)
	ids := make([]placement.ItemID, len(entries))
	for i, e := range entries {
		require.Equal(t, i+1, e.Rank, "ranks must be contiguous")
		ids[i] = e.ItemID
	}
	return ids
}

func TestInsertShiftsLowerRanks(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "u1", "liked", "A", 1))
	require.NoError(t, s.Insert(ctx, "u1", "liked", "B", 2))
	require.NoError(t, s.Insert(ctx, "u1", "liked", "C", 1))
	require.NoError(t, s.Insert(ctx, "u1", "liked", "D", 3))

	assert.Equal(t, []placement.ItemID{"C", "A", "D", "B"}, order(t, s, "u1", "liked"))

	ranks, err := s.RankMap(ctx, "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, placement.RankMap{"C": 1, "A": 2, "D": 3, "B": 4}, ranks)
}

func TestInsertRejectsDuplicatesAndBadPositions(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "u1", "liked", "A", 1))
	assert.ErrorIs(t, s.Insert(ctx, "u1", "liked", "A", 1), ErrAlreadyRanked)
	assert.ErrorIs(t, s.Insert(ctx, "u1", "liked", "B", 0), ErrInvalidPosition)
	assert.ErrorIs(t, s.Insert(ctx, "u1", "liked", "B", 3), ErrInvalidPosition)

	n, err := s.Count(ctx, "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTiersAndUsersAreIndependent(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "u1", "liked", "A", 1))
	require.NoError(t, s.Insert(ctx, "u1", "disliked", "A", 1))
	require.NoError(t, s.Insert(ctx, "u2", "liked", "B", 1))

	assert.Equal(t, []placement.ItemID{"A"}, order(t, s, "u1", "liked"))
	assert.Equal(t, []placement.ItemID{"A"}, order(t, s, "u1", "disliked"))
	assert.Equal(t, []placement.ItemID{"B"}, order(t, s, "u2", "liked"))
}

func TestRemoveClosesGap(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	for i, id := range []placement.ItemID{"A", "B", "C", "D"} {
		require.NoError(t, s.Insert(ctx, "u1", "liked", id, i+1))
	}
	require.NoError(t, s.Remove(ctx, "u1", "liked", "B"))
	assert.Equal(t, []placement.ItemID{"A", "C", "D"}, order(t, s, "u1", "liked"))

	assert.ErrorIs(t, s.Remove(ctx, "u1", "liked", "B"), ErrNotRanked)
}

func TestEmptyTier(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	ranks, err := s.RankMap(ctx, "nobody", "liked")
	require.NoError(t, err)
	assert.Empty(t, ranks)
	assert.Empty(t, order(t, s, "nobody", "liked"))
}
