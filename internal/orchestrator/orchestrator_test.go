package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/eval"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/logging"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/ranking"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

func newTestOrchestrator(t *testing.T, ranked ...placement.ItemID) *Orchestrator {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ranker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	o, err := NewOrchestrator(store)
	require.NoError(t, err)

	ctx := context.Background()
	for i, id := range ranked {
		require.NoError(t, o.Rankings().Insert(ctx, "u1", "liked", id, i+1))
	}
	return o
}

// truthAnswer answers as a user whose honest rank for the new item is truth.
func truthAnswer(st placement.State, id placement.ItemID, truth int) placement.Result {
	if truth <= st.Ranks[id] {
		return placement.ResultBetter
	}
	return placement.ResultWorse
}

func TestFullPlacementFlow(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C", "D", "E")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	assert.Equal(t, placement.StrategyTwoZone, p.State.Strategy)
	assert.Equal(t, 3, p.State.MaxComparisons)
	require.True(t, p.HasNext)
	assert.Equal(t, placement.ItemID("C"), p.Next)

	sessionID := p.Session.SessionID
	answers := 0
	for p.HasNext {
		p, err = o.Answer(ctx, sessionID, p.Next, truthAnswer(p.State, p.Next, 3))
		require.NoError(t, err)
		answers++
	}
	assert.True(t, p.State.IsComplete)
	assert.LessOrEqual(t, answers, 3)

	placed, err := o.Finish(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, placed.Position)
	assert.Equal(t, state.StatusResolved, placed.Session.Status)

	entries, err := o.Rankings().List(ctx, "u1", "liked")
	require.NoError(t, err)
	var order []placement.ItemID
	for _, e := range entries {
		order = append(order, e.ItemID)
	}
	assert.Equal(t, []placement.ItemID{"A", "B", "new", "C", "D", "E"}, order)

	sess, err := o.Snapshots().GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusResolved, sess.Status)
	assert.Equal(t, 3, sess.FinalPosition)

	edges, err := o.Preferences().Neighbors("u1", "liked", "new")
	require.NoError(t, err)
	assert.Len(t, edges, answers)

	decisions, err := logging.ListDecisions(o.Snapshots().DB(), sessionID)
	require.NoError(t, err)
	require.Len(t, decisions, answers+1)
	assert.Equal(t, logging.EventResolve, decisions[answers].Event)
	assert.Equal(t, 3, decisions[answers].Position)

	stats, err := o.Outcomes().Stats(placement.StrategyTwoZone)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)

	_, err = o.Answer(ctx, sessionID, "D", placement.ResultBetter)
	assert.ErrorIs(t, err, state.ErrSessionClosed)
	_, err = o.Finish(ctx, sessionID)
	assert.ErrorIs(t, err, state.ErrSessionClosed)
}

func TestStartRejectsRankedItem(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B")
	_, err := o.Start(context.Background(), "u1", "liked", "A")
	assert.ErrorIs(t, err, ranking.ErrAlreadyRanked)
}

func TestAnswerValidation(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID

	_, err = o.Answer(ctx, id, "B", placement.Result("maybe"))
	assert.ErrorIs(t, err, ErrInvalidResult)
	_, err = o.Answer(ctx, id, "ghost", placement.ResultBetter)
	assert.ErrorIs(t, err, ErrNotAvailable)
	_, err = o.Answer(ctx, id, "new", placement.ResultBetter)
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = o.Answer(ctx, id, "B", placement.ResultSkipped)
	require.NoError(t, err)
	_, err = o.Answer(ctx, id, "B", placement.ResultBetter)
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = o.Answer(ctx, "missing", "A", placement.ResultBetter)
	assert.ErrorIs(t, err, state.ErrSessionNotFound)
}

func TestAnswerAfterCompleteRejected(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID

	p, err = o.Answer(ctx, id, "A", placement.ResultSkipped)
	require.NoError(t, err)
	p, err = o.Answer(ctx, id, "B", placement.ResultSkipped)
	require.NoError(t, err)
	require.True(t, p.State.IsComplete)
	assert.False(t, p.HasNext)

	next, ok, err := o.Next(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, next)

	_, err = o.Answer(ctx, id, "A", placement.ResultBetter)
	assert.ErrorIs(t, err, ErrPlacementComplete)
}

func TestUndoRestoresPreviousAnswer(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C", "D", "E")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID

	_, err = o.Undo(ctx, id)
	assert.ErrorIs(t, err, state.ErrNothingToUndo)

	p, err = o.Answer(ctx, id, "C", placement.ResultBetter)
	require.NoError(t, err)
	assert.Equal(t, placement.Bounds{Lower: 1, Upper: 3}, p.State.Bounds)

	p, err = o.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, placement.Bounds{Lower: 1, Upper: 6}, p.State.Bounds)
	assert.Equal(t, 0, p.State.CompletedComparisons)
	assert.Equal(t, placement.ItemID("C"), p.Next)

	p, err = o.Answer(ctx, id, "C", placement.ResultWorse)
	require.NoError(t, err)
	assert.Equal(t, placement.Bounds{Lower: 4, Upper: 6}, p.State.Bounds)

	decisions, err := logging.ListDecisions(o.Snapshots().DB(), id)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.Equal(t, logging.EventUndo, decisions[1].Event)
}

func TestCancelLeavesRankingUntouched(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID
	_, err = o.Answer(ctx, id, p.Next, placement.ResultBetter)
	require.NoError(t, err)

	require.NoError(t, o.Cancel(ctx, id))

	n, err := o.Rankings().Count(ctx, "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cur, err := o.Current(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCancelled, cur.Session.Status)
	assert.False(t, cur.HasNext)

	assert.ErrorIs(t, o.Cancel(ctx, id), state.ErrSessionClosed)
	_, _, err = o.Next(ctx, id)
	assert.ErrorIs(t, err, state.ErrSessionClosed)

	stats, err := o.Outcomes().Stats(p.State.Strategy)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Cancelled)

	// The item can be placed again later.
	_, err = o.Start(ctx, "u1", "liked", "new")
	assert.NoError(t, err)
}

func TestEmptyTierPlacesFirst(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "first")
	require.NoError(t, err)
	assert.True(t, p.State.IsComplete)
	assert.False(t, p.HasNext)

	placed, err := o.Finish(ctx, p.Session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, placed.Position)
}

func TestFinishEarlyUsesBoundsMidpoint(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C", "D", "E")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)

	placed, err := o.Finish(ctx, p.Session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, placed.Position)
}

func TestFinishClampsWhenTierShrank(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID
	for p.HasNext {
		p, err = o.Answer(ctx, id, p.Next, placement.ResultWorse)
		require.NoError(t, err)
	}

	require.NoError(t, o.Remove(ctx, "u1", "liked", "A"))
	require.NoError(t, o.Remove(ctx, "u1", "liked", "B"))

	placed, err := o.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, placed.Position)
}

func TestFinishRollsBackRankWhenCloseFails(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C")
	ctx := context.Background()
	db := o.Snapshots().DB()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID

	_, err = db.Exec(`CREATE TRIGGER block_resolve BEFORE UPDATE OF status ON placement_sessions
		WHEN NEW.status = 'resolved' BEGIN SELECT RAISE(ABORT, 'close blocked'); END`)
	require.NoError(t, err)

	_, err = o.Finish(ctx, id)
	require.Error(t, err)

	n, err := o.Rankings().Count(ctx, "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "item ranked although the session stayed open")

	_, err = db.Exec(`DROP TRIGGER block_resolve`)
	require.NoError(t, err)

	placed, err := o.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, state.StatusResolved, placed.Session.Status)
	n, err = o.Rankings().Count(ctx, "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRemoveSeversPreferences(t *testing.T) {
	o := newTestOrchestrator(t, "A", "B", "C")
	ctx := context.Background()

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID
	for p.HasNext {
		p, err = o.Answer(ctx, id, p.Next, placement.ResultBetter)
		require.NoError(t, err)
	}
	_, err = o.Finish(ctx, id)
	require.NoError(t, err)

	require.NoError(t, o.Remove(ctx, "u1", "liked", "new"))

	edges, err := o.Preferences().Neighbors("u1", "liked", "new")
	require.NoError(t, err)
	assert.Empty(t, edges)

	assert.ErrorIs(t, o.Remove(ctx, "u1", "liked", "new"), ranking.ErrNotRanked)
}

func TestStrictEvalAcceptsClampedAnswers(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ranker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	o, err := NewOrchestrator(store, WithEvalConfig(eval.EvalConfig{FailOnContradiction: true}))
	require.NoError(t, err)
	ctx := context.Background()
	for i, id := range []placement.ItemID{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		require.NoError(t, o.Rankings().Insert(ctx, "u1", "liked", id, i+1))
	}

	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	id := p.Session.SessionID

	// new > B but D > new: inconsistent with the ranks, yet no item was
	// answered both ways, so there is no preference cycle to reject.
	_, err = o.Answer(ctx, id, "B", placement.ResultBetter)
	require.NoError(t, err)
	p, err = o.Answer(ctx, id, "D", placement.ResultWorse)
	require.NoError(t, err)
	assert.Equal(t, placement.Bounds{Lower: 2, Upper: 2}, p.State.Bounds)

	placed, err := o.Finish(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, placed.Position)
}
