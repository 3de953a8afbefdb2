package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/eval"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/graph"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/logging"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/metrics"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/ranking"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #endregion

// #region orchestrator-struct

// Orchestrator drives placement sessions: it loads the tier, asks the engine
// for comparisons, persists every answer as a snapshot, and writes the final
// rank back to the ranking store.
type Orchestrator struct {
	snapshots *state.Store
	rankings  *ranking.Store
	prefs     *graph.GraphStore
	outcomes  *OutcomeMemory
	harness   *eval.EvalHarness
	log       zerolog.Logger
	now       func() time.Time
}

// #endregion

// #region constructor

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEvalConfig replaces the default invariant checks run after every step.
func WithEvalConfig(cfg eval.EvalConfig) Option {
	return func(o *Orchestrator) { o.harness = eval.NewEvalHarness(cfg) }
}

// NewOrchestrator wires every store onto the snapshot store's database.
func NewOrchestrator(snapshots *state.Store, opts ...Option) (*Orchestrator, error) {
	db := snapshots.DB()

	rankings, err := ranking.NewStore(db)
	if err != nil {
		return nil, err
	}
	prefs, err := graph.NewGraphStore(db)
	if err != nil {
		return nil, err
	}
	outcomes, err := NewOutcomeMemory(db)
	if err != nil {
		return nil, fmt.Errorf("outcome memory: %w", err)
	}
	if err := logging.Migrate(db); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		snapshots: snapshots,
		rankings:  rankings,
		prefs:     prefs,
		outcomes:  outcomes,
		harness:   eval.NewEvalHarness(eval.DefaultEvalConfig()),
		log:       logging.With().Str("component", "orchestrator").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Rankings exposes the ranking store for listing and removal.
func (o *Orchestrator) Rankings() *ranking.Store { return o.rankings }

// Preferences exposes the preference graph.
func (o *Orchestrator) Preferences() *graph.GraphStore { return o.prefs }

// Outcomes exposes per-strategy outcome stats.
func (o *Orchestrator) Outcomes() *OutcomeMemory { return o.outcomes }

// Snapshots exposes the session snapshot store.
func (o *Orchestrator) Snapshots() *state.Store { return o.snapshots }

// #endregion

// #region start

// Start opens a session placing itemID into the user's tier.
func (o *Orchestrator) Start(ctx context.Context, userID string, tier placement.Tier, itemID placement.ItemID) (Progress, error) {
	ranks, err := o.rankings.RankMap(ctx, userID, tier)
	if err != nil {
		return Progress{}, err
	}
	if _, ok := ranks[itemID]; ok {
		return Progress{}, fmt.Errorf("start %s in %s: %w", itemID, tier, ranking.ErrAlreadyRanked)
	}

	st := placement.NewState(itemID, tier, len(ranks), ranks)
	if res := o.harness.Run(nil, st); !res.Passed {
		metrics.RecordInvariantFailure()
		return Progress{}, fmt.Errorf("%w: %s", ErrInvariant, res.Reason)
	}

	sess, snap, err := o.snapshots.CreateSession(ctx, userID, st)
	if err != nil {
		return Progress{}, err
	}

	o.log.Info().
		Str("session", sess.SessionID).
		Str("user", userID).
		Str("tier", string(tier)).
		Str("item", string(itemID)).
		Int("existing", len(ranks)).
		Str("strategy", string(st.Strategy)).
		Int("budget", st.MaxComparisons).
		Msg("placement started")
	metrics.RecordStart(string(st.Strategy))

	return progress(sess, snap), nil
}

// #endregion

// #region next

// Next returns the comparison item the session should ask about, if any.
func (o *Orchestrator) Next(ctx context.Context, sessionID string) (placement.ItemID, bool, error) {
	sess, snap, err := o.openSession(ctx, sessionID)
	if err != nil {
		return "", false, err
	}
	p := progress(sess, snap)
	return p.Next, p.HasNext, nil
}

// Current returns the session's latest progress without changing it.
// Closed sessions are readable.
func (o *Orchestrator) Current(ctx context.Context, sessionID string) (Progress, error) {
	sess, err := o.snapshots.GetSession(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	snap, err := o.snapshots.GetCurrent(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	p := progress(sess, snap)
	if sess.Status != state.StatusOpen {
		p.Next, p.HasNext = "", false
	}
	return p, nil
}

// #endregion

// #region answer

// Answer records the user's answer about comparisonID. Any available item
// may be answered, not only the one Next suggested.
func (o *Orchestrator) Answer(ctx context.Context, sessionID string, comparisonID placement.ItemID, result placement.Result) (Progress, error) {
	sess, snap, err := o.openSession(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	cur := snap.State

	if !result.Valid() {
		return Progress{}, fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}
	if cur.IsComplete {
		return Progress{}, fmt.Errorf("answer %s: %w", sessionID, ErrPlacementComplete)
	}
	if !isAvailable(cur, comparisonID) {
		return Progress{}, fmt.Errorf("answer %s: %s: %w", sessionID, comparisonID, ErrNotAvailable)
	}

	next := placement.ApplyResult(cur, comparisonID, result)
	if res := o.harness.Run(&cur, next); !res.Passed {
		metrics.RecordInvariantFailure()
		return Progress{}, fmt.Errorf("%w: %s", ErrInvariant, res.Reason)
	}

	saved, err := o.snapshots.CommitSnapshot(ctx, sessionID, next)
	if err != nil {
		return Progress{}, err
	}

	o.logDecision(logging.DecisionEntry{
		SessionID:    sessionID,
		VersionID:    saved.VersionID,
		Event:        logging.EventCompare,
		ComparisonID: string(comparisonID),
		Result:       string(result),
		Lower:        next.Bounds.Lower,
		Upper:        next.Bounds.Upper,
	})
	o.log.Debug().
		Str("session", sessionID).
		Str("comparison", string(comparisonID)).
		Str("result", string(result)).
		Int("lower", next.Bounds.Lower).
		Int("upper", next.Bounds.Upper).
		Bool("complete", next.IsComplete).
		Msg("answer applied")
	metrics.RecordAnswer(string(result))

	return progress(sess, saved), nil
}

// #endregion

// #region undo

// Undo discards the latest answer by moving the session back one version.
func (o *Orchestrator) Undo(ctx context.Context, sessionID string) (Progress, error) {
	sess, _, err := o.openSession(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	prev, err := o.snapshots.Undo(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}

	o.logDecision(logging.DecisionEntry{
		SessionID: sessionID,
		VersionID: prev.VersionID,
		Event:     logging.EventUndo,
		Lower:     prev.State.Bounds.Lower,
		Upper:     prev.State.Bounds.Upper,
	})
	metrics.RecordUndo()
	return progress(sess, prev), nil
}

// #endregion

// #region finish

// Finish resolves the final position, inserts the item into the ranking
// store, records its preference edges and outcome, and closes the session.
// It may be called before the engine runs out of questions.
func (o *Orchestrator) Finish(ctx context.Context, sessionID string) (Placement, error) {
	sess, snap, err := o.openSession(ctx, sessionID)
	if err != nil {
		return Placement{}, err
	}
	st := snap.State

	if res := o.harness.Run(nil, st); !res.Passed {
		metrics.RecordInvariantFailure()
		return Placement{}, fmt.Errorf("%w: %s", ErrInvariant, res.Reason)
	}
	position := placement.ResolveFinalPosition(st)

	// The tier may have changed since the session started.
	count, err := o.rankings.Count(ctx, sess.UserID, sess.Tier)
	if err != nil {
		return Placement{}, err
	}
	if position > count+1 {
		o.log.Warn().
			Str("session", sessionID).
			Int("position", position).
			Int("count", count).
			Msg("tier shrank during placement; appending")
		position = count + 1
	}

	if err := o.commitPlacement(ctx, sess, position); err != nil {
		return Placement{}, err
	}

	if err := o.prefs.RecordPlacement(sess.UserID, st); err != nil {
		o.log.Warn().Err(err).Str("session", sessionID).Msg("failed to record preferences")
	}
	closedAt := o.now()
	if err := o.outcomes.RecordOutcome(outcomeFromState(sess, st, state.StatusResolved, position, closedAt)); err != nil {
		o.log.Warn().Err(err).Str("session", sessionID).Msg("failed to record outcome")
	}
	o.logDecision(logging.DecisionEntry{
		SessionID: sessionID,
		VersionID: snap.VersionID,
		Event:     logging.EventResolve,
		Lower:     st.Bounds.Lower,
		Upper:     st.Bounds.Upper,
		Position:  position,
	})

	o.log.Info().
		Str("session", sessionID).
		Str("item", string(sess.ItemID)).
		Int("position", position).
		Int("comparisons", st.CompletedComparisons).
		Msg("placement resolved")
	metrics.RecordClose(string(st.Strategy), state.StatusResolved, st.CompletedComparisons, closedAt.Sub(sess.CreatedAt))

	sess.Status = state.StatusResolved
	sess.FinalPosition = position
	return Placement{Session: sess, Position: position}, nil
}

// commitPlacement ranks the item and resolves the session in one
// transaction, so a failed close never leaves the item ranked.
func (o *Orchestrator) commitPlacement(ctx context.Context, sess state.Session, position int) error {
	tx, err := o.snapshots.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ranking.InsertTx(ctx, tx, sess.UserID, sess.Tier, sess.ItemID, position); err != nil {
		return err
	}
	if err := state.CloseSessionTx(ctx, tx, sess.SessionID, state.StatusResolved, position); err != nil {
		return err
	}
	return tx.Commit()
}

// #endregion

// #region cancel

// Cancel closes the session without ranking the item.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	sess, snap, err := o.openSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := o.snapshots.CloseSession(ctx, sessionID, state.StatusCancelled, 0); err != nil {
		return err
	}

	closedAt := o.now()
	if err := o.outcomes.RecordOutcome(outcomeFromState(sess, snap.State, state.StatusCancelled, 0, closedAt)); err != nil {
		o.log.Warn().Err(err).Str("session", sessionID).Msg("failed to record outcome")
	}
	o.logDecision(logging.DecisionEntry{
		SessionID: sessionID,
		VersionID: snap.VersionID,
		Event:     logging.EventCancel,
		Lower:     snap.State.Bounds.Lower,
		Upper:     snap.State.Bounds.Upper,
	})
	o.log.Info().Str("session", sessionID).Msg("placement cancelled")
	metrics.RecordClose(string(snap.State.Strategy), state.StatusCancelled, snap.State.CompletedComparisons, closedAt.Sub(sess.CreatedAt))
	return nil
}

// #endregion

// #region remove

// Remove deletes a ranked item and its preference edges.
func (o *Orchestrator) Remove(ctx context.Context, userID string, tier placement.Tier, itemID placement.ItemID) error {
	if err := o.rankings.Remove(ctx, userID, tier, itemID); err != nil {
		return err
	}
	if err := o.prefs.SeverItem(userID, tier, itemID); err != nil {
		return fmt.Errorf("sever preferences: %w", err)
	}
	return nil
}

// #endregion

// #region helpers

func (o *Orchestrator) openSession(ctx context.Context, sessionID string) (state.Session, state.Snapshot, error) {
	sess, err := o.snapshots.GetSession(ctx, sessionID)
	if err != nil {
		return state.Session{}, state.Snapshot{}, err
	}
	if sess.Status != state.StatusOpen {
		return state.Session{}, state.Snapshot{}, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, state.ErrSessionClosed)
	}
	snap, err := o.snapshots.GetCurrent(ctx, sessionID)
	if err != nil {
		return state.Session{}, state.Snapshot{}, err
	}
	return sess, snap, nil
}

// logDecision failures never fail the step they describe.
func (o *Orchestrator) logDecision(entry logging.DecisionEntry) {
	if err := logging.LogDecision(o.snapshots.DB(), entry); err != nil {
		o.log.Warn().Err(err).Str("session", entry.SessionID).Msg("failed to log decision")
	}
}

func progress(sess state.Session, snap state.Snapshot) Progress {
	p := Progress{
		Session:   sess,
		VersionID: snap.VersionID,
		State:     snap.State,
	}
	p.Next, p.HasNext = placement.SelectNext(snap.State, placement.Available(snap.State))
	return p
}

func isAvailable(st placement.State, id placement.ItemID) bool {
	if id == st.ItemID || st.Compared[id] {
		return false
	}
	_, ok := st.Ranks[id]
	return ok
}

// #endregion
