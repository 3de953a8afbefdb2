package orchestrator

// #region imports
import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #endregion

// #region schema

const outcomesSchema = `
CREATE TABLE IF NOT EXISTS placement_outcomes (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id       TEXT NOT NULL,
    user_id          TEXT NOT NULL,
    tier             TEXT NOT NULL,
    strategy         TEXT NOT NULL,
    existing_count   INTEGER NOT NULL,
    comparisons_used INTEGER NOT NULL,
    max_comparisons  INTEGER NOT NULL,
    skipped          INTEGER NOT NULL DEFAULT 0,
    contradiction    INTEGER NOT NULL DEFAULT 0,
    final_position   INTEGER,
    status           TEXT NOT NULL,
    duration_ms      INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL
);
`

const outcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_placement_outcomes_strategy
ON placement_outcomes(strategy);
`

// decayHours is the e-folding time of outcome weights in Stats.
const decayHours = 7.0 * 24.0

// #endregion

// #region memory-struct

// OutcomeMemory persists closed-session outcomes in SQLite and reports
// per-strategy aggregates.
type OutcomeMemory struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutcomeMemory initializes the placement_outcomes table and returns an OutcomeMemory.
func NewOutcomeMemory(db *sql.DB) (*OutcomeMemory, error) {
	if _, err := db.Exec(outcomesSchema); err != nil {
		return nil, err
	}
	if _, err := db.Exec(outcomesIndex); err != nil {
		return nil, err
	}
	return &OutcomeMemory{db: db, now: time.Now}, nil
}

// #endregion

// #region record-outcome

// RecordOutcome persists a single outcome row.
func (m *OutcomeMemory) RecordOutcome(rec OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	contradiction := 0
	if rec.Contradiction {
		contradiction = 1
	}
	var pos interface{}
	if rec.FinalPosition > 0 {
		pos = rec.FinalPosition
	}
	_, err := m.db.Exec(`
		INSERT INTO placement_outcomes
		(session_id, user_id, tier, strategy, existing_count, comparisons_used,
		 max_comparisons, skipped, contradiction, final_position, status, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.UserID,
		string(rec.Tier),
		string(rec.Strategy),
		rec.ExistingCount,
		rec.ComparisonsUsed,
		rec.MaxComparisons,
		rec.Skipped,
		contradiction,
		pos,
		rec.Status,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// outcomeFromState summarizes a session's final state.
func outcomeFromState(sess state.Session, st placement.State, status string, position int, closedAt time.Time) OutcomeRecord {
	skipped := 0
	for _, rec := range st.History {
		if rec.Result == placement.ResultSkipped {
			skipped++
		}
	}
	return OutcomeRecord{
		SessionID:       sess.SessionID,
		UserID:          sess.UserID,
		Tier:            sess.Tier,
		Strategy:        st.Strategy,
		ExistingCount:   st.ExistingCount(),
		ComparisonsUsed: st.CompletedComparisons,
		MaxComparisons:  st.MaxComparisons,
		Skipped:         skipped,
		Contradiction:   placement.DetectContradictions(st.History),
		FinalPosition:   position,
		Status:          status,
		Duration:        closedAt.Sub(st.Metrics.StartedAt),
		CreatedAt:       closedAt,
	}
}

// #endregion

// #region stats

// Stats returns decay-weighted aggregates for one strategy. A strategy with
// no outcomes yields zero values.
func (m *OutcomeMemory) Stats(strategy placement.Strategy) (StrategyStats, error) {
	rows, err := m.db.Query(`
		SELECT comparisons_used, max_comparisons, skipped, contradiction, status, created_at
		FROM placement_outcomes
		WHERE strategy = ?`,
		string(strategy),
	)
	if err != nil {
		return StrategyStats{}, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	stats := StrategyStats{Strategy: strategy}
	now := m.now()

	var totalWeight, resolvedWeight float64
	var comparisons, budgetUse, contradictions float64
	var skippedSum float64

	for rows.Next() {
		var used, budget, skipped, contradiction int
		var status, createdAtStr string
		if err := rows.Scan(&used, &budget, &skipped, &contradiction, &status, &createdAtStr); err != nil {
			return StrategyStats{}, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / decayHours)

		stats.Sessions++
		if status == state.StatusCancelled {
			stats.Cancelled++
		}

		totalWeight += weight
		comparisons += weight * float64(used)
		if budget > 0 {
			budgetUse += weight * float64(used) / float64(budget)
		}
		skippedSum += weight * float64(skipped)
		if status == state.StatusResolved {
			resolvedWeight += weight
			contradictions += weight * float64(contradiction)
		}
	}
	if err := rows.Err(); err != nil {
		return StrategyStats{}, err
	}

	if totalWeight > 0 {
		stats.AvgComparisons = comparisons / totalWeight
		stats.AvgBudgetUse = budgetUse / totalWeight
	}
	if comparisons > 0 {
		stats.SkipRate = skippedSum / comparisons
	}
	if resolvedWeight > 0 {
		stats.ContradictionRate = contradictions / resolvedWeight
	}
	return stats, nil
}

// #endregion
