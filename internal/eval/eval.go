package eval

import (
	"fmt"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region eval-harness
// EvalHarness checks placement state transitions against the engine's invariants.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates next, the state produced from prev by one transition.
// A nil prev skips the monotonicity check.
func (h *EvalHarness) Run(prev *placement.State, next placement.State) EvalResult {
	var c checks
	n := next.ExistingCount()
	b := next.Bounds

	// 1. Bounds invariant
	c.add("bounds_valid", float64(b.Upper-b.Lower),
		1 <= b.Lower && b.Lower <= b.Upper && b.Upper <= n+1,
		fmt.Sprintf("bounds %d..%d outside 1..%d", b.Lower, b.Upper, n+1))

	// 2. Monotonicity: the feasible range never widens
	if prev != nil {
		pb := prev.Bounds
		width := float64((pb.Upper - pb.Lower) - (b.Upper - b.Lower))
		c.add("bounds_monotone", width,
			b.Lower >= pb.Lower && b.Upper <= pb.Upper,
			fmt.Sprintf("bounds widened from %d..%d to %d..%d", pb.Lower, pb.Upper, b.Lower, b.Upper))
	}

	// 3. Budget
	c.add("budget", float64(next.CompletedComparisons),
		next.CompletedComparisons <= next.MaxComparisons,
		fmt.Sprintf("%d comparisons exceed budget %d", next.CompletedComparisons, next.MaxComparisons))

	// 4. History matches the counter, every entry is marked compared
	historyOK := len(next.History) == next.CompletedComparisons
	for _, rec := range next.History {
		if !next.Compared[rec.ComparisonID] {
			historyOK = false
		}
	}
	c.add("history_length", float64(len(next.History)), historyOK,
		fmt.Sprintf("history length %d does not match %d completed", len(next.History), next.CompletedComparisons))

	// 5. Resolved position range
	pos := placement.ResolveFinalPosition(next)
	c.add("final_position", float64(pos), pos >= 1 && pos <= n+1,
		fmt.Sprintf("final position %d outside 1..%d", pos, n+1))

	// 6. Contradictions: informational unless configured
	contradiction := placement.DetectContradictions(next.History)
	var value float64
	if contradiction {
		value = 1
	}
	if h.config.FailOnContradiction {
		c.add("contradiction", value, !contradiction, "answers contain a preference cycle")
	} else {
		c.metrics = append(c.metrics, EvalMetric{Name: "contradiction", Value: value, Pass: !contradiction})
	}

	return c.result()
}

// #endregion eval-harness

// #region helpers
type checks struct {
	metrics  []EvalMetric
	failures []string
}

func (c *checks) add(name string, value float64, pass bool, failure string) {
	c.metrics = append(c.metrics, EvalMetric{Name: name, Value: value, Pass: pass})
	if !pass {
		c.failures = append(c.failures, failure)
	}
}

func (c *checks) result() EvalResult {
	reason := "all checks passed"
	if len(c.failures) == 1 {
		reason = fmt.Sprintf("eval failed: %s", c.failures[0])
	} else if len(c.failures) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(c.failures), c.failures[0])
	}
	return EvalResult{
		Passed:  len(c.failures) == 0,
		Metrics: c.metrics,
		Reason:  reason,
	}
}

// #endregion helpers
