package eval

// #region eval-config
// EvalConfig controls which checks block a transition.
type EvalConfig struct {
	// FailOnContradiction turns the contradiction check from informational
	// into blocking. Contradictory answers are legal user input, so the
	// default leaves it off.
	FailOnContradiction bool
}

// DefaultEvalConfig returns the configuration the orchestrator runs with.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-transition validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
