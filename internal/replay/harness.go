package replay

import (
	"fmt"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/eval"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region types

// Step is one question asked during a replay.
type Step struct {
	Index        int
	ComparisonID placement.ItemID
	Rank         int
	Result       placement.Result
	Bounds       placement.Bounds // after the answer
	Eval         eval.EvalResult
}

// ReplayResult captures the outcome of replaying one fixture through the engine.
type ReplayResult struct {
	Description   string
	Steps         []Step
	Final         placement.State
	Position      int
	Contradiction bool
	Passed        bool
	Divergence    string // first mismatch against the fixture's expectations
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total       int
	Passed      int
	Failed      int
	Comparisons int
}

// #endregion types

// #region replay

// Replay drives the pure engine through one fixture in memory: select,
// answer, apply, validate, until the engine stops asking, then resolve.
func Replay(f *Fixture) (ReplayResult, error) {
	if err := f.Validate(); err != nil {
		return ReplayResult{}, err
	}

	ranks := f.RankMap()
	st := placement.NewState(placement.ItemID(f.ItemID), placement.Tier(f.Tier), len(ranks), ranks)
	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())
	result := ReplayResult{Description: f.Description}
	evalsPassed := true

	for i := 0; ; i++ {
		if f.StopAfterSequence && i >= len(f.Sequence) {
			break
		}
		id, ok := placement.SelectNext(st, placement.Available(st))
		if !ok {
			break
		}
		answer := f.answerFor(i, id, st.Ranks[id])
		next := placement.ApplyResult(st, id, answer)

		ev := harness.Run(&st, next)
		if !ev.Passed {
			evalsPassed = false
		}
		result.Steps = append(result.Steps, Step{
			Index:        i,
			ComparisonID: id,
			Rank:         st.Ranks[id],
			Result:       answer,
			Bounds:       next.Bounds,
			Eval:         ev,
		})
		st = next
	}

	result.Final = st
	result.Position = placement.ResolveFinalPosition(st)
	result.Contradiction = placement.DetectContradictions(st.History)
	result.Divergence = f.diverges(result)
	if result.Divergence == "" && !evalsPassed {
		result.Divergence = "an invariant check failed during replay"
	}
	result.Passed = result.Divergence == ""
	return result, nil
}

func (f *Fixture) answerFor(i int, id placement.ItemID, rank int) placement.Result {
	if i < len(f.Sequence) {
		return placement.Result(f.Sequence[i])
	}
	if r, ok := f.Answers[string(id)]; ok {
		return placement.Result(r)
	}
	if f.TruthRank > 0 {
		if f.TruthRank <= rank {
			return placement.ResultBetter
		}
		return placement.ResultWorse
	}
	return placement.ResultSkipped
}

func (f *Fixture) diverges(r ReplayResult) string {
	if want := f.Expected.Questions; len(want) > 0 {
		if len(want) != len(r.Steps) {
			return fmt.Sprintf("asked %d questions, expected %d", len(r.Steps), len(want))
		}
		for i, s := range r.Steps {
			if string(s.ComparisonID) != want[i] {
				return fmt.Sprintf("question %d: asked %s, expected %s", i+1, s.ComparisonID, want[i])
			}
		}
	}
	if f.Expected.Position > 0 && r.Position != f.Expected.Position {
		return fmt.Sprintf("position %d, expected %d", r.Position, f.Expected.Position)
	}
	return ""
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		s.Comparisons += len(r.Steps)
	}
	return s
}

// #endregion replay
