package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
//
// Each question is answered from, in order: Sequence by comparison index,
// Answers by compared item, then a simulated user whose honest rank for the
// new item is TruthRank. A question none of them covers is skipped.
// StopAfterSequence ends the replay once Sequence runs out, the way a user
// finishing early would.
type Fixture struct {
	Description string            `json:"description"`
	Tier        string            `json:"tier"`
	ItemID      string            `json:"item_id"`
	Ranked      []string          `json:"ranked"` // best first
	Sequence    []string          `json:"sequence,omitempty"`
	Answers     map[string]string `json:"answers,omitempty"`
	TruthRank   int               `json:"truth_rank,omitempty"`

	StopAfterSequence bool `json:"stop_after_sequence,omitempty"`

	Expected FixtureExpected `json:"expected"`
}

// FixtureExpected is what a replay must reproduce. Zero values are not checked.
type FixtureExpected struct {
	Position  int      `json:"position,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

// #endregion fixture-types

// #region fixture-validate

// Validate checks the fixture is replayable.
func (f *Fixture) Validate() error {
	if f.ItemID == "" {
		return fmt.Errorf("fixture %q: item_id is required", f.Description)
	}
	seen := make(map[string]bool, len(f.Ranked))
	for _, id := range f.Ranked {
		if id == f.ItemID {
			return fmt.Errorf("fixture %q: item %s is already ranked", f.Description, id)
		}
		if seen[id] {
			return fmt.Errorf("fixture %q: duplicate ranked item %s", f.Description, id)
		}
		seen[id] = true
	}
	for i, r := range f.Sequence {
		if !placement.Result(r).Valid() {
			return fmt.Errorf("fixture %q: sequence[%d]: invalid result %q", f.Description, i, r)
		}
	}
	for id, r := range f.Answers {
		if !placement.Result(r).Valid() {
			return fmt.Errorf("fixture %q: answers[%s]: invalid result %q", f.Description, id, r)
		}
	}
	if f.TruthRank < 0 || f.TruthRank > len(f.Ranked)+1 {
		return fmt.Errorf("fixture %q: truth_rank %d outside 1..%d", f.Description, f.TruthRank, len(f.Ranked)+1)
	}
	return nil
}

// RankMap converts the ordered Ranked list into ranks starting at 1.
func (f *Fixture) RankMap() placement.RankMap {
	ranks := make(placement.RankMap, len(f.Ranked))
	for i, id := range f.Ranked {
		ranks[placement.ItemID(id)] = i + 1
	}
	return ranks
}

// #endregion fixture-validate

// #region fixture-loader

// LoadFixture reads, parses and validates a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixtures loads every *.json fixture in dir, sorted by file name.
func LoadFixtures(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	fixtures := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFixture(p)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region fixture-export

// FromSession builds a fixture that replays a resolved session's answers in
// order and expects its questions and recorded final position.
func FromSession(sess state.Session, snap state.Snapshot) (*Fixture, error) {
	if sess.Status != state.StatusResolved {
		return nil, fmt.Errorf("session %s is %s, not resolved", sess.SessionID, sess.Status)
	}
	st := snap.State

	ranked := make([]placement.ItemID, 0, len(st.Ranks))
	for id := range st.Ranks {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ri, rj := st.Ranks[ranked[i]], st.Ranks[ranked[j]]
		if ri != rj {
			return ri < rj
		}
		return ranked[i] < ranked[j]
	})

	f := &Fixture{
		Description: fmt.Sprintf("session %s", sess.SessionID),
		Tier:        string(sess.Tier),
		ItemID:      string(sess.ItemID),
		Expected:    FixtureExpected{Position: sess.FinalPosition},
	}
	for _, id := range ranked {
		f.Ranked = append(f.Ranked, string(id))
	}
	// finished before the engine ran out of questions
	f.StopAfterSequence = !st.IsComplete
	for _, rec := range st.History {
		f.Sequence = append(f.Sequence, string(rec.Result))
		f.Expected.Questions = append(f.Expected.Questions, string(rec.ComparisonID))
	}
	return f, nil
}

// #endregion fixture-export
