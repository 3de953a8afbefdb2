package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/replay"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ranker.db (DB mode: replay resolved sessions)")
	fixturePath := flag.String("fixture", "", "fixture JSON file or directory of fixtures (fixture mode)")
	last := flag.Int("last", 100, "DB mode: replay the N most recent resolved sessions")
	verbose := flag.Bool("v", false, "print every question")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/ranker.db [--last N] [-v]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json|dir [-v]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *verbose)
	} else {
		exitCode = runDBMode(*dbPath, *last, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode re-derives every resolved session from its recorded answers and
// checks the engine still asks the same questions and lands on the same
// position.
func runDBMode(dbPath string, last int, verbose bool) int {
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	ctx := context.Background()
	sessions, err := store.ListSessions(ctx, state.StatusResolved, last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list sessions: %v\n", err)
		return 2
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no resolved sessions found")
		return 2
	}

	var fixtures []*replay.Fixture
	for _, sess := range sessions {
		snap, err := store.GetCurrent(ctx, sess.SessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", sess.SessionID, err)
			return 2
		}
		f, err := replay.FromSession(sess, snap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export %s: %v\n", sess.SessionID, err)
			return 2
		}
		fixtures = append(fixtures, f)
	}
	return replayAll(fixtures, verbose)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string, verbose bool) int {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stat %s: %v\n", path, err)
		return 2
	}

	var fixtures []*replay.Fixture
	if info.IsDir() {
		fixtures, err = replay.LoadFixtures(path)
	} else {
		var f *replay.Fixture
		f, err = replay.LoadFixture(path)
		fixtures = []*replay.Fixture{f}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if len(fixtures) == 0 {
		fmt.Fprintf(os.Stderr, "no fixtures in %s\n", filepath.Clean(path))
		return 2
	}
	return replayAll(fixtures, verbose)
}

// #endregion fixture-mode

// #region output

func replayAll(fixtures []*replay.Fixture, verbose bool) int {
	results := make([]replay.ReplayResult, 0, len(fixtures))
	for _, f := range fixtures {
		r, err := replay.Replay(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay %q: %v\n", f.Description, err)
			return 2
		}
		results = append(results, r)
	}
	return printComparison(results, verbose)
}

// printComparison outputs one row per fixture and returns the exit code.
func printComparison(results []replay.ReplayResult, verbose bool) int {
	fmt.Printf("%-40s| %-9s| %-9s| %s\n", "Fixture", "Questions", "Position", "Match")
	fmt.Printf("%-40s+%-10s+%-10s+%s\n",
		"----------------------------------------", "----------", "----------", "------")

	for _, r := range results {
		match := "OK"
		if !r.Passed {
			match = "DIFF: " + r.Divergence
		}
		fmt.Printf("%-40s| %-9d| %-9d| %s\n", truncate(r.Description, 40), len(r.Steps), r.Position, match)

		if verbose {
			for _, s := range r.Steps {
				fmt.Printf("    %d. %-12s #%-4d %-8s -> [%d,%d]\n",
					s.Index+1, s.ComparisonID, s.Rank, s.Result, s.Bounds.Lower, s.Bounds.Upper)
			}
		}
	}

	sum := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge, %d questions asked\n",
		sum.Total, sum.Passed, sum.Failed, sum.Comparisons)

	if sum.Failed > 0 {
		return 1
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

// #endregion output
