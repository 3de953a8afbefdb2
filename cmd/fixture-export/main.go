package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/replay"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ranker.db")
	sessionID := flag.String("session", "", "resolved session to export (default: most recent resolved)")
	outPath := flag.String("out", "", "output fixture JSON path")
	description := flag.String("description", "", "fixture description (default: session id)")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/ranker.db --out path/to/fixture.json [--session id] [--description text]")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *outPath, *description); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, sessionID, outPath, description string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	sess, err := pickSession(ctx, store, sessionID)
	if err != nil {
		return err
	}
	snap, err := store.GetCurrent(ctx, sess.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sess.SessionID, err)
	}

	f, err := replay.FromSession(sess, snap)
	if err != nil {
		return err
	}
	if description != "" {
		f.Description = description
	}

	// refuse to write a fixture that does not reproduce its own session
	r, err := replay.Replay(f)
	if err != nil {
		return fmt.Errorf("replay export: %w", err)
	}
	if !r.Passed {
		return fmt.Errorf("session %s does not replay cleanly: %s", sess.SessionID, r.Divergence)
	}

	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d ranked items, %d answers, position %d)\n",
		outPath, len(f.Ranked), len(f.Sequence), f.Expected.Position)
	return nil
}

func pickSession(ctx context.Context, store *state.Store, sessionID string) (state.Session, error) {
	if sessionID != "" {
		return store.GetSession(ctx, sessionID)
	}
	sessions, err := store.ListSessions(ctx, state.StatusResolved, 1)
	if err != nil {
		return state.Session{}, err
	}
	if len(sessions) == 0 {
		return state.Session{}, errors.New("no resolved sessions found")
	}
	return sessions[0], nil
}

// #endregion extract
