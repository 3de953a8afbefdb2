package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/graph"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/ranking"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region main
func main() {
	dbPath := flag.String("db", envOr("RANKER_DATABASE_PATH", "ranker.db"), "path to ranker.db")
	last := flag.Int("last", 0, "rebuild from the N most recent resolved sessions (0 = all)")
	flag.Parse()

	fmt.Println("=== Preference Graph Rebuild ===")
	fmt.Printf("  DB: %s\n", *dbPath)

	store, err := state.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	graphStore, err := graph.NewGraphStore(store.DB())
	if err != nil {
		log.Fatalf("failed to init graph store: %v", err)
	}
	rankings, err := ranking.NewStore(store.DB())
	if err != nil {
		log.Fatalf("failed to init ranking store: %v", err)
	}

	ctx := context.Background()
	sessions, err := store.ListSessions(ctx, state.StatusResolved, *last)
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	fmt.Printf("%d resolved sessions found.\n", len(sessions))
	if len(sessions) == 0 {
		fmt.Println("Nothing to rebuild. Done.")
		return
	}

	// Phase 1: wipe every tier the sessions touch, then replay their answers
	fmt.Println("\n--- Phase 1: Replay Answers ---")
	type tierKey struct {
		user string
		tier placement.Tier
	}
	cleared := map[tierKey]bool{}
	recorded := 0
	// ListSessions is newest first; replay oldest first so weights accrue in order
	for i := len(sessions) - 1; i >= 0; i-- {
		sess := sessions[i]
		key := tierKey{sess.UserID, sess.Tier}
		if !cleared[key] {
			if err := graphStore.Clear(sess.UserID, sess.Tier); err != nil {
				log.Fatalf("clear %s/%s: %v", sess.UserID, sess.Tier, err)
			}
			cleared[key] = true
		}

		snap, err := store.GetCurrent(ctx, sess.SessionID)
		if err != nil {
			log.Printf("load %s: %v", sess.SessionID, err)
			continue
		}
		if err := graphStore.RecordPlacement(sess.UserID, snap.State); err != nil {
			log.Printf("record %s: %v", sess.SessionID, err)
			continue
		}
		recorded++
	}
	fmt.Printf("  Sessions replayed: %d\n", recorded)

	// Phase 2: drop edges touching items no longer ranked
	fmt.Println("\n--- Phase 2: Prune Removed Items ---")
	pruned := 0
	for key := range cleared {
		ranks, err := rankings.RankMap(ctx, key.user, key.tier)
		if err != nil {
			log.Fatalf("rank map %s/%s: %v", key.user, key.tier, err)
		}
		edges, err := graphStore.Preferences(key.user, key.tier)
		if err != nil {
			log.Fatalf("preferences %s/%s: %v", key.user, key.tier, err)
		}
		stale := map[placement.ItemID]bool{}
		for _, e := range edges {
			for _, id := range []placement.ItemID{e.WinnerID, e.LoserID} {
				if _, ok := ranks[id]; !ok {
					stale[id] = true
				}
			}
		}
		for id := range stale {
			if err := graphStore.SeverItem(key.user, key.tier, id); err != nil {
				log.Printf("sever %s: %v", id, err)
				continue
			}
			pruned++
		}
	}
	fmt.Printf("  Items pruned: %d\n", pruned)

	fmt.Printf("\n=== Rebuild Complete ===\n")
	fmt.Printf("  Tiers rebuilt: %d\n", len(cleared))
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
