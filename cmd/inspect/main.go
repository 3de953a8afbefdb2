package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/graph"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/logging"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to ranker.db")
	last := flag.Int("last", 20, "show N most recent sessions or versions")
	status := flag.String("status", "", "filter sessions by status (open, resolved, cancelled)")
	session := flag.String("session", "", "show one session with its version chain and decision log")
	user := flag.String("user", "", "with --tier: show the user's preference graph")
	tier := flag.String("tier", "", "with --user: tier to show preferences for")
	beaten := flag.String("beaten", "", "with --user and --tier: list items transitively beaten by this item")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ranker.db [--last N] [--status s] [--session id] [--user u --tier t [--beaten item]] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *user != "" && *tier != "":
		err = runPreferenceMode(store, *user, placement.Tier(*tier), placement.ItemID(*beaten), *jsonOut)
	case *session != "":
		err = runDetailMode(ctx, store, *session, *last, *jsonOut)
	default:
		err = runListMode(ctx, store, *status, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type sessionRow struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	Tier          string `json:"tier"`
	ItemID        string `json:"item_id"`
	Status        string `json:"status"`
	FinalPosition int    `json:"final_position,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

func toRow(s state.Session) sessionRow {
	return sessionRow{
		SessionID:     s.SessionID,
		UserID:        s.UserID,
		Tier:          string(s.Tier),
		ItemID:        string(s.ItemID),
		Status:        s.Status,
		FinalPosition: s.FinalPosition,
		UpdatedAt:     s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func runListMode(ctx context.Context, store *state.Store, status string, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(ctx, status, last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = toRow(s)
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-10s  %-10s  %-16s  %-9s  %8s  %s\n",
		"Session", "User", "Tier", "Item", "Status", "Position", "Updated")
	for _, r := range rows {
		pos := "-"
		if r.FinalPosition > 0 {
			pos = fmt.Sprintf("%d", r.FinalPosition)
		}
		fmt.Printf("%-10s  %-10s  %-10s  %-16s  %-9s  %8s  %s\n",
			shortID(r.SessionID), r.UserID, r.Tier, r.ItemID, r.Status, pos, r.UpdatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type versionRow struct {
	VersionID   string           `json:"version_id"`
	ParentID    string           `json:"parent_id,omitempty"`
	Completed   int              `json:"completed"`
	Bounds      placement.Bounds `json:"bounds"`
	LastCompare string           `json:"last_compare,omitempty"`
	LastResult  string           `json:"last_result,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

type decisionRow struct {
	Event        string `json:"event"`
	VersionID    string `json:"version_id,omitempty"`
	ComparisonID string `json:"comparison_id,omitempty"`
	Result       string `json:"result,omitempty"`
	Lower        int    `json:"lower"`
	Upper        int    `json:"upper"`
	Position     int    `json:"position,omitempty"`
	Reason       string `json:"reason,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type detailOutput struct {
	Session   sessionRow      `json:"session"`
	Strategy  string          `json:"strategy"`
	Budget    int             `json:"max_comparisons"`
	Versions  []versionRow    `json:"versions"`
	Decisions []decisionRow   `json:"decisions"`
	Zones     placement.Zones `json:"zones"`
	Zone      placement.Zone  `json:"current_zone"`
	ZoneSpan  placement.Span  `json:"current_zone_span"`
}

func runDetailMode(ctx context.Context, store *state.Store, sessionID string, last int, jsonOut bool) error {
	sess, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	cur, err := store.GetCurrent(ctx, sessionID)
	if err != nil {
		return err
	}
	versions, err := store.ListVersions(ctx, sessionID, last)
	if err != nil {
		return err
	}
	decisions, err := logging.ListDecisions(store.DB(), sessionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		Session:  toRow(sess),
		Strategy: string(cur.State.Strategy),
		Budget:   cur.State.MaxComparisons,
		Zones:    cur.State.Zones,
		Zone:     cur.State.CurrentZone,
		ZoneSpan: cur.State.Zones.Get(cur.State.CurrentZone),
	}
	// store returns newest first; show chronologically
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		row := versionRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Completed: v.State.CompletedComparisons,
			Bounds:    v.State.Bounds,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if h := v.State.History; len(h) > 0 {
			row.LastCompare = string(h[len(h)-1].ComparisonID)
			row.LastResult = string(h[len(h)-1].Result)
		}
		out.Versions = append(out.Versions, row)
	}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, decisionRow{
			Event:        d.Event,
			VersionID:    d.VersionID,
			ComparisonID: d.ComparisonID,
			Result:       d.Result,
			Lower:        d.Lower,
			Upper:        d.Upper,
			Position:     d.Position,
			Reason:       d.Reason,
			CreatedAt:    d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:   %s\n", sess.SessionID)
	fmt.Printf("Item:      %s -> %s (%s)\n", sess.ItemID, sess.Tier, sess.UserID)
	fmt.Printf("Status:    %s\n", sess.Status)
	if sess.FinalPosition > 0 {
		fmt.Printf("Position:  %d\n", sess.FinalPosition)
	}
	fmt.Printf("Strategy:  %s (budget %d)\n", out.Strategy, out.Budget)
	fmt.Printf("Zone:      %s (ranks %d-%d)\n", out.Zone, out.ZoneSpan.Start, out.ZoneSpan.End)

	fmt.Printf("\nVersions:\n")
	fmt.Printf("  %-10s  %-10s  %4s  %-9s  %s\n", "Version", "Parent", "Done", "Bounds", "Last answer")
	for _, v := range out.Versions {
		last := "-"
		if v.LastCompare != "" {
			last = v.LastCompare + " " + v.LastResult
		}
		parent := "-"
		if v.ParentID != "" {
			parent = shortID(v.ParentID)
		}
		fmt.Printf("  %-10s  %-10s  %4d  %-9s  %s\n",
			shortID(v.VersionID), parent, v.Completed, fmt.Sprintf("[%d,%d]", v.Bounds.Lower, v.Bounds.Upper), last)
	}

	fmt.Printf("\nDecision log:\n")
	for _, d := range out.Decisions {
		switch d.Event {
		case logging.EventCompare:
			fmt.Printf("  %-8s %s %s -> [%d,%d]\n", d.Event, d.ComparisonID, d.Result, d.Lower, d.Upper)
		case logging.EventResolve:
			fmt.Printf("  %-8s #%d %s\n", d.Event, d.Position, d.Reason)
		default:
			fmt.Printf("  %-8s [%d,%d]\n", d.Event, d.Lower, d.Upper)
		}
	}
	return nil
}

// #endregion detail-mode

// #region preference-mode

func runPreferenceMode(store *state.Store, user string, tier placement.Tier, beaten placement.ItemID, jsonOut bool) error {
	g, err := graph.NewGraphStore(store.DB())
	if err != nil {
		return err
	}

	if beaten != "" {
		items, err := g.Beaten(user, tier, beaten, 0)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(items)
		}
		fmt.Printf("%s beats (directly or transitively):\n", beaten)
		for _, id := range items {
			fmt.Printf("  %s\n", id)
		}
		return nil
	}

	edges, err := g.Preferences(user, tier)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(edges)
	}
	if len(edges) == 0 {
		fmt.Fprintln(os.Stderr, "no preferences recorded")
		return nil
	}
	fmt.Printf("%-16s  %-16s  %s\n", "Winner", "Loser", "Weight")
	for _, e := range edges {
		fmt.Printf("%-16s  %-16s  %d\n", e.WinnerID, e.LoserID, e.Weight)
	}
	return nil
}

// #endregion preference-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
