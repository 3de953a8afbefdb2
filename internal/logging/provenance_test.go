package logging

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Compare(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{
		SessionID:    "s1",
		VersionID:    "v2",
		Event:        EventCompare,
		ComparisonID: "C",
		Result:       "better",
		Lower:        1,
		Upper:        3,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListDecisions(db, "s1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].ComparisonID != "C" || got[0].Result != "better" {
		t.Errorf("unexpected comparison fields: %+v", got[0])
	}
	if got[0].Lower != 1 || got[0].Upper != 3 {
		t.Errorf("bounds = %d..%d, want 1..3", got[0].Lower, got[0].Upper)
	}
	if got[0].Position != 0 {
		t.Errorf("expected no position on a compare entry, got %d", got[0].Position)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogDecision(db, DecisionEntry{SessionID: "s1", VersionID: "v1", Event: EventUndo}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListDecisions(db, "s1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if got[0].CreatedAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFieldsAreNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := DecisionEntry{SessionID: "s1", VersionID: "v1", Event: EventResolve, Lower: 2, Upper: 2, Position: 2}
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var comparisonID, result, reason sql.NullString
	var pos sql.NullInt64
	db.QueryRow("SELECT comparison_id, result, reason, position FROM decision_log").Scan(
		&comparisonID, &result, &reason, &pos,
	)
	if comparisonID.Valid || result.Valid || reason.Valid {
		t.Error("expected NULL for empty optional strings")
	}
	if !pos.Valid || pos.Int64 != 2 {
		t.Errorf("position = %+v, want 2", pos)
	}
}

func TestListDecisions_OrderAndFilter(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for _, e := range []DecisionEntry{
		{SessionID: "s1", VersionID: "v1", Event: EventCompare, ComparisonID: "A", Result: "worse"},
		{SessionID: "s2", VersionID: "x1", Event: EventCancel},
		{SessionID: "s1", VersionID: "v2", Event: EventCompare, ComparisonID: "B", Result: "skipped"},
	} {
		if err := LogDecision(db, e); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := ListDecisions(db, "s1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 2 || got[0].ComparisonID != "A" || got[1].ComparisonID != "B" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogDecision(db, DecisionEntry{SessionID: "s1", VersionID: "v1", Event: EventCompare}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region logger-tests
func TestInit_JSONOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("hidden")
	Warn().Str("session", "s1").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message emitted at warn level: %s", out)
	}
	if !strings.Contains(out, `"session":"s1"`) || !strings.Contains(out, "shown") {
		t.Errorf("expected structured warn line, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"WARNING": "warn",
		"bogus":   "info",
		"":        "info",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

// #endregion logger-tests
