package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

func TestStatsCollector(t *testing.T) {
	mem, err := NewOutcomeMemory(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }

	for _, rec := range []OutcomeRecord{
		{SessionID: "s1", Strategy: placement.StrategySimple, ComparisonsUsed: 2, MaxComparisons: 2,
			Status: state.StatusResolved, CreatedAt: now},
		{SessionID: "s2", Strategy: placement.StrategySimple, ComparisonsUsed: 1, MaxComparisons: 2,
			Skipped: 1, Status: state.StatusCancelled, CreatedAt: now},
	} {
		if err := mem.RecordOutcome(rec); err != nil {
			t.Fatal(err)
		}
	}

	c := NewStatsCollector(mem)
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	// six gauges per strategy plus the error gauge
	if got := testutil.CollectAndCount(c); got != len(placement.Strategies())*6+1 {
		t.Errorf("collected %d metrics, want %d", got, len(placement.Strategies())*6+1)
	}

	want := `
# HELP ranker_strategy_sessions Closed sessions recorded for the strategy
# TYPE ranker_strategy_sessions gauge
ranker_strategy_sessions{strategy="direct"} 0
ranker_strategy_sessions{strategy="full_zone"} 0
ranker_strategy_sessions{strategy="simple"} 2
ranker_strategy_sessions{strategy="two_zone"} 0
# HELP ranker_strategy_skip_ratio Decay-weighted share of answers that were skips
# TYPE ranker_strategy_skip_ratio gauge
ranker_strategy_skip_ratio{strategy="direct"} 0
ranker_strategy_skip_ratio{strategy="full_zone"} 0
ranker_strategy_skip_ratio{strategy="simple"} 0.3333333333333333
ranker_strategy_skip_ratio{strategy="two_zone"} 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"ranker_strategy_sessions", "ranker_strategy_skip_ratio"); err != nil {
		t.Error(err)
	}
}
