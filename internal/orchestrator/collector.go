package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region stats-collector

// StatsCollector exports OutcomeMemory's decay-weighted per-strategy stats
// as gauges, read from the database on every scrape.
type StatsCollector struct {
	memory *OutcomeMemory

	sessions       *prometheus.Desc
	cancelled      *prometheus.Desc
	avgComparisons *prometheus.Desc
	budgetUse      *prometheus.Desc
	skipRate       *prometheus.Desc
	cycleRate      *prometheus.Desc
	scrapeErrors   *prometheus.Desc
}

// NewStatsCollector builds a collector over m.
func NewStatsCollector(m *OutcomeMemory) *StatsCollector {
	label := []string{"strategy"}
	return &StatsCollector{
		memory:         m,
		sessions:       prometheus.NewDesc("ranker_strategy_sessions", "Closed sessions recorded for the strategy", label, nil),
		cancelled:      prometheus.NewDesc("ranker_strategy_cancelled", "Cancelled sessions recorded for the strategy", label, nil),
		avgComparisons: prometheus.NewDesc("ranker_strategy_avg_comparisons", "Decay-weighted mean questions per session", label, nil),
		budgetUse:      prometheus.NewDesc("ranker_strategy_budget_use_ratio", "Decay-weighted mean share of the question budget used", label, nil),
		skipRate:       prometheus.NewDesc("ranker_strategy_skip_ratio", "Decay-weighted share of answers that were skips", label, nil),
		cycleRate:      prometheus.NewDesc("ranker_strategy_contradiction_ratio", "Decay-weighted share of resolved sessions with a preference cycle", label, nil),
		scrapeErrors:   prometheus.NewDesc("ranker_strategy_scrape_errors", "Strategies whose stats could not be read this scrape", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.cancelled
	ch <- c.avgComparisons
	ch <- c.budgetUse
	ch <- c.skipRate
	ch <- c.cycleRate
	ch <- c.scrapeErrors
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	failed := 0
	for _, s := range placement.Strategies() {
		st, err := c.memory.Stats(s)
		if err != nil {
			failed++
			continue
		}
		name := string(s)
		ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(st.Sessions), name)
		ch <- prometheus.MustNewConstMetric(c.cancelled, prometheus.GaugeValue, float64(st.Cancelled), name)
		ch <- prometheus.MustNewConstMetric(c.avgComparisons, prometheus.GaugeValue, st.AvgComparisons, name)
		ch <- prometheus.MustNewConstMetric(c.budgetUse, prometheus.GaugeValue, st.AvgBudgetUse, name)
		ch <- prometheus.MustNewConstMetric(c.skipRate, prometheus.GaugeValue, st.SkipRate, name)
		ch <- prometheus.MustNewConstMetric(c.cycleRate, prometheus.GaugeValue, st.ContradictionRate, name)
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeErrors, prometheus.GaugeValue, float64(failed))
}

// #endregion stats-collector
