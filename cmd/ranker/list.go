package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/orchestrator"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// #region list

func listCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the ranked list for a tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			tier := placement.Tier(a.cfg.Placement.DefaultTier)
			entries, err := a.orch.Rankings().List(cmd.Context(), a.cfg.Placement.UserID, tier)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no items ranked in %s\n", tier)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tITEM\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.Rank, e.ItemID, e.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

// #endregion list

// #region remove

func removeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item>",
		Short: "Remove an item from its tier and close the gap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			tier := placement.Tier(a.cfg.Placement.DefaultTier)
			if err := a.orch.Remove(cmd.Context(), a.cfg.Placement.UserID, tier, placement.ItemID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[0], tier)
			return nil
		},
	}
}

// #endregion remove

// #region stats

func statsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show decay-weighted outcome stats per strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tSESSIONS\tCANCELLED\tAVG Q\tBUDGET USE\tSKIP RATE\tCYCLES")
			for _, s := range placement.Strategies() {
				st, err := a.orch.Outcomes().Stats(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.0f%%\t%.0f%%\t%.0f%%\n",
					st.Strategy, st.Sessions, st.Cancelled, st.AvgComparisons,
					st.AvgBudgetUse*100, st.SkipRate*100, st.ContradictionRate*100)
			}
			return w.Flush()
		},
	}
}

// #endregion stats

// #region metrics

func metricsCmd(g *globals) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Export per-strategy outcome stats in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			reg := prometheus.NewRegistry()
			if err := reg.Register(orchestrator.NewStatsCollector(a.orch.Outcomes())); err != nil {
				return err
			}
			if out != "" {
				return prometheus.WriteToTextfile(out, reg)
			}

			families, err := reg.Gather()
			if err != nil {
				return err
			}
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a textfile instead of stdout")
	return cmd
}

// #endregion metrics
