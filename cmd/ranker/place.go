package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/orchestrator"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/tui"
)

// #region commands

func placeCmd(g *globals) *cobra.Command {
	var fullScreen bool
	cmd := &cobra.Command{
		Use:   "place <item>",
		Short: "Place a new item by answering comparison questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			p, err := a.orch.Start(ctx, a.cfg.Placement.UserID, placement.Tier(a.cfg.Placement.DefaultTier), placement.ItemID(args[0]))
			if err != nil {
				return err
			}
			if fullScreen {
				return runFullScreen(ctx, a.orch, p, cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: placing %s among %d items in %s (up to %d questions)\n",
				p.Session.SessionID, p.State.ItemID, p.State.ExistingCount(), p.State.Tier, p.State.MaxComparisons)
			_, err = runSession(ctx, a.orch, p.Session.SessionID, cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&fullScreen, "tui", false, "use the full-screen prompt")
	return cmd
}

func resumeCmd(g *globals) *cobra.Command {
	var fullScreen bool
	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Continue an open placement session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.orch.Current(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p.Session.Status != state.StatusOpen {
				return fmt.Errorf("session %s is %s", args[0], p.Session.Status)
			}
			if fullScreen {
				return runFullScreen(cmd.Context(), a.orch, p, cmd.OutOrStdout())
			}
			_, err = runSession(cmd.Context(), a.orch, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&fullScreen, "tui", false, "use the full-screen prompt")
	return cmd
}

func runFullScreen(ctx context.Context, o *orchestrator.Orchestrator, p orchestrator.Progress, out io.Writer) error {
	m, err := tui.Run(ctx, o, p)
	if err != nil {
		return err
	}
	if placed, ok := m.Placed(); ok {
		fmt.Fprintf(out, "%s placed at #%d in %s\n", placed.Session.ItemID, placed.Position, placed.Session.Tier)
	} else if !m.Cancelled() {
		fmt.Fprintf(out, "session %s left open; resume with: ranker resume %s\n", p.Session.SessionID, p.Session.SessionID)
	}
	return nil
}

// #endregion commands

// #region session-loop

const prompt = "[b]etter  [w]orse  [s]kip  [u]ndo  [d]one  [c]ancel > "

// runSession asks questions until the engine stops, the user finishes early,
// or the user cancels. It returns the final position, or 0 when cancelled
// or when input ran out before a decision.
func runSession(ctx context.Context, o *orchestrator.Orchestrator, sessionID string, in io.Reader, out io.Writer) (int, error) {
	p, err := o.Current(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	scanner := bufio.NewScanner(in)

	for p.HasNext {
		fmt.Fprintf(out, "\nQ%d/%d  Is %s better or worse than #%d %s?\n%s",
			p.State.CompletedComparisons+1, p.State.MaxComparisons,
			p.State.ItemID, p.State.Ranks[p.Next], p.Next, prompt)
		if !scanner.Scan() {
			fmt.Fprintf(out, "\nsession %s left open; resume with: ranker resume %s\n", sessionID, sessionID)
			return 0, scanner.Err()
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "b", "better":
			p, err = o.Answer(ctx, sessionID, p.Next, placement.ResultBetter)
		case "w", "worse":
			p, err = o.Answer(ctx, sessionID, p.Next, placement.ResultWorse)
		case "s", "skip":
			p, err = o.Answer(ctx, sessionID, p.Next, placement.ResultSkipped)
		case "u", "undo":
			prev, undoErr := o.Undo(ctx, sessionID)
			if errors.Is(undoErr, state.ErrNothingToUndo) {
				fmt.Fprintln(out, "nothing to undo")
				continue
			}
			p, err = prev, undoErr
		case "d", "done":
			return finish(ctx, o, sessionID, out)
		case "c", "cancel":
			if err := o.Cancel(ctx, sessionID); err != nil {
				return 0, err
			}
			fmt.Fprintln(out, "cancelled")
			return 0, nil
		default:
			fmt.Fprintln(out, "unrecognised answer")
			continue
		}
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(out, "  position now between %d and %d\n", p.State.Bounds.Lower, p.State.Bounds.Upper)
	}

	return finish(ctx, o, sessionID, out)
}

func finish(ctx context.Context, o *orchestrator.Orchestrator, sessionID string, out io.Writer) (int, error) {
	placed, err := o.Finish(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(out, "\n%s placed at #%d in %s\n", placed.Session.ItemID, placed.Position, placed.Session.Tier)
	return placed.Position, nil
}

// #endregion session-loop
