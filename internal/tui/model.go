// Package tui is a full-screen comparison prompt for one placement session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/orchestrator"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
)

// Placer is the slice of the orchestrator the prompt drives.
type Placer interface {
	Answer(ctx context.Context, sessionID string, comparisonID placement.ItemID, result placement.Result) (orchestrator.Progress, error)
	Undo(ctx context.Context, sessionID string) (orchestrator.Progress, error)
	Finish(ctx context.Context, sessionID string) (orchestrator.Placement, error)
	Cancel(ctx context.Context, sessionID string) error
}

type progressMsg orchestrator.Progress

type placedMsg orchestrator.Placement

type cancelledMsg struct{}

type errMsg struct{ err error }

// Model is the bubbletea model for one session.
type Model struct {
	ctx      context.Context
	placer   Placer
	progress orchestrator.Progress
	help     help.Model

	busy      bool
	err       error
	placed    *orchestrator.Placement
	cancelled bool
	quitting  bool
}

// New creates a prompt positioned at p, usually the result of Start or Current.
// A session with nothing left to ask starts busy, since Init finishes it.
func New(ctx context.Context, placer Placer, p orchestrator.Progress) Model {
	return Model{ctx: ctx, placer: placer, progress: p, help: help.New(), busy: !p.HasNext}
}

// Placed returns the final placement once the session resolved.
func (m Model) Placed() (orchestrator.Placement, bool) {
	if m.placed == nil {
		return orchestrator.Placement{}, false
	}
	return *m.placed, true
}

// Cancelled reports whether the user cancelled the session.
func (m Model) Cancelled() bool { return m.cancelled }

// Init starts resolution straight away when there is nothing to ask.
func (m Model) Init() tea.Cmd {
	if !m.progress.HasNext {
		return m.finish()
	}
	return nil
}

// #region update

// Update handles key presses and orchestrator replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case progressMsg:
		m.busy = false
		m.err = nil
		m.progress = orchestrator.Progress(msg)
		if !m.progress.HasNext {
			m.busy = true
			return m, m.finish()
		}

	case placedMsg:
		p := orchestrator.Placement(msg)
		m.placed = &p
		m.busy = false
		return m, tea.Quit

	case cancelledMsg:
		m.cancelled = true
		m.busy = false
		return m, tea.Quit

	case errMsg:
		m.busy = false
		m.err = msg.err
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy || m.placed != nil || m.cancelled {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Better):
		return m.answer(placement.ResultBetter)
	case key.Matches(msg, keys.Worse):
		return m.answer(placement.ResultWorse)
	case key.Matches(msg, keys.Skip):
		return m.answer(placement.ResultSkipped)
	case key.Matches(msg, keys.Undo):
		m.busy = true
		return m, m.undo()
	case key.Matches(msg, keys.Done):
		m.busy = true
		return m, m.finish()
	case key.Matches(msg, keys.Cancel):
		m.busy = true
		return m, m.cancel()
	}
	return m, nil
}

func (m Model) answer(r placement.Result) (tea.Model, tea.Cmd) {
	if !m.progress.HasNext {
		return m, nil
	}
	m.busy = true
	id, cmp := m.progress.Session.SessionID, m.progress.Next
	return m, func() tea.Msg {
		p, err := m.placer.Answer(m.ctx, id, cmp, r)
		if err != nil {
			return errMsg{err}
		}
		return progressMsg(p)
	}
}

func (m Model) undo() tea.Cmd {
	id := m.progress.Session.SessionID
	return func() tea.Msg {
		p, err := m.placer.Undo(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return progressMsg(p)
	}
}

func (m Model) finish() tea.Cmd {
	id := m.progress.Session.SessionID
	return func() tea.Msg {
		p, err := m.placer.Finish(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return placedMsg(p)
	}
}

func (m Model) cancel() tea.Cmd {
	id := m.progress.Session.SessionID
	return func() tea.Msg {
		if err := m.placer.Cancel(m.ctx, id); err != nil {
			return errMsg{err}
		}
		return cancelledMsg{}
	}
}

// #endregion update

// #region view

// View renders the current question.
func (m Model) View() string {
	st := m.progress.State
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Placing %s in %s", st.ItemID, st.Tier)))
	b.WriteString("\n")

	switch {
	case m.placed != nil:
		b.WriteString(DoneStyle.Render(fmt.Sprintf("%s placed at #%d", st.ItemID, m.placed.Position)))
		b.WriteString("\n")
		return b.String()
	case m.cancelled:
		b.WriteString(BoundsStyle.Render("cancelled, nothing ranked"))
		b.WriteString("\n")
		return b.String()
	case m.quitting:
		b.WriteString(BoundsStyle.Render("session left open"))
		b.WriteString("\n")
		return b.String()
	}

	if m.progress.HasNext {
		q := fmt.Sprintf("Question %d of at most %d\n\nIs %s better or worse than #%d %s?",
			st.CompletedComparisons+1, st.MaxComparisons,
			ItemStyle.Render(string(st.ItemID)),
			st.Ranks[m.progress.Next], ItemStyle.Render(string(m.progress.Next)))
		b.WriteString(QuestionStyle.Render(q))
		b.WriteString("\n")
	}
	b.WriteString(BoundsStyle.Render(fmt.Sprintf("position between %d and %d", st.Bounds.Lower, st.Bounds.Upper)))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(HelpStyle.Render(m.help.View(keys)))
	return b.String()
}

// #endregion view

// Run drives the prompt on the terminal until the session resolves, is
// cancelled, or the user quits.
func Run(ctx context.Context, placer Placer, p orchestrator.Progress) (Model, error) {
	final, err := tea.NewProgram(New(ctx, placer, p), tea.WithContext(ctx)).Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
