package tui

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/course-rank/go-ranker/internal/orchestrator"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/placement"
	"github.com/danielpatrickdp/course-rank/go-ranker/internal/state"
)

func newModel(t *testing.T, ranked ...placement.ItemID) (Model, *orchestrator.Orchestrator) {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "ranker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	o, err := orchestrator.NewOrchestrator(store)
	require.NoError(t, err)

	ctx := context.Background()
	for i, id := range ranked {
		require.NoError(t, o.Rankings().Insert(ctx, "u1", "liked", id, i+1))
	}
	p, err := o.Start(ctx, "u1", "liked", "new")
	require.NoError(t, err)
	return New(ctx, o, p), o
}

func press(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// step feeds msg to m and keeps running returned commands until the model
// settles, ignoring tea.Quit.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for msg != nil {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			return m
		}
		msg = cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return m
		}
	}
	return m
}

func TestAnswersResolvePlacement(t *testing.T) {
	m, o := newModel(t, "A", "B", "C", "D", "E")
	assert.Contains(t, m.View(), "Is new better or worse than #3 C?")

	for i := 0; i < 3; i++ {
		m = step(t, m, press("b"))
	}

	placed, ok := m.Placed()
	require.True(t, ok)
	assert.Equal(t, 1, placed.Position)
	assert.Contains(t, m.View(), "new placed at #1")

	n, err := o.Rankings().Count(context.Background(), "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestUndoAtRootShowsError(t *testing.T) {
	m, _ := newModel(t, "A", "B", "C", "D", "E")

	m = step(t, m, press("u"))
	require.Error(t, m.err)
	assert.ErrorIs(t, m.err, state.ErrNothingToUndo)
	assert.False(t, m.busy)

	m = step(t, m, press("w"))
	assert.Nil(t, m.err)
	assert.Equal(t, 4, m.progress.State.Bounds.Lower)

	m = step(t, m, press("u"))
	assert.Equal(t, 1, m.progress.State.Bounds.Lower)
	assert.Equal(t, 0, m.progress.State.CompletedComparisons)
}

func TestCancelKeepsTierUnchanged(t *testing.T) {
	m, o := newModel(t, "A", "B", "C")

	m = step(t, m, press("c"))
	assert.True(t, m.Cancelled())
	_, ok := m.Placed()
	assert.False(t, ok)

	n, err := o.Rankings().Count(context.Background(), "u1", "liked")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestQuitLeavesSessionOpen(t *testing.T) {
	m, o := newModel(t, "A", "B", "C")
	id := m.progress.Session.SessionID

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "session left open")

	p, err := o.Current(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, state.StatusOpen, p.Session.Status)
}

func TestEmptyTierResolvesOnInit(t *testing.T) {
	m, _ := newModel(t)

	cmd := m.Init()
	require.NotNil(t, cmd)
	m = step(t, m, cmd())

	placed, ok := m.Placed()
	require.True(t, ok)
	assert.Equal(t, 1, placed.Position)
}

func TestDoneIgnoredWhileInitFinishes(t *testing.T) {
	m, _ := newModel(t)
	require.True(t, m.busy)

	next, cmd := m.Update(press("d"))
	m = next.(Model)
	assert.Nil(t, cmd, "done key started a second finish")

	m = step(t, m, m.Init()())
	placed, ok := m.Placed()
	require.True(t, ok)
	assert.Equal(t, 1, placed.Position)
	assert.NoError(t, m.err)
}
