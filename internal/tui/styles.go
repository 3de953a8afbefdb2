package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

// TitleStyle heads the screen with the item being placed.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// QuestionStyle frames the current comparison.
var QuestionStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2).
	MarginTop(1)

// ItemStyle highlights item names inside the question.
var ItemStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// BoundsStyle renders the remaining position range.
var BoundsStyle = lipgloss.NewStyle().
	Foreground(colorSecondary)

// DoneStyle announces the final position.
var DoneStyle = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true).
	MarginTop(1)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	MarginTop(1)
