package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Done, Selected                                lipgloss.Style
	BoxUnchecked, BoxChecked                      string
	SymDone, SymPending, SymFail                  string
	Border                                        lipgloss.Border
	BorderColor                                   lipgloss.TerminalColor
}

var asciiBorder = lipgloss.Border{
	Top: "-", Bottom: "-", Left: "|", Right: "|",
	TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
}

var current = themeFor("classic")

// Themes lists the names SetTheme accepts.
func Themes() []string { return []string{"classic", "neon", "mono"} }

// SetTheme switches the active theme; unknown names fall back to classic.
func SetTheme(name string) { current = themeFor(name) }

func themeFor(name string) Theme {
	s := lipgloss.NewStyle
	switch strings.ToLower(name) {
	case "neon":
		return Theme{
			Name:     "neon",
			Title:    s().Bold(true).Foreground(lipgloss.Color("13")),
			Muted:    s().Faint(true),
			Accent:   s().Foreground(lipgloss.Color("14")),
			Success:  s().Foreground(lipgloss.Color("10")),
			Error:    s().Foreground(lipgloss.Color("9")).Bold(true),
			Pending:  s().Foreground(lipgloss.Color("11")),
			Done:     s().Faint(true).Strikethrough(true),
			Selected: s().Bold(true).Foreground(lipgloss.Color("13")),
			BoxUnchecked: "◻", BoxChecked: "◼",
			SymDone: "✔", SymPending: "•", SymFail: "✖",
			Border:      lipgloss.RoundedBorder(),
			BorderColor: lipgloss.Color("13"),
		}
	case "mono":
		return Theme{
			Name:     "mono",
			Title:    s(),
			Muted:    s(),
			Accent:   s(),
			Success:  s(),
			Error:    s(),
			Pending:  s(),
			Done:     s(),
			Selected: s(),
			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			SymDone: "x", SymPending: "-", SymFail: "!",
			Border:      asciiBorder,
			BorderColor: lipgloss.NoColor{},
		}
	default: // classic
		return Theme{
			Name:     "classic",
			Title:    s().Bold(true),
			Muted:    s().Faint(true),
			Accent:   s().Foreground(lipgloss.Color("12")),
			Success:  s().Foreground(lipgloss.Color("42")),
			Error:    s().Foreground(lipgloss.Color("9")).Bold(true),
			Pending:  s().Foreground(lipgloss.Color("214")),
			Done:     s().Faint(true).Strikethrough(true),
			Selected: s().Bold(true).Reverse(true),
			BoxUnchecked: "☐", BoxChecked: "☑",
			SymDone: "✔", SymPending: "•", SymFail: "✖",
			Border:      lipgloss.RoundedBorder(),
			BorderColor: lipgloss.Color("8"),
		}
	}
}

// Expose what renderers need
func Current() Theme { return current }
