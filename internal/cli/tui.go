package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// PaletteEntry is one draggable node type.
type PaletteEntry struct {
	Key         string
	Title       string
	Badge       string
	Description string
	Accent      string
}

// TypePaletteModel is the bubbletea model for picking a node type from the
// palette. Selected is set when the user confirms a choice.
type TypePaletteModel struct {
	Entries  []PaletteEntry
	Cursor   int
	Offset   int
	Height   int
	Selected *PaletteEntry
}

// NewTypePaletteModel creates a palette over entries.
func NewTypePaletteModel(entries []PaletteEntry) TypePaletteModel {
	return TypePaletteModel{Entries: entries, Height: 10}
}

func (m TypePaletteModel) Init() tea.Cmd {
	return nil
}

func (m TypePaletteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Entries) == 0 {
				return m, nil
			}
			e := m.Entries[m.Cursor]
			m.Selected = &e
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 3)
	}
	return m, nil
}

func (m TypePaletteModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Node Palette"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		swatch := "■"
		if e.Accent != "" {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(e.Accent)).Render(swatch)
		}

		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(cursor + swatch + " " + style.Render(fmt.Sprintf("%-14s", e.Title)))
		if e.Badge != "" {
			b.WriteString(" " + listDimStyle.Render("["+e.Badge+"]"))
		}
		b.WriteString("\n")
	}

	if len(m.Entries) > 0 && m.Cursor < len(m.Entries) {
		if d := m.Entries[m.Cursor].Description; d != "" {
			b.WriteString("\n")
			b.WriteString(listDimStyle.Render("  " + d))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Entries)), len(m.Entries))))
	return b.String()
}
