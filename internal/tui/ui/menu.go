package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Menu displays keyboard shortcut hints in columns of at most rows lines.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
		rows:     max(rows, 1),
	}
}

// Update renders hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, strings.Join(m.layout(hints), "\n"))
}

// layout fills columns top to bottom, padding each cell to the widest
// hint of its column.
func (m *Menu) layout(hints []MenuHint) []string {
	keyColor := ColorName(m.theme.MenuKeyColor)
	numColor := ColorName(m.theme.NumericKeyColor)

	lines := make([]string, min(len(hints), m.rows))
	for start := 0; start < len(hints); start += m.rows {
		col := hints[start:min(start+m.rows, len(hints))]
		width := 0
		for _, h := range col {
			width = max(width, len(h.Key)+len(h.Description)+3)
		}
		for i, h := range col {
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			pad := strings.Repeat(" ", width-len(h.Key)-len(h.Description)-3+2)
			lines[i] += fmt.Sprintf("[%s::b]<%s>[-:-:-] %s%s", kc, tview.Escape(h.Key), h.Description, pad)
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}
