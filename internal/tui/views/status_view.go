package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusView lists visible statuses: the user's own first, then one row
// per connection. Selecting a row shows every status of that author.
type StatusView struct {
	*tview.Flex
	theme   *ui.Theme
	table   *tview.Table
	detail  *tview.TextView
	feed    syncer.StatusFeed
	self    string
	authors []string
}

// NewStatusView creates a new status feed view.
func NewStatusView(theme *ui.Theme) *StatusView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	frame(table.Box, theme, "")
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	detail := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	frame(detail.Box, theme, "")
	detail.SetTextColor(theme.FgColor)

	sv := &StatusView{
		Flex: tview.NewFlex().
			AddItem(table, 0, 1, true).
			AddItem(detail, 0, 1, false),
		theme:  theme,
		table:  table,
		detail: detail,
	}
	table.SetSelectionChangedFunc(func(row, _ int) { sv.showAuthor(row) })
	return sv
}

// Name implements Component.
func (sv *StatusView) Name() string { return "Statuses" }

// FocusTarget implements Component.
func (sv *StatusView) FocusTarget() tview.Primitive { return sv.table }

// Hints implements Component.
func (sv *StatusView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: ":status <file>", Description: "Post"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update re-renders the feed.
func (sv *StatusView) Update(feed syncer.StatusFeed, self string, loading bool) {
	sv.feed = feed
	sv.self = self
	sv.table.Clear()

	for col, h := range []string{" AUTHOR", " LATEST", " POSTS"} {
		sv.table.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}

	sv.authors = sv.authors[:0]
	rows := make([]syncer.Status, 0, len(feed.Others)+1)
	if len(feed.Mine) > 0 {
		rows = append(rows, feed.Mine[0])
	}
	rows = append(rows, feed.Others...)
	for i, st := range rows {
		name := st.User.Name
		if st.User.UserID == self {
			name = "My status"
		}
		n := len(feed.ByAuthor(st.User.UserID))
		sv.table.SetCell(i+1, 0, tview.NewTableCell(" "+cellText(orDash(name))).SetTextColor(sv.theme.FgColor).SetExpansion(1))
		sv.table.SetCell(i+1, 1, tview.NewTableCell(" "+formatTimestamp(st.Timestamp)).SetTextColor(sv.theme.FgColor))
		sv.table.SetCell(i+1, 2, tview.NewTableCell(fmt.Sprintf(" %d", n)).SetTextColor(sv.theme.CounterColor))
		sv.authors = append(sv.authors, st.User.UserID)
	}

	switch {
	case loading:
		sv.table.SetTitle(" Statuses (loading...) ")
	default:
		sv.table.SetTitle(fmt.Sprintf(" Statuses (%d) ", len(feed.All)))
	}
	row, _ := sv.table.GetSelection()
	sv.showAuthor(row)
}

func (sv *StatusView) showAuthor(row int) {
	sv.detail.Clear()
	if row < 1 || row > len(sv.authors) {
		sv.detail.SetTitle(" - ")
		_, _ = fmt.Fprint(sv.detail, "\n [::d]No statuses in the last 24 hours.[-:-:-]")
		return
	}
	list := sv.feed.ByAuthor(sv.authors[row-1])
	if len(list) == 0 {
		return
	}
	sv.detail.SetTitle(fmt.Sprintf(" %s ", tview.Escape(orDash(list[0].User.Name))))
	ct := ui.ColorName(sv.theme.CounterColor)
	for _, st := range list {
		_, _ = fmt.Fprintf(sv.detail, " [%s]%s[-]  %s\n", ct, formatTimestamp(st.Timestamp), tview.Escape(st.ImageURL))
	}
}
