package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatList is the main chat list view.
type ChatList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []syncer.Chat
	self    string
	loading bool
	filter  string
	visible []string
}

// NewChatList creates a new chat list table.
func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	frame(table.Box, theme, " Chats ")
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	return &ChatList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ChatList) Name() string { return "Chats" }

// FocusTarget implements Component.
func (cl *ChatList) FocusTarget() tview.Primitive { return cl }

// Hints implements Component.
func (cl *ChatList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "0-9", Description: "Jump", Numeric: true},
	}
}

// Update refreshes the list. self is the signed-in uid, used to pick the
// partner side of each chat.
func (cl *ChatList) Update(chats []syncer.Chat, self string, loading bool) {
	cl.chats = chats
	cl.self = self
	cl.loading = loading
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ChatList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ChatList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 2},
		{" NUMBER", 1},
		{" CHAT", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	cl.visible = cl.visible[:0]
	row := 1
	for _, chat := range cl.chats {
		partner := chat.Partner(cl.self)
		name := partner.Name
		if name == "" {
			name = partner.Number
		}
		if cl.filter != "" && !containsFold(name, cl.filter) && !containsFold(partner.Number, cl.filter) {
			continue
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+cellText(name)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+partner.Number).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(chat.ChatID+" ").SetTextColor(cl.theme.CounterColor).SetAlign(tview.AlignRight))
		cl.visible = append(cl.visible, chat.ChatID)
		row++
	}

	title := fmt.Sprintf(" Chats (%d) ", len(cl.chats))
	switch {
	case cl.loading:
		title = " Chats (loading...) "
	case cl.filter != "":
		title = fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), cl.filter)
	}
	cl.SetTitle(title)
}

// SelectedChat returns the id of the currently selected chat.
func (cl *ChatList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the Nth visible chat (1-based).
func (cl *ChatList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1]
}
