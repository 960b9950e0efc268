package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays messages and a composer for a single chat.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	chatName string
	chatID   string
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	frame(messages.Box, theme, " Messages ")
	messages.SetTextColor(theme.FgColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	frame(composer.Box, theme, " Compose (i to focus) ")
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Messages"
}

// FocusTarget implements Component.
func (mt *MessageThread) FocusTarget() tview.Primitive { return mt.messages }

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send (composer)"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetChatName updates the chat name and title.
func (mt *MessageThread) SetChatName(name string) {
	mt.chatName = name
	mt.messages.SetTitle(fmt.Sprintf(" %s ", name))
}

// SetChatID stores the open chat id.
func (mt *MessageThread) SetChatID(id string) {
	mt.chatID = id
}

// ChatID returns the open chat id.
func (mt *MessageThread) ChatID() string {
	return mt.chatID
}

// SetBusy shows that a send is in flight.
func (mt *MessageThread) SetBusy(busy bool) {
	if busy {
		mt.composer.SetTitle(" Sending... ")
		return
	}
	mt.composer.SetTitle(" Compose (i to focus) ")
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update refreshes the message view. Messages arrive oldest first; self
// and partner name the two sides.
func (mt *MessageThread) Update(msgs []syncer.Message, self, partner string, loading bool) {
	mt.messages.Clear()
	switch {
	case loading:
		_, _ = fmt.Fprint(mt.messages, "[::d]Loading messages...[-:-:-]")
	case len(msgs) == 0:
		_, _ = fmt.Fprint(mt.messages, "[::d]No messages yet. Press i to write one.[-:-:-]")
	default:
		_, _ = fmt.Fprint(mt.messages, mt.transcript(msgs, self, partner))
		mt.messages.ScrollToEnd()
	}
}

// transcript lays msgs out under a dimmed header for each calendar day.
func (mt *MessageThread) transcript(msgs []syncer.Message, self, partner string) string {
	you := ui.ColorName(mt.theme.SelfMessageColor)
	them := ui.ColorName(mt.theme.PeerMessageColor)

	var sb strings.Builder
	day := ""
	for _, m := range msgs {
		if d := dayLabel(m.Timestamp); d != day {
			day = d
			fmt.Fprintf(&sb, "[::d]── %s ──[-:-:-]\n\n", d)
		}
		sender, color := partner, them
		if m.SentBy == self {
			sender, color = "You", you
		}
		fmt.Fprintf(&sb, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			color, tview.Escape(sanitizeForTerminal(sender)),
			time.UnixMilli(m.Timestamp).Format("15:04"),
			tview.Escape(sanitizeForTerminal(m.Body)))
	}
	return sb.String()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
