package views

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// ProfileView shows the signed-in profile and a QR code of the number
// so another user can add this one.
type ProfileView struct {
	*tview.Flex
	theme *ui.Theme
	info  *tview.TextView
	qr    *tview.TextView
	last  string
}

// NewProfileView creates a new profile view.
func NewProfileView(theme *ui.Theme) *ProfileView {
	info := tview.NewTextView().SetDynamicColors(true)
	frame(info.Box, theme, " Profile ")
	info.SetTextColor(theme.FgColor)

	qr := tview.NewTextView().SetTextAlign(tview.AlignCenter)
	frame(qr.Box, theme, " Share my number ")
	qr.SetTextColor(theme.FgColor)

	return &ProfileView{
		Flex: tview.NewFlex().
			AddItem(info, 0, 1, true).
			AddItem(qr, 0, 1, false),
		theme: theme,
		info:  info,
		qr:    qr,
	}
}

// Name implements Component.
func (pv *ProfileView) Name() string { return "Profile" }

// FocusTarget implements Component.
func (pv *ProfileView) FocusTarget() tview.Primitive { return pv }

// Hints implements Component.
func (pv *ProfileView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: ":name <name>", Description: "Rename"},
		{Key: ":about <text>", Description: "Status line"},
		{Key: ":avatar <file>", Description: "Picture"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders p, or a placeholder while it loads.
func (pv *ProfileView) Update(p *syncer.UserProfile) {
	pv.info.Clear()
	if p == nil {
		_, _ = fmt.Fprint(pv.info, "\n [::d]Loading profile...[-:-:-]")
		pv.qr.Clear()
		pv.last = ""
		return
	}

	fg := ui.ColorName(pv.theme.FgColor)
	ct := ui.ColorName(pv.theme.CounterColor)
	_, _ = fmt.Fprintf(pv.info,
		"\n [%s::b]Name:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Number:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]Status:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]Picture:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]User:[-:-:-]    [%s]%s[-]",
		fg, ct, tview.Escape(sanitizeForTerminal(orDash(p.Name))),
		fg, ct, orDash(p.Number),
		fg, ct, tview.Escape(sanitizeForTerminal(orDash(p.Status))),
		fg, ct, tview.Escape(orDash(p.ImageURL)),
		fg, ct, p.UserID,
	)

	if p.Number != pv.last {
		pv.last = p.Number
		pv.qr.Clear()
		if p.Number != "" {
			_, _ = fmt.Fprintf(pv.qr, "\n%s\n%s", RenderQR(p.Number), p.Number)
		}
	}
}
