package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Crumbs shows the instance badge followed by the navigation path.
type Crumbs struct {
	*tview.TextView
	theme    *Theme
	instance string
}

// NewCrumbs creates a breadcrumb bar for instance.
func NewCrumbs(theme *Theme, instance string) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
		instance: instance,
	}
}

func (c *Crumbs) badge(fg, bg, attr, text string) {
	_, _ = fmt.Fprintf(c, "[%s:%s:%s] %s [-:-:-] ", fg, bg, attr, tview.Escape(text))
}

// Update renders the trail for stack, bottom first.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	if c.instance != "" {
		c.badge(ColorName(c.theme.InstanceFg), ColorName(c.theme.InstanceBg), "b", c.instance)
	}
	for i, name := range stack {
		if i == len(stack)-1 {
			c.badge(ColorName(c.theme.CrumbActiveFg), ColorName(c.theme.CrumbActiveBg), "b", name)
			continue
		}
		c.badge(ColorName(c.theme.CrumbInactiveFg), ColorName(c.theme.CrumbInactiveBg), "", name)
	}
}
