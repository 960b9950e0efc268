package views

import (
	"strings"
	"unicode"

	"github.com/rivo/tview"
)

// joiners are codepoints that glue emoji into sequences tcell measures
// wrongly: skin tone modifiers, the zero width joiner and both variation
// selector blocks.
var joiners = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200D, Hi: 0x200D, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F3FB, Hi: 0x1F3FF, Stride: 1},
		{Lo: 0xE0100, Hi: 0xE01EF, Stride: 1},
	},
}

// sanitizeForTerminal drops joiner codepoints so each emoji renders as a
// single wide cell.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(joiners, r) {
			return -1
		}
		return r
	}, s)
}

// cellText prepares user text for a table cell: sanitized, folded onto
// one line and escaped for tview color tags.
func cellText(s string) string {
	s = strings.Join(strings.Fields(sanitizeForTerminal(s)), " ")
	return tview.Escape(s)
}
