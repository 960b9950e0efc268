package views

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQR draws content as a QR code in half blocks, two modules per
// terminal line.
func RenderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (no QR: " + err.Error() + ")"
	}
	return halfBlocks(qr.Bitmap(), "  ")
}

var blocks = [4]rune{' ', '▄', '▀', '█'}

// halfBlocks folds pairs of bitmap rows into one line each. A missing
// bottom row on odd-height bitmaps counts as blank.
func halfBlocks(bitmap [][]bool, indent string) string {
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		sb.WriteString(indent)
		for x, top := range bitmap[y] {
			i := 0
			if top {
				i |= 2
			}
			if y+1 < len(bitmap) && bitmap[y+1][x] {
				i |= 1
			}
			sb.WriteRune(blocks[i])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
