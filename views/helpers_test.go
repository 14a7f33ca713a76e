package views_test

import (
	"strings"
	"unicode"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Min: vxfw.Size{},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

// screenText composes a surface and its children into rows of text.
func screenText(s vxfw.Surface) string {
	w, h := int(s.Size.Width), int(s.Size.Height)
	grid := make([][]string, h)
	for r := range grid {
		grid[r] = make([]string, w)
	}
	paint(grid, s, 0, 0)

	var b strings.Builder
	for _, row := range grid {
		line := ""
		for _, g := range row {
			if g == "" {
				g = " "
			}
			line += g
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func paint(grid [][]string, s vxfw.Surface, row, col int) {
	w := int(s.Size.Width)
	for i, cell := range s.Buffer {
		if w == 0 || cell.Character.Grapheme == "" {
			continue
		}
		r, c := row+i/w, col+i%w
		if r < len(grid) && c < len(grid[r]) {
			grid[r][c] = cell.Character.Grapheme
		}
	}
	for _, child := range s.Children {
		paint(grid, child.Surface, row+child.Origin.Row, col+child.Origin.Col)
	}
}

// styledText concatenates, in paint order, the graphemes of every cell
// matching keep.
func styledText(s vxfw.Surface, keep func(vaxis.Style) bool) string {
	var b strings.Builder
	for _, cell := range s.Buffer {
		if cell.Character.Grapheme != "" && keep(cell.Style) {
			b.WriteString(cell.Character.Grapheme)
		}
	}
	for _, child := range s.Children {
		b.WriteString(styledText(child.Surface, keep))
	}
	return b.String()
}

func key(r rune) vaxis.Key {
	k := vaxis.Key{Keycode: r}
	if unicode.IsPrint(r) {
		k.Text = string(r)
	}
	return k
}
