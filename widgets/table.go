package widgets

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// TableColumn defines a column in a Table.
type TableColumn struct {
	Width      int         // fixed character width
	AlignRight bool        // right-align text within the column
	Style      vaxis.Style // applied to all cells in this column
}

// Table renders rows of text with fixed-width columns. With Cursor set, the
// Selected row is drawn in reverse video and kept in view.
type Table struct {
	Columns []TableColumn
	Rows    [][]string
	Header  []string // optional header row rendered with AttrDim
	Gap     int      // spaces between columns (default 1)
	// Cursor enables row highlighting. The zero Table highlights nothing.
	Cursor bool
	// Selected is the highlighted row when Cursor is set.
	Selected int
	// CellStyle overrides the column style for individual cells.
	CellStyle func(row, col int) (vaxis.Style, bool)
	// Empty is shown in place of rows when there are none.
	Empty string
}

// writeText writes s into surf at (col, row) within maxWidth. Text that does
// not fit is cut and ends in an ellipsis. If right-aligned, text is padded
// on the left.
func writeText(surf *vxfw.Surface, col, row uint16, maxWidth int, s string, style vaxis.Style, alignRight bool) int {
	chars := vaxis.Characters(s)

	displayWidth := 0
	for _, ch := range chars {
		displayWidth += ch.Width
	}

	offset := 0
	if alignRight && displayWidth < maxWidth {
		offset = maxWidth - displayWidth
	}
	overflow := displayWidth > maxWidth

	pos := offset
	for i, ch := range chars {
		if pos+ch.Width > maxWidth {
			break
		}
		if overflow && maxWidth > 1 && pos+ch.Width == maxWidth && i < len(chars)-1 {
			ch = vaxis.Character{Grapheme: "…", Width: 1}
		}
		surf.WriteCell(col+uint16(pos), row, vaxis.Cell{
			Character: ch,
			Style:     style,
		})
		pos += ch.Width
	}
	return pos
}

// visibleRange returns the first row index to draw so that Selected stays
// on screen within height rows.
func (t *Table) visibleRange(height int) int {
	if !t.Cursor || height <= 0 || t.Selected < height {
		return 0
	}
	if t.Selected >= len(t.Rows) {
		return max(0, len(t.Rows)-height)
	}
	return t.Selected - height + 1
}

// Draw renders the table header (if set) and the rows that fit.
func (t *Table) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	gap := t.Gap
	if gap == 0 {
		gap = 1
	}

	bodyRows := len(t.Rows)
	if bodyRows == 0 && t.Empty != "" {
		bodyRows = 1
	}
	totalRows := bodyRows
	if t.Header != nil {
		totalRows++
	}

	height := uint16(totalRows)
	if height > ctx.Max.Height {
		height = ctx.Max.Height
	}

	s := vxfw.NewSurface(ctx.Max.Width, height, t)
	row := uint16(0)

	if t.Header != nil && row < height {
		col := uint16(0)
		for i, c := range t.Columns {
			if int(col) >= int(ctx.Max.Width) {
				break
			}
			text := ""
			if i < len(t.Header) {
				text = t.Header[i]
			}
			writeText(&s, col, row, c.Width, text, vaxis.Style{Attribute: vaxis.AttrDim | vaxis.AttrBold}, c.AlignRight)
			col += uint16(c.Width + gap)
		}
		row++
	}

	if len(t.Rows) == 0 {
		if t.Empty != "" && row < height {
			writeText(&s, 0, row, int(ctx.Max.Width), t.Empty, vaxis.Style{Attribute: vaxis.AttrDim}, false)
		}
		return s, nil
	}

	first := t.visibleRange(int(height - row))
	for r := first; r < len(t.Rows) && row < height; r++ {
		cells := t.Rows[r]
		selected := t.Cursor && r == t.Selected
		col := uint16(0)
		for i, c := range t.Columns {
			if int(col) >= int(ctx.Max.Width) {
				break
			}
			text := ""
			if i < len(cells) {
				text = cells[i]
			}
			style := c.Style
			if t.CellStyle != nil {
				if st, ok := t.CellStyle(r, i); ok {
					style = st
				}
			}
			if selected {
				style.Attribute |= vaxis.AttrReverse
				// Fill the gap so the highlight reads as one bar.
				for g := 0; g < c.Width+gap && int(col)+g < int(ctx.Max.Width); g++ {
					s.WriteCell(col+uint16(g), row, vaxis.Cell{
						Character: vaxis.Character{Grapheme: " ", Width: 1},
						Style:     vaxis.Style{Attribute: vaxis.AttrReverse},
					})
				}
			}
			writeText(&s, col, row, c.Width, text, style, c.AlignRight)
			col += uint16(c.Width + gap)
		}
		row++
	}

	return s, nil
}
