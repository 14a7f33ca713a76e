package widgets

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// Toast is one transient message line.
type Toast struct {
	Message string
	Color   vaxis.Color
}

// Toasts stacks messages, newest at the bottom, each on its own row with
// a coloured marker.
type Toasts struct {
	Items []Toast
	// Width caps the rendered width; zero uses the full width.
	Width int
}

// Draw renders one row per toast.
func (t *Toasts) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	width := ctx.Max.Width
	if t.Width > 0 && uint16(t.Width) < width {
		width = uint16(t.Width)
	}
	rows := min(len(t.Items), int(ctx.Max.Height))
	s := vxfw.NewSurface(width, uint16(rows), t)

	items := t.Items[len(t.Items)-rows:]
	for i, it := range items {
		row := uint16(i)
		bg := vaxis.Style{Background: vaxis.IndexColor(0)}
		for c := uint16(0); c < width; c++ {
			s.WriteCell(c, row, vaxis.Cell{Character: vaxis.Character{Grapheme: " ", Width: 1}, Style: bg})
		}
		s.WriteCell(0, row, vaxis.Cell{
			Character: vaxis.Character{Grapheme: "▌", Width: 1},
			Style:     vaxis.Style{Foreground: it.Color, Background: vaxis.IndexColor(0)},
		})
		if width > 2 {
			writeText(&s, 2, row, int(width)-2, it.Message, vaxis.Style{Background: vaxis.IndexColor(0)}, false)
		}
	}
	return s, nil
}
