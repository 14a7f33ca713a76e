package views

import (
	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
)

var (
	dimStyle   = vaxis.Style{Attribute: vaxis.AttrDim}
	boldStyle  = vaxis.Style{Attribute: vaxis.AttrBold}
	errStyle   = vaxis.Style{Foreground: vaxis.IndexColor(1)}
	linkStyle  = vaxis.Style{Foreground: vaxis.IndexColor(4)}
	okStyle    = vaxis.Style{Foreground: vaxis.IndexColor(2)}
	loadingMsg = "Загрузка..."
)

// drawLoadingState renders a "Загрузка..." message in the view.
func drawLoadingState(ctx vxfw.DrawContext, owner vxfw.Widget) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, owner)
	label, err := drawSegments(ctx, vaxis.Segment{Text: loadingMsg, Style: dimStyle})
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, label)
	return s, nil
}

// drawSegments renders one line of styled text at the context's width.
func drawSegments(ctx vxfw.DrawContext, segs ...vaxis.Segment) (vxfw.Surface, error) {
	return richtext.New(segs).Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
}

// writeCell writes text into surf at (col, row) within maxWidth, right-aligning if requested.
func writeCell(surf *vxfw.Surface, col, row uint16, maxWidth int, s string, style vaxis.Style, alignRight bool) {
	chars := vaxis.Characters(s)
	displayWidth := 0
	for _, ch := range chars {
		displayWidth += ch.Width
	}
	offset := 0
	if alignRight && displayWidth < maxWidth {
		offset = maxWidth - displayWidth
	}
	pos := offset
	for _, ch := range chars {
		if pos+ch.Width > maxWidth {
			break
		}
		surf.WriteCell(col+uint16(pos), row, vaxis.Cell{
			Character: ch,
			Style:     style,
		})
		pos += ch.Width
	}
}
