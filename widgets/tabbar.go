package widgets

import (
	"strconv"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// TabBar is a single-row tab strip. Each tab is prefixed with its number
// key and may carry a short alert badge.
type TabBar struct {
	tabs   []tab
	active int
}

type tab struct {
	label string
	badge string
}

var (
	tabKeyStyle   = vaxis.Style{Attribute: vaxis.AttrDim}
	tabBadgeStyle = vaxis.Style{Foreground: vaxis.IndexColor(1), Attribute: vaxis.AttrBold}
)

// NewTabBar creates a TabBar with the first tab active.
func NewTabBar(labels []string) *TabBar {
	tb := &TabBar{tabs: make([]tab, len(labels))}
	for i, l := range labels {
		tb.tabs[i].label = l
	}
	return tb
}

// Active returns the active tab index.
func (tb *TabBar) Active() int { return tb.active }

// Len returns the number of tabs.
func (tb *TabBar) Len() int { return len(tb.tabs) }

func (tb *TabBar) valid(i int) bool { return i >= 0 && i < len(tb.tabs) }

// SetActive selects tab i. Out-of-range indexes are ignored.
func (tb *TabBar) SetActive(i int) {
	if tb.valid(i) {
		tb.active = i
	}
}

// SetBadge sets the badge of tab i; "" clears it.
func (tb *TabBar) SetBadge(i int, badge string) {
	if tb.valid(i) {
		tb.tabs[i].badge = badge
	}
}

// Badge returns the badge of tab i.
func (tb *TabBar) Badge(i int) string {
	if !tb.valid(i) {
		return ""
	}
	return tb.tabs[i].badge
}

// Next selects the following tab, wrapping.
func (tb *TabBar) Next() { tb.step(1) }

// Prev selects the preceding tab, wrapping.
func (tb *TabBar) Prev() { tb.step(-1) }

func (tb *TabBar) step(d int) {
	if n := len(tb.tabs); n > 0 {
		tb.active = ((tb.active+d)%n + n) % n
	}
}

// Draw renders "1 Панель !2  2 События"; the active label is reversed.
func (tb *TabBar) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, tb)

	col := 0
	put := func(text string, style vaxis.Style) {
		for _, ch := range ctx.Characters(text) {
			if col+ch.Width > int(ctx.Max.Width) {
				return
			}
			s.WriteCell(uint16(col), 0, vaxis.Cell{Character: ch, Style: style})
			col += ch.Width
		}
	}

	for i, t := range tb.tabs {
		put(" ", vaxis.Style{})
		if i < 9 {
			put(strconv.Itoa(i+1), tabKeyStyle)
		}
		style := vaxis.Style{}
		if i == tb.active {
			style.Attribute = vaxis.AttrReverse | vaxis.AttrBold
		}
		put(" "+t.label+" ", style)
		if t.badge != "" {
			put(t.badge, tabBadgeStyle)
		}
	}
	return s, nil
}
