package events

import "fmt"

// WindowRadius is how many page numbers are shown on each side of the
// current page.
const WindowRadius = 2

// ItemKind distinguishes page buttons from gaps.
type ItemKind int

const (
	ItemPage ItemKind = iota
	ItemEllipsis
)

// PageItem is one element of the page-number strip.
type PageItem struct {
	Kind    ItemKind
	Page    int
	Current bool
}

func (it PageItem) Label() string {
	if it.Kind == ItemEllipsis {
		return "..."
	}
	return fmt.Sprintf("%d", it.Page)
}

// Pagination is the rendered model of the pagination control.
type Pagination struct {
	Current      int
	Total        int
	PrevDisabled bool
	NextDisabled bool
	Items        []PageItem
}

// Paginate builds the control for page current of total. It returns false
// when there is at most one page, in which case no control is shown.
func Paginate(current, total int) (Pagination, bool) {
	if total <= 1 {
		return Pagination{}, false
	}
	current = max(1, min(current, total))

	p := Pagination{
		Current:      current,
		Total:        total,
		PrevDisabled: current == 1,
		NextDisabled: current == total,
	}

	start := max(1, current-WindowRadius)
	end := min(total, current+WindowRadius)

	if start > 1 {
		p.Items = append(p.Items, PageItem{Kind: ItemPage, Page: 1})
		if start > 2 {
			p.Items = append(p.Items, PageItem{Kind: ItemEllipsis})
		}
	}
	for i := start; i <= end; i++ {
		p.Items = append(p.Items, PageItem{Kind: ItemPage, Page: i, Current: i == current})
	}
	if end < total {
		if end < total-1 {
			p.Items = append(p.Items, PageItem{Kind: ItemEllipsis})
		}
		p.Items = append(p.Items, PageItem{Kind: ItemPage, Page: total})
	}
	return p, true
}

// Summary is the results line above the table.
func Summary(page, pageSize, total int) string {
	if total <= 0 {
		return "События не найдены"
	}
	start := (page-1)*pageSize + 1
	end := min(page*pageSize, total)
	return fmt.Sprintf("Показано %d-%d из %d событий", start, end, total)
}
