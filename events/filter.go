// Package events drives the searchable, paginated event table and the
// export of matching events to disk.
package events

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageSizes are the sizes offered by the page-size selector.
var PageSizes = []int{25, 50, 100}

// Filter is the query issued to the events endpoint. Empty fields are
// omitted from the request entirely.
type Filter struct {
	Query     string
	Hostname  string
	StartDate string
	EndDate   string
	Severity  string
	EventType string
	Page      int
	PageSize  int
}

func (f Filter) criteria() [][2]string {
	return [][2]string{
		{"query", f.Query},
		{"hostname", f.Hostname},
		{"start_date", f.StartDate},
		{"end_date", f.EndDate},
		{"severity", f.Severity},
		{"event_type", f.EventType},
	}
}

// Values encodes the filter including pagination.
func (f Filter) Values() url.Values {
	v := f.criteriaValues()
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return v
}

// ExportValues encodes the filter without pagination and appends format.
func (f Filter) ExportValues(format string) url.Values {
	v := f.criteriaValues()
	v.Set("format", format)
	return v
}

func (f Filter) criteriaValues() url.Values {
	v := url.Values{}
	for _, kv := range f.criteria() {
		if s := strings.TrimSpace(kv[1]); s != "" {
			v.Set(kv[0], s)
		}
	}
	return v
}

// HasCriteria reports whether any search field is set.
func (f Filter) HasCriteria() bool {
	return len(f.criteriaValues()) > 0
}

// ClampPageSize bounds n to 1..MaxPageSize, mapping zero to the default.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}
