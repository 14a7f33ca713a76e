package events_test

import (
	"fmt"
	"net/url"
	"reflect"
	"testing"

	"github.com/deevus/siem-tui/events"
)

func TestFilter_ValuesOmitsEmpty(t *testing.T) {
	f := events.Filter{Severity: "high", Hostname: "  ", Page: 1, PageSize: 50}
	got := f.Values()
	want := url.Values{"severity": {"high"}, "page": {"1"}, "page_size": {"50"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilter_HasCriteria(t *testing.T) {
	tests := []struct {
		name   string
		filter events.Filter
		want   bool
	}{
		{"zero", events.Filter{}, false},
		{"paging only", events.Filter{Page: 4, PageSize: 25}, false},
		{"whitespace", events.Filter{Query: "   ", Hostname: "\t"}, false},
		{"severity", events.Filter{Severity: "critical"}, true},
		{"date range", events.Filter{StartDate: "2026-10-01"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.HasCriteria(); got != tt.want {
				t.Errorf("HasCriteria() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_ExportValues(t *testing.T) {
	tests := []struct {
		name   string
		filter events.Filter
		want   url.Values
	}{
		{
			name:   "empty filter sends only format",
			filter: events.Filter{Page: 3, PageSize: 100},
			want:   url.Values{"format": {"csv"}},
		},
		{
			name: "criteria kept, paging stripped",
			filter: events.Filter{
				Query: "sshd", StartDate: "2025-01-01", EventType: "auth",
				Page: 2, PageSize: 25,
			},
			want: url.Values{
				"query":      {"sshd"},
				"start_date": {"2025-01-01"},
				"event_type": {"auth"},
				"format":     {"csv"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.ExportValues("csv"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClampPageSize(t *testing.T) {
	for in, want := range map[int]int{0: 50, -5: 50, 1: 1, 100: 100, 500: 100} {
		if got := events.ClampPageSize(in); got != want {
			t.Errorf("ClampPageSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func labels(p events.Pagination) string {
	s := ""
	for i, it := range p.Items {
		if i > 0 {
			s += " "
		}
		if it.Current {
			s += "[" + it.Label() + "]"
		} else {
			s += it.Label()
		}
	}
	return s
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
		prevOff        bool
		nextOff        bool
	}{
		{1, 2, "[1] 2", true, false},
		{1, 10, "[1] 2 3 ... 10", true, false},
		{3, 10, "1 2 [3] 4 5 ... 10", false, false},
		{4, 10, "1 2 3 [4] 5 6 ... 10", false, false},
		{5, 10, "1 ... 3 4 [5] 6 7 ... 10", false, false},
		{8, 10, "1 ... 6 7 [8] 9 10", false, false},
		{10, 10, "1 ... 8 9 [10]", false, true},
		{3, 5, "1 2 [3] 4 5", false, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.current, tt.total), func(t *testing.T) {
			p, ok := events.Paginate(tt.current, tt.total)
			if !ok {
				t.Fatal("expected a pagination control")
			}
			if got := labels(p); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if p.PrevDisabled != tt.prevOff || p.NextDisabled != tt.nextOff {
				t.Errorf("prev/next disabled = %v/%v, want %v/%v",
					p.PrevDisabled, p.NextDisabled, tt.prevOff, tt.nextOff)
			}
		})
	}
}

func TestPaginate_SinglePageHasNoControl(t *testing.T) {
	for _, total := range []int{0, 1} {
		if _, ok := events.Paginate(1, total); ok {
			t.Errorf("expected no control for %d pages", total)
		}
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		page, size, total int
		want              string
	}{
		{1, 50, 12, "Показано 1-12 из 12 событий"},
		{2, 50, 120, "Показано 51-100 из 120 событий"},
		{3, 50, 120, "Показано 101-120 из 120 событий"},
		{1, 50, 0, "События не найдены"},
	}
	for _, tt := range tests {
		if got := events.Summary(tt.page, tt.size, tt.total); got != tt.want {
			t.Errorf("Summary(%d,%d,%d) = %q, want %q", tt.page, tt.size, tt.total, got, tt.want)
		}
	}
}

func TestOutcome_Retryable(t *testing.T) {
	if events.OutcomeAuthRequired.Retryable() || events.OutcomeRendered.Retryable() {
		t.Error("auth and rendered must not offer retry")
	}
	if !events.OutcomeTimedOut.Retryable() || !events.OutcomeNetworkError.Retryable() {
		t.Error("timeout and network errors are retry-eligible")
	}
}
