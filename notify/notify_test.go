package notify_test

import (
	"testing"
	"time"

	"github.com/deevus/siem-tui/notify"
	"github.com/deevus/siem-tui/schedule"
)

func newChannel(changes *int) (*notify.Channel, *schedule.FakeClock) {
	clock := schedule.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := notify.NewChannel(notify.ChannelParams{
		TTL:      3 * time.Second,
		Clock:    clock,
		OnChange: func() { *changes++ },
	})
	return ch, clock
}

func TestChannel_PostAndExpire(t *testing.T) {
	changes := 0
	ch, clock := newChannel(&changes)

	ch.Post(notify.Success, "Экспорт завершён")
	active := ch.Active()
	if len(active) != 1 || active[0].Message != "Экспорт завершён" || active[0].Level != notify.Success {
		t.Fatalf("unexpected active notices %+v", active)
	}

	clock.Advance(2 * time.Second)
	if len(ch.Active()) != 1 {
		t.Fatal("notice expired too early")
	}
	clock.Advance(time.Second)
	if len(ch.Active()) != 0 {
		t.Fatal("expected notice to expire after ttl")
	}
	if changes != 2 {
		t.Errorf("expected 2 change callbacks, got %d", changes)
	}
}

func TestChannel_Dismiss(t *testing.T) {
	changes := 0
	ch, clock := newChannel(&changes)

	first := ch.Post(notify.Info, "one")
	ch.Post(notify.Error, "two")

	if !ch.Dismiss(first) {
		t.Fatal("expected dismiss to succeed")
	}
	if ch.Dismiss(first) {
		t.Error("second dismiss must report false")
	}
	if got := ch.Active(); len(got) != 1 || got[0].Message != "two" {
		t.Fatalf("unexpected active notices %+v", got)
	}

	clock.Advance(5 * time.Second)
	if len(ch.Active()) != 0 {
		t.Error("expected remaining notice to expire")
	}
	if clock.Pending() != 0 {
		t.Errorf("expected all timers settled, got %d pending", clock.Pending())
	}
}

func TestChannel_DismissLatestAndClear(t *testing.T) {
	changes := 0
	ch, _ := newChannel(&changes)

	if ch.DismissLatest() {
		t.Error("expected false on empty channel")
	}
	ch.Post(notify.Info, "a")
	ch.Post(notify.Warning, "b")
	ch.DismissLatest()
	if got := ch.Active(); len(got) != 1 || got[0].Message != "a" {
		t.Fatalf("expected only 'a' left, got %+v", got)
	}
	ch.Clear()
	if len(ch.Active()) != 0 {
		t.Error("expected empty after clear")
	}
}
