package alarm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/alarm"
	"github.com/necklaceai/necklace/go/pkg/kv"
)

func newTestBook(t *testing.T) (*alarm.Book, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	t.Cleanup(func() { store.Close() })
	b, err := alarm.Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return b, store
}

func TestSetListDelete(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBook(t)

	out := b.Set(ctx, "07:00", "", "")
	if !strings.Contains(out, "07:00") {
		t.Fatalf("Set = %q", out)
	}

	listing := b.List()
	if !strings.Contains(listing, "1. 07:00") {
		t.Fatalf("List = %q, want id 1 at 07:00", listing)
	}

	out = b.Delete(ctx, 1)
	if !strings.Contains(out, "削除") {
		t.Fatalf("Delete = %q", out)
	}
	if got := b.List(); !strings.Contains(got, "ありません") {
		t.Fatalf("List after delete = %q, want empty-book text", got)
	}
}

func TestSetInvalidTime(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBook(t)

	for _, bad := range []string{"25:00", "12:60", "７時", "07", ""} {
		out := b.Set(ctx, bad, "", "")
		if !strings.Contains(out, "不正") {
			t.Fatalf("Set(%q) = %q, want invalid-time text", bad, out)
		}
	}
	if len(b.Alarms()) != 0 {
		t.Fatalf("invalid input mutated the book: %v", b.Alarms())
	}
	// Nothing was persisted either.
	if _, err := store.Get(ctx, "alarms"); err == nil {
		t.Fatal("invalid input reached the store")
	}
}

func TestIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBook(t)

	b.Set(ctx, "07:00", "a", "")
	b.Set(ctx, "08:00", "b", "")
	b.Delete(ctx, 2)
	b.Set(ctx, "09:00", "c", "")

	alarms := b.Alarms()
	if len(alarms) != 2 {
		t.Fatalf("len = %d, want 2", len(alarms))
	}
	if alarms[1].ID != 3 {
		t.Fatalf("new alarm got ID %d, want 3 (no reuse)", alarms[1].ID)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	t.Cleanup(func() { store.Close() })

	b, err := alarm.Load(ctx, store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b.Set(ctx, "7:5", "morning", "起きてください")

	reloaded, err := alarm.Load(ctx, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	alarms := reloaded.Alarms()
	if len(alarms) != 1 {
		t.Fatalf("len = %d, want 1", len(alarms))
	}
	a := alarms[0]
	if a.Time != "07:05" {
		t.Fatalf("time = %q, want normalized 07:05", a.Time)
	}
	if a.Label != "morning" || a.Message != "起きてください" || !a.Enabled {
		t.Fatalf("alarm = %+v", a)
	}

	// next_id survives the round trip.
	out := reloaded.Set(ctx, "08:00", "", "")
	if !strings.Contains(out, "08:00") {
		t.Fatalf("Set = %q", out)
	}
	if got := reloaded.Alarms()[1].ID; got != 2 {
		t.Fatalf("id after reload = %d, want 2", got)
	}
}

func TestDefaultLabelAndMessage(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBook(t)
	b.Set(ctx, "06:30", "", "")

	a := b.Alarms()[0]
	if a.Label != alarm.DefaultLabel {
		t.Fatalf("label = %q", a.Label)
	}
	if a.Message != alarm.DefaultLabel+"の時間です" {
		t.Fatalf("message = %q", a.Message)
	}
}
