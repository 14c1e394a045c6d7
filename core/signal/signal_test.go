package signal

import (
	"context"
	"testing"
	"time"

	"cmms.GO/core/cache"
)

func TestDeduped_SuppressesRepeats(t *testing.T) {
	rec := NewRecorder(0)
	sink := NewDeduped(rec, cache.NewCache(), time.Hour)
	ctx := context.Background()

	s := New(LowStock, 1, "stock_level", 5, "part below reorder point")
	s.DedupeKey = "low|1|5"
	sink.Emit(ctx, s)
	sink.Emit(ctx, New(LowStock, 1, "stock_level", 5, "again").withKey("low|1|5"))
	sink.Emit(ctx, New(WOStatusChanged, 1, "work_order", 9, "no key"))

	if got := len(rec.Signals()); got != 2 {
		t.Fatalf("recorded %d signals, want 2", got)
	}
	if len(rec.OfKind(LowStock)) != 1 {
		t.Error("low stock should be emitted once")
	}
}

func TestBuffer_FlushAfterCommit(t *testing.T) {
	rec := NewRecorder(0)
	var buf Buffer
	buf.Add(New(PMOverdue, 1, "pm_definition", 2, "overdue"))
	if len(rec.Signals()) != 0 {
		t.Fatal("buffered signal emitted early")
	}
	buf.Flush(context.Background(), rec)
	if len(rec.Signals()) != 1 {
		t.Fatal("Flush did not emit")
	}
	buf.Flush(context.Background(), rec)
	if len(rec.Signals()) != 1 {
		t.Error("Flush emitted twice")
	}
}

func TestRecorder_Limit(t *testing.T) {
	rec := NewRecorder(2)
	for i := 0; i < 5; i++ {
		rec.Emit(context.Background(), New(LowStock, 1, "stock_level", uint(i), "x"))
	}
	got := rec.Signals()
	if len(got) != 2 || got[1].EntityID != 4 {
		t.Errorf("Signals = %+v", got)
	}
}

func TestNew_AssignsID(t *testing.T) {
	a := New(LowStock, 1, "stock_level", 1, "x")
	b := New(LowStock, 1, "stock_level", 1, "x")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q, %q should be unique", a.ID, b.ID)
	}
}

func (s Signal) withKey(k string) Signal {
	s.DedupeKey = k
	return s
}
