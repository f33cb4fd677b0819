package memory

import (
	"testing"
	"time"
)

func TestRecorderWritesThrough(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, 8)

	for i := int64(1); i <= 3; i++ {
		if !rec.Record(testRecord("s1", i, ActionEmitDefault)) {
			t.Fatalf("record %d rejected", i)
		}
	}
	rec.Close()

	records, err := store.QueryBySession("s1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records after close, got %d", len(records))
	}
	for i, r := range records {
		if r.Seq != int64(i+1) {
			t.Fatalf("append order lost: seq %d at position %d", r.Seq, i)
		}
	}
}

func TestRecorderNeverBlocks(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, 1)
	defer rec.Close()

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 500; i++ {
			rec.Record(testRecord("s1", i, ActionEmitDefault))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked the caller")
	}
}

func TestRecorderDropsAfterClose(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, 8)
	rec.Close()

	if rec.Record(testRecord("s1", 1, ActionEmitDefault)) {
		t.Fatal("closed recorder accepted a record")
	}
	if rec.Dropped() != 1 {
		t.Fatalf("expected 1 dropped record, got %d", rec.Dropped())
	}
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, 8)
	rec.Close()
	rec.Close()
}
