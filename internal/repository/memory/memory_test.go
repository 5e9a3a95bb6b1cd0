package memory

import (
	"context"
	"testing"
	"time"
)

func TestStoreHistoryNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.RecordSuccess(ctx, "a", base)
	s.RecordSuccess(ctx, "b", base.Add(time.Minute))

	h, err := s.History(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h) != 2 || h[0].Host != "b" || h[1].Host != "a" {
		t.Fatalf("History() = %+v", h)
	}
}

func TestStoreKV(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Set(ctx, "k", "v")
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}
	s.Delete(ctx, "k")
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected deleted key")
	}
}
