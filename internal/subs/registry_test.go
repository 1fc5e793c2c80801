package subs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"duyurubot/internal/announce"
	"duyurubot/internal/storage"
	"duyurubot/pkg/logx"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "subs.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewRegistry(st)
}

func TestRegisterDefaultsAllOn(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if err := r.Register(ctx, 7); err != nil {
		t.Fatalf("Register: %v", err)
	}
	flags, err := r.Status(ctx, 7)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, cat := range announce.All {
		if !flags[cat] {
			t.Fatalf("expected %s on after registration", cat)
		}
	}
}

func TestUnsubscribeExcludesFromFanOut(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	for _, id := range []int64{10, 11} {
		if err := r.Register(ctx, id); err != nil {
			t.Fatalf("Register(%d): %v", id, err)
		}
	}
	if err := r.Unsubscribe(ctx, 10, announce.MIS); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	subs, err := r.SubscribersOf(ctx, announce.MIS)
	if err != nil {
		t.Fatalf("SubscribersOf: %v", err)
	}
	if len(subs) != 1 || subs[0] != 11 {
		t.Fatalf("SubscribersOf = %v, want [11]", subs)
	}

	flags, err := r.Status(ctx, 10)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if flags[announce.MIS] || !flags[announce.Main] || !flags[announce.Yadyok] {
		t.Fatalf("unexpected flags: %v", flags)
	}
}

func TestUnknownRecipientIsDistinguished(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if err := r.Subscribe(ctx, 404, announce.Main); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Subscribe unknown: err = %v, want ErrNotRegistered", err)
	}
	if _, err := r.Status(ctx, 404); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Status unknown: err = %v, want ErrNotRegistered", err)
	}
	if err := r.Deregister(ctx, 404); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Deregister unknown: err = %v, want ErrNotRegistered", err)
	}
}
