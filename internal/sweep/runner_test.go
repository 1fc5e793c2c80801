package sweep

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"duyurubot/internal/announce"
	"duyurubot/internal/notify"
	"duyurubot/internal/storage"
	"duyurubot/internal/subs"
	"duyurubot/pkg/logx"
)

type fakeSource struct {
	mu    sync.Mutex
	pages map[announce.Category][]string
	block chan struct{} // when set, Fetch blocks until closed or ctx done
}

func (f *fakeSource) Fetch(ctx context.Context, cat announce.Category) []string {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[cat]
}

type recordingNotifier struct {
	mu    sync.Mutex
	sends map[int64][]string
}

func (r *recordingNotifier) Send(ctx context.Context, recipient int64, text string) notify.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sends == nil {
		r.sends = map[int64][]string{}
	}
	r.sends[recipient] = append(r.sends[recipient], text)
	return notify.Success
}

func newTestRunner(t *testing.T, src *fakeSource, n notify.Notifier) (*Runner, *storage.Store, *subs.Registry) {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "sweep.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	reg := subs.NewRegistry(st)
	disp := notify.NewDispatcher(notify.Config{RatePerSec: 1000, SendTimeout: time.Second}, n, st, logx.Nop())
	return NewRunner(src, st, reg, disp, logx.Nop()), st, reg
}

func TestSweepPersistsAndNotifiesNewestFirst(t *testing.T) {
	src := &fakeSource{pages: map[announce.Category][]string{
		announce.Main: {"C", "B", "A"},
	}}
	rn := &recordingNotifier{}
	r, st, reg := newTestRunner(t, src, rn)
	ctx := context.Background()

	// "A" is known from an earlier sweep, one subscriber registered.
	if _, err := st.RecordNew(ctx, announce.Main, []string{"A"}); err != nil {
		t.Fatalf("RecordNew: %v", err)
	}
	if err := reg.Register(ctx, 1); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !r.Sweep(ctx) {
		t.Fatal("sweep should run")
	}

	latest, err := st.Latest(ctx, announce.Main, 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 || latest[0] != "C" || latest[1] != "B" {
		t.Fatalf("Latest = %v, want [C B]", latest)
	}

	msgs := rn.sends[1]
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(msgs))
	}
	ci := strings.Index(msgs[0], "- C")
	bi := strings.Index(msgs[0], "- B")
	if ci < 0 || bi < 0 || ci > bi {
		t.Fatalf("message should list C before B: %q", msgs[0])
	}
	if strings.Contains(msgs[0], "- A") {
		t.Fatalf("known announcement leaked into notification: %q", msgs[0])
	}
}

func TestSweepIsolatesCategoryFailures(t *testing.T) {
	// Yadyok's fetch "fails" (empty); main and mis must still complete.
	src := &fakeSource{pages: map[announce.Category][]string{
		announce.Main: {"M1"},
		announce.MIS:  {"S1"},
	}}
	rn := &recordingNotifier{}
	r, st, reg := newTestRunner(t, src, rn)
	ctx := context.Background()

	if err := reg.Register(ctx, 9); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Sweep(ctx)

	for _, cat := range []announce.Category{announce.Main, announce.MIS} {
		known, err := st.IsKnown(ctx, cat, map[announce.Category]string{announce.Main: "M1", announce.MIS: "S1"}[cat])
		if err != nil {
			t.Fatalf("IsKnown(%s): %v", cat, err)
		}
		if !known {
			t.Fatalf("%s pipeline did not complete", cat)
		}
	}
	if got, err := st.Latest(ctx, announce.Yadyok, 1); err != nil || len(got) != 0 {
		t.Fatalf("yadyok should have recorded nothing: %v %v", got, err)
	}
	if len(rn.sends[9]) != 2 {
		t.Fatalf("expected 2 messages (main + mis), got %d", len(rn.sends[9]))
	}
}

func TestSweepSecondPassIsQuiet(t *testing.T) {
	src := &fakeSource{pages: map[announce.Category][]string{
		announce.Yadyok: {"Y1", "Y2"},
	}}
	rn := &recordingNotifier{}
	r, _, reg := newTestRunner(t, src, rn)
	ctx := context.Background()

	if err := reg.Register(ctx, 3); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Sweep(ctx)
	r.Sweep(ctx) // same page content: nothing new, notifier must stay silent

	if len(rn.sends[3]) != 1 {
		t.Fatalf("expected 1 message across both sweeps, got %d", len(rn.sends[3]))
	}
}

func TestSweepDoesNotOverlap(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{
		pages: map[announce.Category][]string{announce.Main: {"X"}},
		block: block,
	}
	rn := &recordingNotifier{}
	r, _, _ := newTestRunner(t, src, rn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	done := make(chan bool)
	go func() {
		close(started)
		done <- r.Sweep(ctx)
	}()
	<-started
	// Give the first sweep a moment to take the in-flight slot.
	for i := 0; i < 100; i++ {
		if r.inFlight.Load() {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if r.Sweep(ctx) {
		t.Fatal("second sweep should be skipped while the first is in flight")
	}
	close(block)
	if ran := <-done; !ran {
		t.Fatal("first sweep should have run")
	}
}
