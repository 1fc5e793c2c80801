package sweep

import (
	"context"
	"sync/atomic"
	"time"

	"duyurubot/internal/announce"
	"duyurubot/internal/notify"
	"duyurubot/internal/source"
	"duyurubot/internal/storage"
	"duyurubot/internal/subs"
	"duyurubot/pkg/logx"
)

// Runner executes one sweep: for every category, fetch → diff → persist →
// fan-out. Categories are independent; a failed or empty fetch for one
// never aborts the others.
type Runner struct {
	src   source.Source
	store *storage.Store
	reg   *subs.Registry
	disp  *notify.Dispatcher
	log   logx.Logger

	inFlight atomic.Bool
}

func NewRunner(src source.Source, store *storage.Store, reg *subs.Registry, disp *notify.Dispatcher, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{src: src, store: store, reg: reg, disp: disp, log: log}
}

// Sweep runs one full pass across all categories. Sweeps never overlap:
// if one is still in flight the call is skipped and false is returned.
func (r *Runner) Sweep(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.log.Warn("sweep still in flight, skipping this firing")
		return false
	}
	defer r.inFlight.Store(false)

	start := time.Now()
	r.log.Info("sweep started")
	for _, cat := range announce.All {
		if ctx.Err() != nil {
			r.log.Warn("sweep aborted by shutdown", logx.String("category", cat.String()))
			break
		}
		r.sweepCategory(ctx, cat)
	}
	r.log.Info("sweep finished", logx.Duration("took", time.Since(start)))
	return true
}

// sweepCategory runs one category's pipeline and contains its failures.
func (r *Runner) sweepCategory(ctx context.Context, cat announce.Category) {
	log := r.log.With(logx.String("category", cat.String()))

	current := r.src.Fetch(ctx, cat)
	if len(current) == 0 {
		// Fetch failure degrades to empty; retried on the next sweep.
		log.Debug("fetch returned nothing")
		return
	}

	known, err := r.store.KnownSet(ctx, cat)
	if err != nil {
		log.Error("loading seen-set failed", logx.Err(err))
		return
	}

	batch := NewItems(current, known)
	if len(batch) == 0 {
		log.Debug("no new announcements", logx.Int("fetched", len(current)))
		return
	}

	// Persist before notifying: once recorded, the items can never be
	// re-detected, so a delivery failure can't turn into a duplicate
	// notification on the next sweep.
	inserted, err := r.store.RecordNew(ctx, cat, batch)
	if err != nil {
		log.Error("recording new announcements failed", logx.Err(err))
		return
	}
	log.Info("new announcements recorded", logx.Int("count", inserted))

	recipients, err := r.reg.SubscribersOf(ctx, cat)
	if err != nil {
		log.Error("listing subscribers failed", logx.Err(err))
		return
	}
	if len(recipients) == 0 {
		log.Debug("no subscribers")
		return
	}

	r.disp.Dispatch(ctx, cat, batch, recipients)
}
