package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"duyurubot/internal/announce"
	"duyurubot/pkg/logx"
)

type Config struct {
	RatePerSec  int           // delivery pacing within one fan-out
	SendTimeout time.Duration // per-recipient send bound
}

// Result tallies one fan-out.
type Result struct {
	Sent      int
	Transient int
	Rejected  int
	Pruned    int
}

// Dispatcher sends one formatted message per category batch to every
// subscribed recipient. Safe for concurrent use.
type Dispatcher struct {
	notifier Notifier
	pruner   RecipientPruner
	log      logx.Logger

	mu          sync.Mutex
	limiter     *rate.Limiter
	sendTimeout time.Duration
}

func NewDispatcher(cfg Config, notifier Notifier, pruner RecipientPruner, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{notifier: notifier, pruner: pruner, log: log}
	d.Apply(cfg)
	return d
}

// Apply updates pacing at runtime (config reload).
func (d *Dispatcher) Apply(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	d.mu.Lock()
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	d.sendTimeout = cfg.SendTimeout
	d.mu.Unlock()
}

// Dispatch sends the batch to every recipient, one attempt each.
//
// Permanently rejected recipients are collected during the loop and
// deleted in one pass afterwards, so a slow deletion can't stall delivery
// to the rest. Deletion failures are logged, not escalated.
func (d *Dispatcher) Dispatch(ctx context.Context, cat announce.Category, batch []string, recipients []int64) Result {
	if len(batch) == 0 || len(recipients) == 0 {
		return Result{}
	}

	d.mu.Lock()
	lim := d.limiter
	sendTimeout := d.sendTimeout
	d.mu.Unlock()

	log := d.log.With(logx.String("category", cat.String()))
	text := BuildMessage(cat, batch)

	var res Result
	var rejected []int64
	for _, id := range recipients {
		if err := lim.Wait(ctx); err != nil {
			// Shutdown mid-fan-out; remaining recipients miss the batch.
			log.Warn("fan-out interrupted", logx.Err(err), logx.Int("remaining", len(recipients)-res.Sent-res.Transient-res.Rejected))
			break
		}

		sctx, cancel := context.WithTimeout(ctx, sendTimeout)
		outcome := d.notifier.Send(sctx, id, text)
		cancel()

		switch outcome {
		case Success:
			res.Sent++
		case PermanentRejection:
			res.Rejected++
			rejected = append(rejected, id)
			log.Warn("recipient rejected delivery, will be removed", logx.Int64("recipient", id))
		default:
			res.Transient++
			log.Warn("delivery failed, recipient misses this batch", logx.Int64("recipient", id))
		}
	}

	for _, id := range rejected {
		if _, err := d.pruner.DeleteRecipient(ctx, id); err != nil {
			log.Error("removing rejected recipient failed", logx.Int64("recipient", id), logx.Err(err))
			continue
		}
		res.Pruned++
	}

	log.Info("fan-out complete",
		logx.Int("announcements", len(batch)),
		logx.Int("recipients", len(recipients)),
		logx.Int("sent", res.Sent),
		logx.Int("transient", res.Transient),
		logx.Int("rejected", res.Rejected),
	)
	return res
}
