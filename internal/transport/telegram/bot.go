// Package telegram is the bot's only transport: it long-polls for
// recipient commands and delivers announcement notifications.
//
// It owns the telebot wiring and the user-facing Turkish strings, so the
// rest of the system only sees the Notifier contract and opaque
// recipient ids.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"duyurubot/internal/notify"
	"duyurubot/internal/runtime/supervisor"
	"duyurubot/internal/storage"
	"duyurubot/internal/subs"
	"duyurubot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout; 0 means 10s
	SendTimeout time.Duration // per-request API bound; 0 means 10s
}

// Bot wraps a telebot instance plus the command handlers.
type Bot struct {
	cfg Config
	log logx.Logger

	bot   *tele.Bot
	reg   *subs.Registry
	store *storage.Store

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor
}

func New(cfg Config, reg *subs.Registry, store *storage.Store, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	tb, err := tele.NewBot(newSettings(cfg))
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b := &Bot{cfg: cfg, log: log, bot: tb, reg: reg, store: store}
	b.registerHandlers()
	return b, nil
}

// newSettings maps Config onto telebot settings. telebot's Send is not
// context-aware, so the per-send bound is enforced by the HTTP client
// timeout rather than by the caller's context.
func newSettings(cfg Config) tele.Settings {
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: sendTimeout},
	}
}

func (b *Bot) Start(ctx context.Context) error {
	b.runMu.Lock()
	if b.running {
		b.runMu.Unlock()
		return nil
	}
	b.running = true
	b.sup = supervisor.New(ctx, supervisor.WithLogger(b.log.With(logx.String("comp", "telegram"))))
	sup := b.sup
	b.runMu.Unlock()

	// Best-effort: publish the /menu command list.
	if err := b.bot.SetCommands(menuCommands()); err != nil {
		b.log.Warn("publishing command menu failed", logx.Err(err))
	}

	// Ensure we stop telebot when the context is cancelled.
	sup.Go("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		b.bot.Stop()
	})

	sup.Go("telebot.poll", func(c context.Context) {
		b.log.Info("polling started")
		// Start blocks until Stop() is called.
		b.bot.Start()
		b.log.Info("polling stopped")
	})
	return nil
}

func (b *Bot) Stop(ctx context.Context) error {
	b.runMu.Lock()
	sup := b.sup
	b.sup = nil
	wasRunning := b.running
	b.running = false
	b.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	sup.Cancel()

	// Grace window: keep shutdown snappy even if the long-poll is still
	// waiting out its timeout.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		b.log.Warn("telegram stop timed out", logx.Err(err))
	}
	return nil
}

var htmlOpts = &tele.SendOptions{
	ParseMode:             tele.ModeHTML,
	DisableWebPagePreview: true,
}

// Send implements notify.Notifier: one delivery attempt, outcome
// classified for the dispatcher. The context only gates entry; the
// request itself is bounded by the HTTP client timeout (see newSettings).
func (b *Bot) Send(ctx context.Context, recipient int64, text string) notify.Outcome {
	if ctx != nil && ctx.Err() != nil {
		return notify.TransientFailure
	}
	_, err := b.bot.Send(&tele.Chat{ID: recipient}, text, htmlOpts)
	outcome := classify(err)
	if err != nil {
		b.log.Debug("send failed", logx.Int64("recipient", recipient), logx.String("outcome", outcome.String()), logx.Err(err))
	}
	return outcome
}

var _ notify.Notifier = (*Bot)(nil)
