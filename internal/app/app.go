// Package app wires the bot together: config, logging, storage, the
// scraper, the Telegram transport and the sweep scheduler.
package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"duyurubot/internal/config"
	"duyurubot/internal/notify"
	"duyurubot/internal/runtime/supervisor"
	"duyurubot/internal/source"
	"duyurubot/internal/storage"
	"duyurubot/internal/subs"
	"duyurubot/internal/sweep"
	"duyurubot/internal/transport/telegram"
	"duyurubot/pkg/logx"
)

type App struct {
	cfgPath string

	log  logx.Logger
	logs *logx.Service

	store *storage.Store
	bot   *telegram.Bot
	disp  *notify.Dispatcher
	sched *sweep.Scheduler

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	a, err := build(cfgPath, cfg, logSvc, log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	return a, nil
}

func build(cfgPath string, cfg *config.Config, logSvc *logx.Service, log logx.Logger) (*App, error) {
	// Validate() already checked every duration string, so the defaults
	// below only fill in absent fields.
	pollTimeout, err := config.Duration(cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	busyTimeout, err := config.Duration(cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	interval, err := config.Duration(cfg.Sweep.Interval, time.Hour)
	if err != nil {
		return nil, err
	}
	startupDelay, err := config.Duration(cfg.Sweep.StartupDelay, 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := config.Duration(cfg.Sweep.FetchTimeout, 20*time.Second)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := config.Duration(cfg.Notify.SendTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	reg := subs.NewRegistry(store)

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
	}, reg, store, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		store.Close()
		return nil, err
	}

	disp := notify.NewDispatcher(notify.Config{
		RatePerSec:  cfg.Notify.RatePerSec,
		SendTimeout: sendTimeout,
	}, bot, store, logSvc.Logger().With(logx.String("comp", "notify")))

	scraper := source.NewScraper(source.Config{
		Timeout: fetchTimeout,
	}, logSvc.Logger().With(logx.String("comp", "source")))

	runner := sweep.NewRunner(scraper, store, reg, disp,
		logSvc.Logger().With(logx.String("comp", "sweep")))

	sched := sweep.NewScheduler(sweep.SchedulerConfig{
		Interval:     interval,
		StartupDelay: startupDelay,
	}, func(ctx context.Context) { runner.Sweep(ctx) },
		logSvc.Logger().With(logx.String("comp", "sweep")))

	return &App{
		cfgPath: cfgPath,
		log:     log,
		logs:    logSvc,
		store:   store,
		bot:     bot,
		disp:    disp,
		sched:   sched,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	if err := a.bot.Start(a.sup.Context()); err != nil {
		return err
	}
	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("config.watch", func(c context.Context) {
		config.Watch(c, a.cfgPath, a.log.With(logx.String("comp", "config")), a.applyConfig)
	})

	a.notifySystemd()
	a.log.Info("bot started")
	return nil
}

// applyConfig applies the hot-reloadable subset of a fresh config: the
// log level and the delivery pacing. Everything else needs a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.SetLevel(cfg.Logging.Level)

	sendTimeout, err := config.Duration(cfg.Notify.SendTimeout, 10*time.Second)
	if err != nil {
		a.log.Warn("config reload: bad notify.send_timeout", logx.Err(err))
		return
	}
	a.disp.Apply(notify.Config{
		RatePerSec:  cfg.Notify.RatePerSec,
		SendTimeout: sendTimeout,
	})
	a.log.Info("config reloaded", logx.String("level", cfg.Logging.Level))
}

// notifySystemd reports readiness and, when the unit has a watchdog,
// keeps petting it. No-op outside systemd.
func (a *App) notifySystemd() {
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.sup.Go("systemd.watchdog", func(c context.Context) {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-t.C:
				daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	})
}

func (a *App) Stop(ctx context.Context) error {
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.sup != nil {
		a.sup.Cancel()
	}
	a.sched.Stop(ctx)
	a.bot.Stop(ctx)
	if a.sup != nil {
		if err := a.sup.Wait(ctx); err != nil {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
	}

	err := a.store.Close()
	a.log.Info("bot stopped")
	a.logs.Close()
	return err
}
