package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"duyurubot/pkg/logx"
)

// Watch blocks until ctx is done, re-loading the config file whenever it
// changes and handing each valid new config to apply.
//
// Only hot-swappable settings (log level, fan-out pacing) take effect at
// runtime; the caller decides which fields it honors. A config that fails
// to parse or validate is logged and ignored, so a half-written save can
// never break a running bot. Editors replace files via rename, so the
// parent directory is watched and the watch survives the inode change.
func Watch(ctx context.Context, path string, log logx.Logger, apply func(*Config)) {
	if strings.TrimSpace(path) == "" || apply == nil {
		return
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config watch unavailable", logx.Err(err))
		return
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		log.Warn("config watch unavailable", logx.String("dir", dir), logx.Err(err))
		return
	}

	base := filepath.Base(path)
	// Debounce: editors fire several events per save.
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("config watch error", logx.Err(err))

		case <-reload:
			cfg, err := Load(path)
			if err != nil {
				log.Warn("ignoring invalid config change", logx.Err(err))
				continue
			}
			log.Info("config reloaded")
			apply(cfg)
		}
	}
}
