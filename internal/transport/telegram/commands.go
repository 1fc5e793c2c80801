package telegram

import (
	"context"
	"errors"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"duyurubot/internal/announce"
	"duyurubot/internal/subs"
	"duyurubot/pkg/logx"
	"duyurubot/pkg/tghtml"
)

const (
	handlerTimeout = 10 * time.Second
	latestLimit    = 5
)

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.wrap("start", b.handleStart))
	b.bot.Handle("/stop", b.wrap("stop", b.handleStop))
	b.bot.Handle("/status", b.wrap("status", b.handleStatus))
	b.bot.Handle("/latest", b.wrap("latest", b.handleLatest))

	for _, cat := range announce.All {
		cat := cat
		b.bot.Handle("/subscribe_"+cat.String(), b.wrap("subscribe_"+cat.String(),
			func(ctx context.Context, c tele.Context) error { return b.handleSubscribe(ctx, c, cat, true) }))
		b.bot.Handle("/unsubscribe_"+cat.String(), b.wrap("unsubscribe_"+cat.String(),
			func(ctx context.Context, c tele.Context) error { return b.handleSubscribe(ctx, c, cat, false) }))
	}
}

func menuCommands() []tele.Command {
	cmds := []tele.Command{
		{Text: "start", Description: "Kaydol ve bildirimleri aç"},
		{Text: "latest", Description: "Son duyuruları göster"},
		{Text: "status", Description: "Abonelik durumunu göster"},
		{Text: "stop", Description: "Bildirimleri tamamen kapat"},
	}
	for _, cat := range announce.All {
		cmds = append(cmds,
			tele.Command{Text: "subscribe_" + cat.String(), Description: cat.Title() + " duyurularına abone ol"},
			tele.Command{Text: "unsubscribe_" + cat.String(), Description: cat.Title() + " duyurularından çık"},
		)
	}
	return cmds
}

// wrap bounds every handler with a timeout and request logging, in place
// of a full middleware chain.
func (b *Bot) wrap(name string, h func(ctx context.Context, c tele.Context) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		start := time.Now()
		err := h(ctx, c)
		fields := []logx.Field{
			logx.String("cmd", name),
			logx.Int64("chat_id", c.Chat().ID),
			logx.Duration("dur", time.Since(start)),
		}
		if err != nil {
			b.log.Warn("command failed", append(fields, logx.Err(err))...)
		} else {
			b.log.Debug("command ok", fields...)
		}
		return err
	}
}

func (b *Bot) handleStart(ctx context.Context, c tele.Context) error {
	name := ""
	if c.Sender() != nil {
		name = c.Sender().FirstName
	}
	if err := b.reg.Register(ctx, c.Chat().ID); err != nil {
		b.log.Error("registering recipient failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
		return c.Send("Merhaba! Seni kaydederken bir sorun oluştu. Lütfen daha sonra tekrar dene.", htmlOpts)
	}
	msg := tghtml.JoinH("\n",
		"Merhaba "+tghtml.Esc(name)+"! 👋",
		"Benim görevim yeni bir duyuru olduğunda sana haber vermek.",
		"Son duyuruları görmek için /latest komutunu kullanabilirsin.",
		"Abonelik durumunu görmek için /status, bildirimleri tamamen kapatmak için /stop.",
	)
	return c.Send(msg.String(), htmlOpts)
}

func (b *Bot) handleStop(ctx context.Context, c tele.Context) error {
	err := b.reg.Deregister(ctx, c.Chat().ID)
	switch {
	case errors.Is(err, subs.ErrNotRegistered):
		return c.Send("Zaten abone değildin. Kaydolmak için /start komutunu kullanabilirsin.", htmlOpts)
	case err != nil:
		b.log.Error("deregistering recipient failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
		return c.Send("Bildirimlerini kapatırken bir sorun oluştu.", htmlOpts)
	}
	return c.Send("Duyuru bildirimlerin kapatıldı. Tekrar başlatmak istersen /start komutunu kullanabilirsin. Görüşmek üzere! 👋", htmlOpts)
}

func (b *Bot) handleStatus(ctx context.Context, c tele.Context) error {
	flags, err := b.reg.Status(ctx, c.Chat().ID)
	switch {
	case errors.Is(err, subs.ErrNotRegistered):
		return c.Send("Seni bulamadım. Lütfen /start komutunu kullanarak kaydolmayı dene.", htmlOpts)
	case err != nil:
		b.log.Error("reading subscription status failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
		return c.Send("Abonelik durumunu okurken bir sorun oluştu. 😟", htmlOpts)
	}

	parts := []tghtml.H{tghtml.B("Abonelik durumun:") + "\n"}
	for _, cat := range announce.All {
		if flags[cat] {
			parts = append(parts, tghtml.Esc(cat.Title()+" duyurularına abonesin, çıkmak için:")+"\n/unsubscribe_"+tghtml.H(cat.String()))
		} else {
			parts = append(parts, tghtml.Esc(cat.Title()+" duyurularına abone değilsin, abone olmak için:")+"\n/subscribe_"+tghtml.H(cat.String()))
		}
	}
	parts = append(parts, tghtml.Raw("\nBildirimleri tamamen kapatmak için /stop komutunu kullanabilirsin."))
	return c.Send(tghtml.JoinH("\n", parts...).String(), htmlOpts)
}

func (b *Bot) handleLatest(ctx context.Context, c tele.Context) error {
	flags, err := b.reg.Status(ctx, c.Chat().ID)
	switch {
	case errors.Is(err, subs.ErrNotRegistered):
		return c.Send("Seni bulamadım. Lütfen /start komutunu kullanarak kaydolmayı dene.", htmlOpts)
	case err != nil:
		b.log.Error("reading subscription status failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
		return c.Send("Duyuruları getirirken bir sorun oluştu. 😟", htmlOpts)
	}

	sent := false
	for _, cat := range announce.All {
		if !flags[cat] {
			continue
		}
		if err := b.sendLatest(ctx, c, cat); err != nil {
			return err
		}
		sent = true
	}
	if !sent {
		return c.Send("Hiçbir duyuru kategorisine abone değilsin. /status komutuyla abonelikleri açabilirsin.", htmlOpts)
	}
	return nil
}

func (b *Bot) sendLatest(ctx context.Context, c tele.Context, cat announce.Category) error {
	items, err := b.store.Latest(ctx, cat, latestLimit)
	if err != nil {
		b.log.Error("reading latest announcements failed", logx.String("category", cat.String()), logx.Err(err))
		return c.Send("Duyuruları getirirken bir veritabanı hatası oluştu. 😟", htmlOpts)
	}
	if len(items) == 0 {
		return c.Send("Veritabanında kayıtlı "+cat.Title()+" duyurusu bulunamadı. Belki de henüz hiç duyuru yayınlanmadı? 🤔", htmlOpts)
	}

	parts := make([]tghtml.H, 0, len(items)+1)
	parts = append(parts, tghtml.B(cat.Title()+" duyurularındaki son "+strconv.Itoa(len(items))+" duyuru:")+"\n")
	for _, item := range items {
		parts = append(parts, "- "+tghtml.Esc(item))
	}
	return c.Send(tghtml.JoinH("\n", parts...).String(), htmlOpts)
}

func (b *Bot) handleSubscribe(ctx context.Context, c tele.Context, cat announce.Category, on bool) error {
	var err error
	if on {
		err = b.reg.Subscribe(ctx, c.Chat().ID, cat)
	} else {
		err = b.reg.Unsubscribe(ctx, c.Chat().ID, cat)
	}
	switch {
	case errors.Is(err, subs.ErrNotRegistered):
		return c.Send("Seni bulamadım. Lütfen /start komutunu kullanarak kaydolmayı dene.", htmlOpts)
	case err != nil:
		b.log.Error("updating subscription failed",
			logx.Int64("chat_id", c.Chat().ID), logx.String("category", cat.String()), logx.Bool("on", on), logx.Err(err))
		return c.Send("Aboneliğini güncellerken bir sorun oluştu.", htmlOpts)
	}
	if on {
		return c.Send(cat.Title()+" duyurularına abone oldun!", htmlOpts)
	}
	return c.Send(cat.Title()+" duyurularından çıkış yaptın.", htmlOpts)
}
