package notify

import (
	"duyurubot/internal/announce"
	"duyurubot/pkg/tghtml"
)

// Each announcement line is capped so one very long title can't push a
// batch over Telegram's message size limit.
const maxLineRunes = 300

// BuildMessage renders one category's batch as a single HTML-mode message:
// a bold header plus one line per announcement, newest-first, in the order
// the batch was given. One message per category per sweep bounds
// message-rate amplification when many items appear at once.
func BuildMessage(cat announce.Category, batch []string) string {
	if len(batch) == 0 {
		return ""
	}
	parts := make([]tghtml.H, 0, len(batch)+1)
	parts = append(parts, tghtml.B("Yeni "+cat.Title()+" Duyuruları:")+"\n")
	for _, item := range batch {
		parts = append(parts, "- "+tghtml.Esc(tghtml.TruncRunes(item, maxLineRunes)))
	}
	return tghtml.JoinH("\n", parts...).String()
}
