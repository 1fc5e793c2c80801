package telegram

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"duyurubot/internal/notify"
)

// classify maps a telebot send error onto a delivery outcome.
//
// Any 403 means the recipient blocked the bot or deactivated the chat:
// permanent, the recipient is gone. A 400 "chat not found" means the
// chat id no longer resolves, also permanent. Everything else is
// transient and the recipient stays around for the next batch.
func classify(err error) notify.Outcome {
	if err == nil {
		return notify.Success
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return notify.TransientFailure
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 403:
			return notify.PermanentRejection
		case apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Description), "chat not found"):
			return notify.PermanentRejection
		}
	}
	return notify.TransientFailure
}
