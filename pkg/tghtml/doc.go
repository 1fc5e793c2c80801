// Package tghtml builds Telegram HTML-parse-mode message text.
//
// Telegram's HTML mode only reserves <, > and &, which keeps escaping
// structural: announcement text passes through html.EscapeString and
// nothing else. Values of type H are treated as already safe.
package tghtml
