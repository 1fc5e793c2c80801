package telegram

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestNewSettingsBoundsSends(t *testing.T) {
	s := newSettings(Config{
		Token:       "123:abc",
		PollTimeout: 30 * time.Second,
		SendTimeout: 7 * time.Second,
	})
	if s.Client == nil || s.Client.Timeout != 7*time.Second {
		t.Fatalf("client timeout = %v, want 7s", s.Client)
	}
	lp, ok := s.Poller.(*tele.LongPoller)
	if !ok || lp.Timeout != 30*time.Second {
		t.Fatalf("poller = %#v, want LongPoller with 30s timeout", s.Poller)
	}
}

func TestNewSettingsDefaults(t *testing.T) {
	s := newSettings(Config{Token: "123:abc"})
	if s.Client == nil || s.Client.Timeout != 10*time.Second {
		t.Fatalf("default client timeout = %v, want 10s", s.Client)
	}
	if lp, ok := s.Poller.(*tele.LongPoller); !ok || lp.Timeout != 10*time.Second {
		t.Fatalf("default poller = %#v, want LongPoller with 10s timeout", s.Poller)
	}
}
