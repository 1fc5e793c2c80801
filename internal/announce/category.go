// Package announce holds the announcement domain types shared by the
// store, the scrapers and the notification pipeline.
package announce

import (
	"fmt"
	"strings"
)

// Category identifies one of the three watched announcement pages.
//
// The set is closed on purpose: every category maps to a statically-known
// storage relation and subscriber flag, so nothing in the system ever
// builds a query or a command name from an unchecked string.
type Category int

const (
	Main Category = iota
	Yadyok
	MIS
)

// All lists every category in sweep order.
var All = []Category{Main, Yadyok, MIS}

// String returns the stable machine name ("main", "yadyok", "mis").
// It doubles as the subscribe/unsubscribe command suffix.
func (c Category) String() string {
	switch c {
	case Main:
		return "main"
	case Yadyok:
		return "yadyok"
	case MIS:
		return "mis"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Title returns the Turkish display name used in outgoing messages.
func (c Category) Title() string {
	switch c {
	case Main:
		return "Ana Sayfa"
	case Yadyok:
		return "YADYOK"
	case MIS:
		return "MIS"
	default:
		return c.String()
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == Main || c == Yadyok || c == MIS
}

// Parse maps a machine name back to its Category.
// Only used for config and test input, never for storage lookups.
func Parse(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main":
		return Main, nil
	case "yadyok":
		return Yadyok, nil
	case "mis":
		return MIS, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}
