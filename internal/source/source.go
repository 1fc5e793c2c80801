// Package source fetches the current announcement list for a category.
//
// Failures never cross the Source boundary: network errors, bad status
// codes and parse problems all degrade to an empty list, logged here. The
// sweep treats an empty list as "nothing new" and moves on.
package source

import (
	"context"

	"duyurubot/internal/announce"
)

// Source yields the current full ordered announcement list for one
// category, newest-first, as scraped right now.
type Source interface {
	Fetch(ctx context.Context, cat announce.Category) []string
}
