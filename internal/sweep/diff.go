// Package sweep drives the change-detection pipeline: fetch the current
// announcement list per category, diff it against the persisted seen-set,
// record the new items, then hand the batch to the dispatcher.
package sweep

import "strings"

// NewItems reduces a freshly fetched newest-first list to the genuinely
// new announcements, preserving the source's freshness order.
//
// Scraping noise is normalized on the way: items are trimmed, blank items
// dropped, and duplicates within the same fetch collapse to their first
// occurrence. Anything already in the known set is dropped.
func NewItems(current []string, known map[string]struct{}) []string {
	var out []string
	inBatch := make(map[string]struct{}, len(current))
	for _, item := range current {
		text := strings.TrimSpace(item)
		if text == "" {
			continue
		}
		if _, ok := known[text]; ok {
			continue
		}
		if _, ok := inBatch[text]; ok {
			continue
		}
		inBatch[text] = struct{}{}
		out = append(out, text)
	}
	return out
}
