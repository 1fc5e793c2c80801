// Package storage persists everything the bot remembers: the per-category
// seen-set of announcement texts and the subscriber flags.
//
// The backing store is a single SQLite file. SQLite gives no transaction
// isolation guarantee we want to rely on across goroutines, so every
// operation takes one store-wide mutex; callers never observe partial
// state. All failures are returned to the caller, never swallowed.
package storage
