// Package subs answers "who gets notified about what".
//
// It is a thin query layer over the store's subscriber flags. The one
// piece of semantics it adds is the absent-vs-opted-out distinction:
// operations on an unknown recipient report ErrNotRegistered so command
// handlers can prompt a fresh /start instead of claiming success.
package subs

import (
	"context"
	"errors"

	"duyurubot/internal/announce"
	"duyurubot/internal/storage"
)

// ErrNotRegistered marks operations on a recipient with no record.
var ErrNotRegistered = errors.New("recipient not registered")

type Registry struct {
	store *storage.Store
}

func NewRegistry(store *storage.Store) *Registry {
	return &Registry{store: store}
}

// Register creates the recipient with every category on.
// Re-registering is success.
func (r *Registry) Register(ctx context.Context, id int64) error {
	_, err := r.store.CreateRecipient(ctx, id)
	return err
}

// Deregister removes the recipient entirely (full opt-out).
// Returns ErrNotRegistered when there was nothing to remove.
func (r *Registry) Deregister(ctx context.Context, id int64) error {
	found, err := r.store.DeleteRecipient(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotRegistered
	}
	return nil
}

func (r *Registry) Subscribe(ctx context.Context, id int64, cat announce.Category) error {
	return r.setFlag(ctx, id, cat, true)
}

func (r *Registry) Unsubscribe(ctx context.Context, id int64, cat announce.Category) error {
	return r.setFlag(ctx, id, cat, false)
}

func (r *Registry) setFlag(ctx context.Context, id int64, cat announce.Category, value bool) error {
	found, err := r.store.SetFlag(ctx, id, cat, value)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotRegistered
	}
	return nil
}

// Status returns the per-category flags, or ErrNotRegistered.
func (r *Registry) Status(ctx context.Context, id int64) (map[announce.Category]bool, error) {
	flags, err := r.store.Flags(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	return flags, err
}

// SubscribersOf lists every recipient whose flag for cat is on.
func (r *Registry) SubscribersOf(ctx context.Context, cat announce.Category) ([]int64, error) {
	return r.store.RecipientsWith(ctx, cat)
}
