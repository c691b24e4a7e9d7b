// ABOUTME: Adapter exposing one namespace of the store as session.Storage
// ABOUTME: Mirrors a browser's local storage, keyed by the admin credential

package store

import (
	"context"
	"errors"

	"github.com/2389/simplevista/internal/session"
)

// LocalStorage is a single namespace of a LocalStore.
type LocalStorage struct {
	store     LocalStore
	namespace string
}

// NewLocalStorage scopes s to namespace.
func NewLocalStorage(s LocalStore, namespace string) *LocalStorage {
	return &LocalStorage{store: s, namespace: namespace}
}

// LocalStorage returns the namespace view used by the session reader.
func (s *SQLiteStore) LocalStorage(namespace string) *LocalStorage {
	return NewLocalStorage(s, namespace)
}

// Namespace returns the scoped namespace.
func (l *LocalStorage) Namespace() string {
	return l.namespace
}

// GetItem implements session.Storage.
func (l *LocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	item, err := l.store.GetItem(ctx, l.namespace, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

// SetItem implements session.Storage.
func (l *LocalStorage) SetItem(ctx context.Context, key, value string) error {
	return l.store.SetItem(ctx, l.namespace, key, value)
}

// RemoveItem implements session.Storage.
func (l *LocalStorage) RemoveItem(ctx context.Context, key string) error {
	return l.store.RemoveItem(ctx, l.namespace, key)
}

// Keys lists the keys of the namespace.
func (l *LocalStorage) Keys(ctx context.Context) ([]string, error) {
	return l.store.ListKeys(ctx, l.namespace)
}

var _ session.Storage = (*LocalStorage)(nil)
