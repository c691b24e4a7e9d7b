// Package store provides persistent storage for simplevista using SQLite.
//
// # Architecture
//
// Two interfaces describe what the rest of the program needs:
//
//   - LocalStore: namespaced key/value items, the server-side stand-in for
//     a browser's local storage
//   - ChatStore: the chat transcript shown on the home view
//
// SQLiteStore implements both. LocalStorage wraps one namespace of a
// LocalStore and satisfies session.Storage, so the identity reader can run
// against it unchanged. The namespace is the admin credential of the
// browser or CLI user.
//
// # SQLite Configuration
//
// The store uses SQLite (modernc.org/sqlite, no cgo) with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Database file locations:
//
//   - Default: ~/.local/share/simplevista/simplevista.db
//   - Testing: :memory: (in-memory database, single connection)
//
// The schema is created on open; there are no migrations.
//
// # Error Handling
//
//   - ErrNotFound: no item under the namespace and key
//   - ErrEmptyNamespace: a chat message without a namespace
//
// All methods accept context.Context for cancellation support.
package store
