// ABOUTME: Store types and sentinel errors for simplevista persistence
// ABOUTME: Defines stored items, chat transcript entries, and the LocalStore interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmptyNamespace is returned when a namespaced operation is given no namespace
var ErrEmptyNamespace = errors.New("namespace is required")

// Item is one key/value entry of a namespace.
type Item struct {
	Namespace string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// ChatSender constants for transcript entries
const (
	ChatSenderAdmin = "admin" // Message typed by the administrator
	ChatSenderAI    = "ai"    // Reply from the chat webhook
)

// ChatMessage is one line of a chat transcript
type ChatMessage struct {
	ID        int64
	Namespace string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// LocalStore is namespaced key/value storage, one namespace per browser identity.
type LocalStore interface {
	GetItem(ctx context.Context, namespace, key string) (*Item, error)
	SetItem(ctx context.Context, namespace, key, value string) error
	RemoveItem(ctx context.Context, namespace, key string) error
	ListKeys(ctx context.Context, namespace string) ([]string, error)
}

// ChatStore persists chat transcripts.
type ChatStore interface {
	SaveChatMessage(ctx context.Context, msg *ChatMessage) error
	ListChatMessages(ctx context.Context, namespace string, limit int) ([]*ChatMessage, error)
}
