// ABOUTME: AdminUser record and the read-only identity Reader over a key/value Storage
// ABOUTME: Also holds the Writer used by the external login/logout flow

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// StorageKey is the storage entry holding the JSON-serialized AdminUser.
const StorageKey = "adminUser"

// ErrAdminUserParse is returned when the stored admin user is absent or malformed.
var ErrAdminUserParse = errors.New("admin user record could not be parsed")

// AdminUser is the persisted record of the logged-in administrator.
type AdminUser struct {
	ID          int64   `json:"id"`
	UUID        string  `json:"uuid"`
	Key         string  `json:"key"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

// DisplayName joins the name fields, falling back to the email address.
func (u *AdminUser) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

// Reader exposes the current admin identity without managing how it was established.
type Reader struct {
	storage Storage
	creds   CredentialSource
}

// NewReader creates a Reader. creds may be nil, in which case AdminUserKey is always empty.
func NewReader(storage Storage, creds CredentialSource) *Reader {
	return &Reader{storage: storage, creds: creds}
}

// AdminUser reads and parses the stored admin user.
// A missing entry parses as empty input and fails; no default is returned.
func (r *Reader) AdminUser(ctx context.Context) (*AdminUser, error) {
	raw, _, err := r.storage.GetItem(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", StorageKey, err)
	}

	var user AdminUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdminUserParse, err)
	}
	return &user, nil
}

// AdminUserKey returns the admin credential, or "" when none is present.
func (r *Reader) AdminUserKey(ctx context.Context) string {
	if r.creds == nil {
		return ""
	}
	return r.creds.AdminUserKey(ctx)
}

// Writer persists the admin user on behalf of a login flow.
type Writer struct {
	storage Storage
}

// NewWriter creates a Writer over storage.
func NewWriter(storage Storage) *Writer {
	return &Writer{storage: storage}
}

// SaveAdminUser serializes user into the adminUser entry.
func (w *Writer) SaveAdminUser(ctx context.Context, user *AdminUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding admin user: %w", err)
	}
	return w.SaveRaw(ctx, data)
}

// SaveRaw stores an already-serialized record verbatim after checking that it parses.
func (w *Writer) SaveRaw(ctx context.Context, data []byte) error {
	var user AdminUser
	if err := json.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("%w: %w", ErrAdminUserParse, err)
	}
	if err := w.storage.SetItem(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("writing %s: %w", StorageKey, err)
	}
	return nil
}

// Clear removes the stored admin user (logout).
func (w *Writer) Clear(ctx context.Context) error {
	if err := w.storage.RemoveItem(ctx, StorageKey); err != nil {
		return fmt.Errorf("removing %s: %w", StorageKey, err)
	}
	return nil
}
