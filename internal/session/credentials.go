// ABOUTME: Admin credential sources: static key, cookie header, and request context
// ABOUTME: Cookie parsing follows document.cookie semantics for the adminUserKey entry

package session

import (
	"context"
	"strings"
)

// CookieName is the cookie carrying the admin credential.
const CookieName = "adminUserKey"

// CredentialSource supplies the admin credential attached to outbound calls.
type CredentialSource interface {
	AdminUserKey(ctx context.Context) string
}

// StaticCredentials always returns the same key.
type StaticCredentials string

func (s StaticCredentials) AdminUserKey(context.Context) string {
	return string(s)
}

// CookieCredentials reads the key from a "name=value; name2=value2" header.
type CookieCredentials string

func (c CookieCredentials) AdminUserKey(context.Context) string {
	return AdminUserKeyFromCookieHeader(string(c))
}

// AdminUserKeyFromCookieHeader returns the adminUserKey value from a cookie
// header, or "" when the cookie is absent.
func AdminUserKeyFromCookieHeader(header string) string {
	for _, part := range strings.Split(header, ";") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(part), CookieName+"="); ok {
			return value
		}
	}
	return ""
}

type adminUserKeyContextKey struct{}

// WithAdminUserKey returns a context carrying the admin credential.
func WithAdminUserKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, adminUserKeyContextKey{}, key)
}

// AdminUserKeyFromContext returns the credential set by WithAdminUserKey, or "".
func AdminUserKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(adminUserKeyContextKey{}).(string)
	return key
}

// ContextCredentials reads the key placed on the context by WithAdminUserKey.
type ContextCredentials struct{}

func (ContextCredentials) AdminUserKey(ctx context.Context) string {
	return AdminUserKeyFromContext(ctx)
}
