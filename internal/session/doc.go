// Package session exposes the currently known admin identity.
//
// # Overview
//
// Identity is established elsewhere (an external login flow writes the
// records); this package only reads it back. Two pieces of state are involved:
//
//   - the admin-user record, stored as JSON under the "adminUser" key of a
//     key/value Storage
//   - the admin credential, an opaque token carried in the "adminUserKey" cookie
//
// # Reading the admin user
//
//	reader := session.NewReader(storage, creds)
//	user, err := reader.AdminUser(ctx)
//	if errors.Is(err, session.ErrAdminUserParse) {
//	    // entry missing or malformed
//	}
//
// There is no fallback value: a missing entry is reported as a parse error.
//
// # Credentials
//
// Outbound callers depend on the CredentialSource interface rather than on a
// cookie jar directly:
//
//   - StaticCredentials: a fixed key (CLI)
//   - CookieCredentials: a document.cookie style header string
//   - ContextCredentials: the key placed on a request context by WithAdminUserKey
//
// An absent cookie yields the empty string.
package session
