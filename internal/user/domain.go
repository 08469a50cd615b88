// Package user implements account and session operations: password and
// email-code login, registration, password changes, OAuth2 code exchange,
// and cookie-based sessions.
package user

import "github.com/meridian-bo/meridian/internal/rbac"

// User represents an account. Password holds the salted digest, never the
// plaintext. IsRoot is immutable after creation and blocks deletion; root
// users bypass all permission checks.
type User struct {
	ID       int64
	Email    string
	Password string
	Salt     string
	IsRoot   bool
	Roles    []rbac.Role
}

// DefaultPassword is stored (salted and hashed) when an administrator
// creates an account without choosing a password.
const DefaultPassword = "Aa123456"

// EmailCodeLength is the number of digits in a verification code.
const EmailCodeLength = 6
