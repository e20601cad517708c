package auth

import "errors"

var (
	// ErrNotFound indicates no live account matches the email or id.
	ErrNotFound = errors.New("account not found")
	// ErrAccountLocked indicates the account is inside a lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredentials indicates the password did not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account has been deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountUnverified indicates the account has not been verified yet.
	ErrAccountUnverified = errors.New("account unverified")

	ErrTokenMissing          = errors.New("token missing")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenRevoked indicates a signature-valid refresh token that no
	// longer matches the one stored for the account.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrPasswordChangedSinceIssue indicates the access token predates the
	// account's last password change.
	ErrPasswordChangedSinceIssue = errors.New("password changed since token issue")
)
