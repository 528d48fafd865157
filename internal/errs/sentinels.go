// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidation indicates a request that fails input validation.
	ErrValidation = errors.New("validation")
)

// Token verification sentinels. These stay internal: the HTTP layer collapses
// all of them into one generic 401 so a caller cannot distinguish an expired
// token from a forged one.
var (
	// ErrMalformedToken indicates a token that is not structurally parsable.
	ErrMalformedToken = errors.New("malformed token")

	// ErrSignatureInvalid indicates a MAC mismatch.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrIssuerMismatch indicates the iss claim does not match the configured issuer.
	ErrIssuerMismatch = errors.New("issuer mismatch")

	// ErrAudienceMismatch indicates the aud claim does not match the configured audience.
	ErrAudienceMismatch = errors.New("audience mismatch")

	// ErrTokenExpired indicates the token is past its expiry plus allowed skew.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidRefreshToken covers revoked, rotated, forged and foreign refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrDuplicateHash indicates a refresh token hash collision at insert time.
	ErrDuplicateHash = errors.New("duplicate token hash")
)
