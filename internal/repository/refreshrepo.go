package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"ragkeeper/internal/model"
)

// RefreshTokenRepository tracks issued refresh tokens by hash with revocation
// state. Rows are only ever inserted and revoked, never deleted or reused.
type RefreshTokenRepository interface {
	// Save inserts a new active token row.
	// Returns errs.ErrDuplicateHash if the hash already exists.
	Save(ctx context.Context, t *model.RefreshToken) error

	// FindActiveByHash returns the non-revoked row for a hash. Expiry is
	// deliberately not part of the predicate: callers check it themselves so
	// "expired but present" stays distinguishable for audit.
	FindActiveByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)

	// Revoke marks a row revoked. Revoking an already-revoked row is a no-op,
	// so concurrent revocation attempts converge safely.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeAllForUser revokes every active row owned by the user in one
	// statement (logout).
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error

	// Replace atomically revokes the old row and inserts its successor
	// (rotation). Returns errs.ErrNotFound if the old row is missing or
	// already revoked, which is how exactly one of two racing rotations wins.
	// A failure after the revoke rolls the whole unit back.
	Replace(ctx context.Context, oldID uuid.UUID, next *model.RefreshToken) error
}
