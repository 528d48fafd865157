package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
)

// RefreshTokenRepo implements repository.RefreshTokenRepository using
// PostgreSQL. The token_hash column carries a unique index; all hash
// collisions surface as errs.ErrDuplicateHash for the caller's retry logic.
type RefreshTokenRepo struct{ db *DB }

// NewRefreshTokenRepo constructs a refresh token repository.
func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

// Save inserts a new active token row.
func (r *RefreshTokenRepo) Save(ctx context.Context, t *model.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, t.ID, t.UserID, t.TokenHash, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateHash
	}
	return err
}

// FindActiveByHash returns the non-revoked row for a hash. Expired rows still
// match; the caller owns the expiry decision.
func (r *RefreshTokenRepo) FindActiveByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	const q = `
SELECT id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
FROM refresh_tokens WHERE token_hash=$1 AND revoked=false`
	var t model.RefreshToken
	err := r.db.Pool.QueryRow(ctx, q, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.RevokedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Revoke marks a row revoked. Zero rows affected means the row was already
// revoked or never existed; both count as success.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE refresh_tokens SET revoked=true, revoked_at=now()
WHERE id=$1 AND revoked=false`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// RevokeAllForUser revokes every active row owned by the user. A login that
// commits after this statement's snapshot survives; that race is accepted.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `
UPDATE refresh_tokens SET revoked=true, revoked_at=now()
WHERE user_id=$1 AND revoked=false`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}

// Replace revokes the old row and inserts its successor in one transaction.
// The revoke must flip exactly one still-active row: when two rotations race
// on the same token, the loser sees zero rows and gets errs.ErrNotFound, so
// no two pairs are ever minted from one refresh token.
func (r *RefreshTokenRepo) Replace(ctx context.Context, oldID uuid.UUID, next *model.RefreshToken) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const rev = `
UPDATE refresh_tokens SET revoked=true, revoked_at=now()
WHERE id=$1 AND revoked=false`
	tag, err := tx.Exec(ctx, rev, oldID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	const ins = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
VALUES ($1, $2, $3, $4)`
	if _, err = tx.Exec(ctx, ins, next.ID, next.UserID, next.TokenHash, next.ExpiresAt); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrDuplicateHash
		}
		return err
	}
	return nil
}
