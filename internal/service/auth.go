// Package service contains application services for authentication and conversations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "ragkeeper/internal/crypto"
	"ragkeeper/internal/errs"
	"ragkeeper/internal/limiter"
	"ragkeeper/internal/model"
	"ragkeeper/internal/repository"
	"ragkeeper/internal/token"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	OrgTags  string
}

// AuthService owns the credential and token lifecycle: registration, login,
// refresh-token rotation, logout and per-request token authentication.
type AuthService interface {
	// Register creates a new account and issues its first token pair.
	Register(ctx context.Context, in RegisterInput) (model.Tokens, model.User, error)
	// LoginWithIP applies rate-limiting, checks credentials and issues a pair.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error)
	// Refresh validates a presented refresh token and atomically rotates it.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error)
	// Logout revokes every active refresh token the user owns. Already-issued
	// access tokens are stateless and simply run out on their own schedule.
	Logout(ctx context.Context, userID uuid.UUID) error
	// Authenticate verifies an access token with full strictness and returns
	// the principal it vouches for.
	Authenticate(tokenString string) (model.Principal, error)
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
	codec   *token.Codec
	issuer  *token.Issuer
	grace   time.Duration // extra expiry tolerance for refresh tokens, on top of skew
	lim     limiter.Limiter
	now     func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	refresh repository.RefreshTokenRepository,
	codec *token.Codec,
	issuer *token.Issuer,
	grace time.Duration,
	lim limiter.Limiter,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:   users,
		refresh: refresh,
		codec:   codec,
		issuer:  issuer,
		grace:   grace,
		lim:     lim,
		now:     time.Now,
	}
}

// Register creates a new user record and issues the first access/refresh pair.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (model.Tokens, model.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: empty username/email/password", errs.ErrValidation)
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("username: %w", errs.ErrAlreadyExists)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("email: %w", errs.ErrAlreadyExists)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}

	hash, err := pkgcrypto.HashPassword([]byte(in.Password))
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u := &model.User{
		ID:           uid,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		OrgTags:      strings.TrimSpace(in.OrgTags),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, model.User{}, err
	}

	tokens, err := s.issuePair(ctx, u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// LoginWithIP authenticates with rate limiting keyed by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		// store trouble is not an auth decision
		return model.Tokens{}, model.User{}, err
	}
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.PasswordHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// hide whether the account exists
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, username, ipHash)

	tokens, err := s.issuePair(ctx, u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// Refresh rotates a refresh token: exactly one old row flips to revoked and
// exactly one new row is inserted, as a single atomic unit.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error) {
	claims, err := s.verifyRefreshClaims(refreshToken)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}

	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: bad subject", errs.ErrInvalidRefreshToken)
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, model.User{}, fmt.Errorf("%w: unknown subject", errs.ErrInvalidRefreshToken)
		}
		return model.Tokens{}, model.User{}, err
	}

	row, err := s.refresh.FindActiveByHash(ctx, pkgcrypto.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// already rotated, revoked, forged or foreign
			return model.Tokens{}, model.User{}, errs.ErrInvalidRefreshToken
		}
		return model.Tokens{}, model.User{}, err
	}
	if s.now().After(row.ExpiresAt.Add(s.codec.Leeway() + s.grace)) {
		// lazy expiry cleanup on touch
		_ = s.refresh.Revoke(ctx, row.ID)
		return model.Tokens{}, model.User{}, fmt.Errorf("%w: expired", errs.ErrInvalidRefreshToken)
	}

	tokens, err := s.rotatePair(ctx, u, row.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// a concurrent rotation won the race
			return model.Tokens{}, model.User{}, errs.ErrInvalidRefreshToken
		}
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// verifyRefreshClaims applies the stricter refresh-path rule: the subject is
// trusted only out of a token whose signature verified. Expiry alone may be
// continued past, within skew plus the configured grace window. Anything
// else is a hard reject, so a forger can never pick whose tokens get revoked.
func (s *AuthServiceImpl) verifyRefreshClaims(refreshToken string) (*token.Claims, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		if !errors.Is(err, errs.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRefreshToken, err)
		}
		claims, err = s.codec.VerifySkipExpiry(refreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRefreshToken, err)
		}
		if claims.ExpiresAt == nil {
			return nil, fmt.Errorf("%w: no expiry", errs.ErrInvalidRefreshToken)
		}
		deadline := claims.ExpiresAt.Add(s.codec.Leeway() + s.grace)
		if s.now().After(deadline) {
			return nil, fmt.Errorf("%w: grace window passed", errs.ErrInvalidRefreshToken)
		}
	}
	if claims.Use != token.UseRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", errs.ErrInvalidRefreshToken)
	}
	return claims, nil
}

// Logout revokes all active refresh tokens for the user. A login racing this
// call may commit after the revocation snapshot and survive; that is an
// accepted race, not a correctness bug.
func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.refresh.RevokeAllForUser(ctx, userID)
}

// Authenticate verifies an access token and builds the request principal.
// Every failure collapses to ErrUnauthorized; the wrapped detail is for logs
// only and never reaches the caller.
func (s *AuthServiceImpl) Authenticate(tokenString string) (model.Principal, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if claims.Use != token.UseAccess {
		return model.Principal{}, fmt.Errorf("%w: not an access token", errs.ErrUnauthorized)
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return model.Principal{
		UserID:   uid,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     model.Role(claims.Role),
		OrgTags:  claims.OrgTags,
	}, nil
}

// issuePair mints an access/refresh pair and persists the refresh hash as a
// fresh row.
func (s *AuthServiceImpl) issuePair(ctx context.Context, u *model.User) (model.Tokens, error) {
	return s.mintPair(ctx, u, func(ctx context.Context, row *model.RefreshToken) error {
		return s.refresh.Save(ctx, row)
	})
}

// rotatePair mints a pair whose refresh row atomically replaces oldID.
func (s *AuthServiceImpl) rotatePair(ctx context.Context, u *model.User, oldID uuid.UUID) (model.Tokens, error) {
	return s.mintPair(ctx, u, func(ctx context.Context, row *model.RefreshToken) error {
		return s.refresh.Replace(ctx, oldID, row)
	})
}

// mintPair issues the tokens and runs the store operation, retrying exactly
// once with a freshly minted refresh token on a hash collision.
func (s *AuthServiceImpl) mintPair(
	ctx context.Context, u *model.User,
	persist func(context.Context, *model.RefreshToken) error,
) (model.Tokens, error) {
	access, accessExp, err := s.issuer.Access(u)
	if err != nil {
		return model.Tokens{}, err
	}

	for attempt := 0; ; attempt++ {
		refresh, refreshExp, err := s.issuer.Refresh(u)
		if err != nil {
			return model.Tokens{}, err
		}
		rowID, err := uuid.NewV4()
		if err != nil {
			return model.Tokens{}, err
		}
		row := &model.RefreshToken{
			ID:        rowID,
			UserID:    u.ID,
			TokenHash: pkgcrypto.HashToken(refresh),
			ExpiresAt: refreshExp,
		}
		err = persist(ctx, row)
		if errors.Is(err, errs.ErrDuplicateHash) && attempt == 0 {
			continue
		}
		if err != nil {
			return model.Tokens{}, err
		}
		return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: accessExp}, nil
	}
}
