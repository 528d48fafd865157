// Package token implements signing, verification and issuance of the
// service's access and refresh credentials (HS256 JWTs).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ragkeeper/internal/errs"
)

// Token use discriminator. A refresh token must never pass for an access
// token or vice versa; callers check this claim after verification.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// MinKeyBytes is the minimum HS256 signing key size (256 bits).
const MinKeyBytes = 32

// Claims is the claim set bound into every signed token.
type Claims struct {
	jwt.RegisteredClaims
	Use      string `json:"use"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	OrgTags  string `json:"org,omitempty"`
}

// Codec binds a claim set to its signed wire string and reverses that
// binding. The signing key, issuer, audience and clock-skew leeway are fixed
// at construction and read-only afterwards.
type Codec struct {
	key      []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewCodec validates configuration and constructs a codec. A short key or a
// missing issuer/audience is a configuration error: it fails here, at
// startup, never at request time.
func NewCodec(key []byte, issuer, audience string, leeway time.Duration) (*Codec, error) {
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("signing key is %d bytes, need at least %d", len(key), MinKeyBytes)
	}
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if audience == "" {
		return nil, errors.New("audience is required")
	}
	if leeway < 0 {
		return nil, errors.New("negative clock-skew leeway")
	}
	return &Codec{key: key, issuer: issuer, audience: audience, leeway: leeway}, nil
}

// Leeway returns the configured clock-skew tolerance.
func (c *Codec) Leeway() time.Duration { return c.leeway }

// Sign serializes and MACs the claim set.
func (c *Codec) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify checks signature, issuer, audience and expiry. Leeway widens only
// the expiry boundary: issued-at is not validated at all, so skew tolerance
// can never make a future-dated token acceptable earlier.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	return &claims, nil
}

// VerifySkipExpiry enforces signature, issuer and audience but tolerates an
// expired token. The refresh flow needs this to read the subject of a token
// that is past its expiry yet otherwise genuine; it must never be used on
// the request-authentication path.
func (c *Codec) VerifySkipExpiry(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if claims.Issuer != c.issuer {
		return nil, errs.ErrIssuerMismatch
	}
	if !containsAudience(claims.Audience, c.audience) {
		return nil, errs.ErrAudienceMismatch
	}
	return &claims, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) { return c.key, nil }

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// mapJWTError normalizes golang-jwt failures to our sentinels. Claim checks
// take precedence over expiry so that a token that is both expired and
// mis-addressed is rejected for the stronger reason.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errs.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errs.ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return errs.ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return errs.ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return errs.ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
}
