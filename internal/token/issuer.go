package token

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"ragkeeper/internal/model"
)

// Issuer mints access and refresh token strings for a user. Issuance is a
// pure function of (user, current time, configuration): persisting the
// refresh token's hash is the caller's job.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an issuer bound to a codec and the configured TTLs.
func NewIssuer(codec *Codec, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// Access mints a short-lived access token carrying the full identity claim
// set. The jti is random per call and never checked against a store.
func (i *Issuer) Access(u *model.User) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := &Claims{
		RegisteredClaims: i.registered(u, now, exp),
		Use:              UseAccess,
		Username:         u.Username,
		Email:            u.Email,
		Role:             string(u.Role),
		OrgTags:          u.OrgTags,
	}
	signed, err := i.codec.Sign(claims)
	return signed, exp, err
}

// Refresh mints a long-lived refresh token. It authorizes rotation only, so
// no role/org/email claims are embedded and its use claim keeps it from ever
// being accepted on the resource-access path.
func (i *Issuer) Refresh(u *model.User) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.refreshTTL)
	claims := &Claims{
		RegisteredClaims: i.registered(u, now, exp),
		Use:              UseRefresh,
	}
	signed, err := i.codec.Sign(claims)
	return signed, exp, err
}

func (i *Issuer) registered(u *model.User, now, exp time.Time) jwt.RegisteredClaims {
	jti := uuid.Must(uuid.NewV4())
	return jwt.RegisteredClaims{
		Subject:   u.ID.String(),
		Issuer:    i.codec.issuer,
		Audience:  jwt.ClaimStrings{i.codec.audience},
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}
