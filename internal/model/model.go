// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the coarse authorization level carried in access-token claims.
type Role string

// Known roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents an account stored on the server.
type User struct {
	ID           uuid.UUID // PK
	Username     string    // unique
	Email        string    // unique
	PasswordHash []byte    // bcrypt
	Role         Role
	OrgTags      string // comma-separated organization tags, may be empty
	CreatedAt    time.Time
}

// OrgTagList splits the comma-separated tags, dropping blanks.
func (u *User) OrgTagList() []string { return splitTags(u.OrgTags) }

// Principal is the resolved identity of an authenticated caller. It is built
// from verified token claims, immutable once constructed, and deliberately
// decoupled from the persistence entity.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Role     Role
	OrgTags  string
}

// OrgTagList splits the comma-separated tags, dropping blanks.
func (p Principal) OrgTagList() []string { return splitTags(p.OrgTags) }

func splitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Tokens collects an issued access/refresh pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

// RefreshToken is the persisted record of an issued refresh token. Only the
// SHA-256 hash of the wire string is stored; revocation is the sole mutation
// a row ever sees, and rows are never deleted in normal operation.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // hex SHA-256 of the wire string, unique
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the token may still be used for rotation.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// Conversation is a chat thread owned by a single user.
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	CreatedAt time.Time
}

// Message is a single entry in a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string // "user" or "assistant"
	Content        string
	CreatedAt      time.Time
}
