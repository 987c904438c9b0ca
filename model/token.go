// file: model/token.go

package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// ExpiredAt is stored as unix seconds, matching the exp claim of the
// signed token it mirrors.
type RefreshToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"-"` // The signed string is not exposed in JSON responses.
	ExpiredAt int64     `json:"expired_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`

	// User is the owning user, populated by joined lookups only.
	User *User `json:"-"`
}
