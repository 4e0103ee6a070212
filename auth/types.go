package auth

import (
	"time"

	"github.com/snackbase/snackbase-go/tokenstore"
)

// Credentials identify a user for login. Account may be an account slug
// or id; when empty the client's DefaultAccount is used.
type Credentials struct {
	Account  string `json:"account,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration creates a new account together with its first user.
type Registration struct {
	AccountName string `json:"account_name" validate:"required,max=255"`
	AccountSlug string `json:"account_slug,omitempty" validate:"omitempty,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// User is the user record embedded in session responses.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Account is the account record embedded in session responses.
type Account struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Session is the backend's response to login and registration.
type Session struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         *User    `json:"user,omitempty"`
	Account      *Account `json:"account,omitempty"`
}

// expiry returns the absolute token expiry, falling back to the token's
// exp claim when the response carries no lifetime.
func (s *Session) expiry(now time.Time) *time.Time {
	if s.ExpiresIn > 0 {
		t := now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
		return &t
	}
	return tokenstore.ExpiryFromJWT(s.Token)
}

// Identity is the authenticated principal returned by the me endpoint.
type Identity struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}
