// internal/data/users.go
package data

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"time"
)

// User represents an account that can place orders. Accounts are provisioned
// outside this API; this model only reads them.
type User struct {
	ID        int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// UserModel wraps a *sql.DB connection and provides read-only lookups against
// the users and tokens tables.
type UserModel struct {
	DB *sql.DB // Shared database connection pool
}

// Get retrieves a single user by id, or ErrRecordNotFound.
func (m UserModel) Get(id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT user_id, username, email, created_at
		FROM users
		WHERE user_id = $1`

	var user User
	err := m.DB.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}

// GetForToken resolves a bearer token to its user. Only the SHA-256 hash of
// the token is stored, so the plaintext is hashed before the lookup. Expired
// tokens and unknown tokens both come back as ErrRecordNotFound.
func (m UserModel) GetForToken(tokenPlaintext string) (*User, error) {
	tokenHash := sha256.Sum256([]byte(tokenPlaintext))

	query := `
		SELECT u.user_id, u.username, u.email, u.created_at
		FROM users u
		INNER JOIN tokens t ON t.user_id = u.user_id
		WHERE t.token_hash = $1 AND t.expiry > now()`

	var user User
	err := m.DB.QueryRow(query, tokenHash[:]).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}
