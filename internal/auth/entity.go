// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

type AdminAccount struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// AdminSession is what a successful login hands back to the handler.
type AdminSession struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
	Admin     *AdminAccount
}
