package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Role codes kept as the legacy short strings.
const (
	RoleAdmin = "1"
	RoleUser  = "2"
)

// User carries the subset of account data the API needs: identity, the
// opaque session token, and the role used by the access middleware.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       int64  `bun:",pk,autoincrement"`
	Username string `bun:"username"`
	Token    string `bun:"token"`
	Role     string `bun:"role"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
