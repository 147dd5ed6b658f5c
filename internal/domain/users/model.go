package users

import (
	"time"

	"makerspace-access/internal/domain/access"
)

type User struct {
	ID string

	Username string
	Email    string

	// hash argon2id, nunca se expone por la API
	PasswordHash string

	EmailVerified bool
	Permissions   []access.Permission

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPermission revisa el set del usuario.
func (u User) HasPermission(p access.Permission) bool {
	return access.HasPermission(u.Permissions, p)
}
