package models

// UserRole is carried in the JWT "role" claim. Users themselves live in the
// identity service; the engine only sees their ID and role.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RolePlayer
}
