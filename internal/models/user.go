package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleViewer UserRole = "VIEWER"
)

// User is an operator account allowed to use the API.
type User struct {
	UserID       int64  `db:"user_id" json:"user_id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	IsAdmin      bool   `db:"is_admin" json:"is_admin"`
}

// Role maps the admin flag to an RBAC role.
func (u User) Role() UserRole {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleViewer
}
