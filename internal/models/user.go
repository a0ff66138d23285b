package models

// User represents a dashboard user able to authenticate.
type User struct {
	ID           int64  `json:"id"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"` // Not serialized
	Role         string `json:"role"`
}

// Roles recognized by the auth middleware.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
