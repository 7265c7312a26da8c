package domain

import "time"

// Member roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Member is a club member who rates whiskies.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"image_url"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsValidRole checks whether role is a known member role.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
