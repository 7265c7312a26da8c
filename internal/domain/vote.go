package domain

import "time"

// Inclusive rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Vote is one member's rating of one whisky. At most one exists per
// (WhiskyID, MemberID).
type Vote struct {
	ID        string    `json:"id"`
	WhiskyID  string    `json:"whisky_id"`
	MemberID  string    `json:"member_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsValidRating reports whether r is within [MinRating, MaxRating].
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
