package domain

import "time"

// Meeting statuses. A meeting moves from OPEN to CLOSED exactly once.
const (
	MeetingStatusOpen   = "OPEN"
	MeetingStatusClosed = "CLOSED"
)

// Meeting is a tasting session whose whiskies members rate.
type Meeting struct {
	ID             string     `json:"id"`
	Date           time.Time  `json:"date"`
	Location       string     `json:"location"`
	QuaichWhiskyID *string    `json:"quaich_whisky_id,omitempty"`
	Status         string     `json:"status"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsOpen reports whether votes may still be cast or edited.
func (m *Meeting) IsOpen() bool {
	return m.Status == MeetingStatusOpen
}

// IsValidMeetingStatus checks whether status is a known meeting status.
func IsValidMeetingStatus(status string) bool {
	return status == MeetingStatusOpen || status == MeetingStatusClosed
}
