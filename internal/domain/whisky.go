package domain

import "time"

// Whisky is one dram poured at a meeting. DisplayOrder is unique within the
// meeting and decides the order results are shown in.
type Whisky struct {
	ID           string    `json:"id"`
	MeetingID    string    `json:"meeting_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	DisplayOrder int       `json:"display_order"`
	Quaich       bool      `json:"quaich"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
