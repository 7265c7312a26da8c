package domain

import (
	"net/http"
	"time"

	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

// ErrNoWhiskies is returned when results are requested for a meeting that
// exists but has no whiskies yet. It is distinct from a missing meeting.
var ErrNoWhiskies = &apperrors.AppError{
	Code:    "NO_WHISKIES",
	Message: "meeting has no whiskies",
	Status:  http.StatusNotFound,
}

// Aggregate summarises the votes on one whisky. Average is unrounded and all
// fields are zero when Count is zero.
type Aggregate struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// WhiskyAggregate is the cached aggregate of a single whisky.
type WhiskyAggregate struct {
	WhiskyID string `json:"whisky_id"`
	Aggregate
}

// VoteDetail is one vote joined with its author, as shown on the results page.
type VoteDetail struct {
	ID        string    `json:"id"`
	WhiskyID  string    `json:"-"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"-"`
	User      Reviewer  `json:"user"`
}

// Reviewer is the public part of a member shown next to their vote.
type Reviewer struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Image    string `json:"image"`
}

// WhiskyResult is one whisky with its aggregate and reviews, newest first.
type WhiskyResult struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Order       int          `json:"order"`
	Quaich      bool         `json:"quaich"`
	Average     float64      `json:"average"`
	Count       int          `json:"count"`
	Min         int          `json:"min"`
	Max         int          `json:"max"`
	Reviewers   []VoteDetail `json:"reviewers"`
}

// MeetingResults is the full results view of a meeting, whiskies ordered by
// display order.
type MeetingResults struct {
	MeetingID     string         `json:"meeting_id"`
	MeetingName   string         `json:"meeting_name"`
	MeetingDate   time.Time      `json:"meeting_date"`
	MeetingQuaich *string        `json:"meeting_quaich"`
	MeetingStatus string         `json:"meeting_status"`
	Whiskies      []WhiskyResult `json:"whiskies"`
}
