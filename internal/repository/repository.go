package repository

import (
	"context"

	"github.com/utafrali/QuaichGo/internal/domain"
)

// MeetingRepository persists meetings.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	GetByID(ctx context.Context, id string) (*domain.Meeting, error)

	// List returns a page of meetings, newest first, and the total count.
	List(ctx context.Context, page, perPage int) ([]domain.Meeting, int, error)

	// Update writes date, location and quaich whisky, keeping the whiskies'
	// quaich flags in step. A nil quaich keeps the current one, an empty one
	// clears it, and a whisky from another meeting is invalid input.
	Update(ctx context.Context, meeting *domain.Meeting) error

	// Close moves an OPEN meeting to CLOSED. With a nil quaichWhiskyID the
	// best-rated whisky (ties to the lower display order) is recorded as the
	// quaich, computed while the meeting row is locked against new votes.
	Close(ctx context.Context, id string, quaichWhiskyID *string) (*domain.Meeting, error)
}

// WhiskyRepository persists whiskies. Writes fail with MEETING_CLOSED once
// the whisky's meeting is closed.
type WhiskyRepository interface {
	Create(ctx context.Context, whisky *domain.Whisky) error
	GetByID(ctx context.Context, id string) (*domain.Whisky, error)

	// ListByMeeting returns the meeting's whiskies ordered by display order.
	ListByMeeting(ctx context.Context, meetingID string) ([]domain.Whisky, error)

	Update(ctx context.Context, whisky *domain.Whisky) error

	// Delete removes a whisky that has no votes and returns its meeting ID.
	Delete(ctx context.Context, id string) (meetingID string, err error)
}

// VoteRepository persists votes. Both writes lock the whisky's meeting row
// for share and fail with MEETING_CLOSED once it is closed.
type VoteRepository interface {
	// Create inserts a vote, failing with DUPLICATE_VOTE if the member already
	// rated the whisky. It returns the whisky's meeting ID.
	Create(ctx context.Context, vote *domain.Vote) (meetingID string, err error)

	// Update changes the rating and comment of the member's existing vote,
	// filling in its ID and timestamps. It returns the whisky's meeting ID.
	Update(ctx context.Context, vote *domain.Vote) (meetingID string, err error)
}

// MemberRepository persists members.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
	Update(ctx context.Context, member *domain.Member) error

	// Delete removes a member with no votes.
	Delete(ctx context.Context, id string) error
}

// ResultsReader gives the aggregation engine and result assembler a single
// consistent view of the database.
type ResultsReader interface {
	// Snapshot runs fn against one read-only snapshot. Every query made
	// through the ResultsSnapshot sees the same committed state.
	Snapshot(ctx context.Context, fn func(ResultsSnapshot) error) error
}

// ResultsSnapshot is the read side of a results snapshot.
type ResultsSnapshot interface {
	Meeting(ctx context.Context, id string) (*domain.Meeting, error)
	Whisky(ctx context.Context, id string) (*domain.Whisky, error)
	Whiskies(ctx context.Context, meetingID string) ([]domain.Whisky, error)

	// Aggregates runs one grouped query over the votes of whiskyIDs. Whiskies
	// without votes are absent from the map.
	Aggregates(ctx context.Context, whiskyIDs []string) (map[string]domain.Aggregate, error)

	// VoteDetails lists the votes on whiskyIDs with their authors, newest first.
	VoteDetails(ctx context.Context, whiskyIDs []string) ([]domain.VoteDetail, error)
}
