package cache

// Tags name groups of cache entries that one mutation invalidates together.
// Keys name individual entries. Both are pure functions of their ids.

const (
	// MembersTag covers every cached member list.
	MembersTag = "members"
	// ReviewsTag covers every cached view derived from individual votes.
	ReviewsTag = "reviews"
)

// MeetingTag covers a meeting's metadata.
func MeetingTag(meetingID string) string { return "meeting:" + meetingID }

// MeetingResultsTag covers a meeting's aggregated results.
func MeetingResultsTag(meetingID string) string { return "meeting-results:" + meetingID }

// MeetingWhiskiesTag covers the whisky list of a meeting.
func MeetingWhiskiesTag(meetingID string) string { return "meeting-whiskies:" + meetingID }

// WhiskyTag covers everything cached about a single whisky.
func WhiskyTag(whiskyID string) string { return "whisky:" + whiskyID }

// MeetingResultsKey is the key of a meeting's results view.
func MeetingResultsKey(meetingID string) string { return "meeting-results:" + meetingID }

// WhiskyAggregateKey is the key of a single whisky's aggregate.
func WhiskyAggregateKey(whiskyID string) string { return "whisky-aggregate:" + whiskyID }

// MeetingKey is the key of a meeting's metadata.
func MeetingKey(meetingID string) string { return "meeting:" + meetingID }

// MeetingWhiskiesKey is the key of a meeting's whisky list.
func MeetingWhiskiesKey(meetingID string) string { return "meeting-whiskies:" + meetingID }

// MembersKey is the single cached member list.
const MembersKey = "members"
