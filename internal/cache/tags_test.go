package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagsAndKeys(t *testing.T) {
	assert.Equal(t, "meeting:42", MeetingTag("42"))
	assert.Equal(t, "meeting-results:42", MeetingResultsTag("42"))
	assert.Equal(t, "meeting-whiskies:42", MeetingWhiskiesTag("42"))
	assert.Equal(t, "whisky:7", WhiskyTag("7"))
	assert.Equal(t, "members", MembersTag)
	assert.Equal(t, "reviews", ReviewsTag)

	assert.Equal(t, "meeting-results:42", MeetingResultsKey("42"))
	assert.Equal(t, "whisky-aggregate:7", WhiskyAggregateKey("7"))
	assert.Equal(t, "meeting:42", MeetingKey("42"))
	assert.Equal(t, "meeting-whiskies:42", MeetingWhiskiesKey("42"))
	assert.Equal(t, "members", MembersKey)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "meeting-results", kindOf("meeting-results:abc"))
	assert.Equal(t, "members", kindOf("members"))
}
