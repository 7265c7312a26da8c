package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/QuaichGo/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var (
	meetingCols = []string{"id", "date", "location", "quaich_whisky_id", "status", "closed_at", "created_at", "updated_at"}
	whiskyCols  = []string{"id", "meeting_id", "name", "description", "image_url", "display_order", "quaich", "created_at", "updated_at"}
	memberCols  = []string{"id", "name", "last_name", "email", "image_url", "role", "created_at", "updated_at"}

	ts = time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)

	uniqueViolation     = &pgconn.PgError{Code: "23505", ConstraintName: "unique"}
	foreignKeyViolation = &pgconn.PgError{Code: "23503", ConstraintName: "fk"}
)

func strPtr(s string) *string { return &s }

func meetingRow(id, status string, quaich *string) []any {
	var closedAt *time.Time
	if status == "CLOSED" {
		closedAt = &ts
	}
	return []any{id, ts, "Islay night", quaich, status, closedAt, ts, ts}
}

func whiskyRow(id, meetingID string, order int) []any {
	return []any{id, meetingID, "Whisky " + id, "", "", order, false, ts, ts}
}

// expectLockWhisky expects the share lock taken on a whisky's meeting.
func expectLockWhisky(mock pgxmock.PgxPoolIface, whiskyID, meetingID, status string) {
	mock.ExpectQuery(`SELECT m.id, m.status\s+FROM whiskies w`).
		WithArgs(whiskyID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status"}).AddRow(meetingID, status))
}
