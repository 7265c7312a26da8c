package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

// lockOpenMeeting takes a share lock on the meeting row and fails unless it
// is OPEN. Closing needs the row exclusively, so a close and any write holding
// this lock serialize.
func lockOpenMeeting(ctx context.Context, tx pgx.Tx, meetingID string) error {
	query := `SELECT status FROM meetings WHERE id = $1 FOR SHARE`

	var status string
	if err := tx.QueryRow(ctx, query, meetingID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("meeting", meetingID)
		}
		return fmt.Errorf("lock meeting: %w", err)
	}
	if status != domain.MeetingStatusOpen {
		return apperrors.MeetingClosed(meetingID)
	}
	return nil
}

// lockOpenMeetingOfWhisky is lockOpenMeeting for the meeting owning whiskyID.
// It returns that meeting's ID.
func lockOpenMeetingOfWhisky(ctx context.Context, tx pgx.Tx, whiskyID string) (string, error) {
	query := `
		SELECT m.id, m.status
		FROM whiskies w
		JOIN meetings m ON m.id = w.meeting_id
		WHERE w.id = $1
		FOR SHARE OF m`

	var meetingID, status string
	if err := tx.QueryRow(ctx, query, whiskyID).Scan(&meetingID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("whisky", whiskyID)
		}
		return "", fmt.Errorf("lock meeting of whisky: %w", err)
	}
	if status != domain.MeetingStatusOpen {
		return meetingID, apperrors.MeetingClosed(meetingID)
	}
	return meetingID, nil
}
