package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

func newVote() *domain.Vote {
	return &domain.Vote{
		ID:        "v1",
		WhiskyID:  "w1",
		MemberID:  "u1",
		Rating:    4,
		Comment:   strPtr("smoky"),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func expectInsertVote(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedQuery {
	return mock.ExpectQuery(`INSERT INTO votes .+ ON CONFLICT \(whisky_id, member_id\) DO NOTHING`).
		WithArgs("v1", "w1", "u1", 4, pgxmock.AnyArg(), ts, ts)
}

func TestVoteRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "OPEN")
	expectInsertVote(mock).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("v1"))
	mock.ExpectCommit()

	meetingID, err := repo.Create(context.Background(), newVote())
	require.NoError(t, err)
	assert.Equal(t, "m1", meetingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "OPEN")
	expectInsertVote(mock).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newVote())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateVote)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DUPLICATE_VOTE", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_Create_UnknownMember(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "OPEN")
	expectInsertVote(mock).WillReturnError(foreignKeyViolation)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newVote())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "member")
}

func TestVoteRepository_Create_ClosedMeeting(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "CLOSED")
	mock.ExpectRollback()

	meetingID, err := repo.Create(context.Background(), newVote())
	assert.ErrorIs(t, err, apperrors.ErrMeetingClosed)
	assert.Empty(t, meetingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_Create_UnknownWhisky(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)

	mock.ExpectBeginTx(database.ReadWrite)
	mock.ExpectQuery(`FROM whiskies w`).
		WithArgs("w1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newVote())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "whisky")
}

func TestVoteRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)
	v := &domain.Vote{WhiskyID: "w1", MemberID: "u1", Rating: 2, UpdatedAt: ts}

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "OPEN")
	mock.ExpectQuery(`UPDATE votes\s+SET rating = \$3`).
		WithArgs("w1", "u1", 2, pgxmock.AnyArg(), ts).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("v1", ts))
	mock.ExpectCommit()

	meetingID, err := repo.Update(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "m1", meetingID)
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, ts, v.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_Update_NoVote(t *testing.T) {
	mock := newMock(t)
	repo := NewVoteRepository(mock)
	v := &domain.Vote{WhiskyID: "w1", MemberID: "u1", Rating: 2, UpdatedAt: ts}

	mock.ExpectBeginTx(database.ReadWrite)
	expectLockWhisky(mock, "w1", "m1", "OPEN")
	mock.ExpectQuery(`UPDATE votes`).
		WithArgs("w1", "u1", 2, pgxmock.AnyArg(), ts).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), v)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
