package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

// VoteRepository implements repository.VoteRepository using PostgreSQL.
type VoteRepository struct {
	pool database.DBTX
}

// NewVoteRepository creates a new PostgreSQL-backed vote repository.
func NewVoteRepository(pool database.DBTX) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// Create inserts the vote unless the member already voted for the whisky.
// The unique (whisky_id, member_id) constraint decides, so concurrent
// duplicates cannot both succeed.
func (r *VoteRepository) Create(ctx context.Context, v *domain.Vote) (string, error) {
	var meetingID string

	err := database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		var err error
		meetingID, err = lockOpenMeetingOfWhisky(ctx, tx, v.WhiskyID)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO votes (id, whisky_id, member_id, rating, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (whisky_id, member_id) DO NOTHING
			RETURNING id`

		var id string
		err = tx.QueryRow(ctx, query,
			v.ID,
			v.WhiskyID,
			v.MemberID,
			v.Rating,
			v.Comment,
			v.CreatedAt,
			v.UpdatedAt,
		).Scan(&id)
		if err != nil {
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				return apperrors.DuplicateVote(v.MemberID, v.WhiskyID)
			case database.IsForeignKeyViolation(err):
				return apperrors.NotFound("member", v.MemberID)
			default:
				return fmt.Errorf("insert vote: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return meetingID, nil
}

// Update rewrites the member's vote on the whisky.
func (r *VoteRepository) Update(ctx context.Context, v *domain.Vote) (string, error) {
	var meetingID string

	err := database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		var err error
		meetingID, err = lockOpenMeetingOfWhisky(ctx, tx, v.WhiskyID)
		if err != nil {
			return err
		}

		query := `
			UPDATE votes
			SET rating = $3, comment = $4, updated_at = $5
			WHERE whisky_id = $1 AND member_id = $2
			RETURNING id, created_at`

		err = tx.QueryRow(ctx, query,
			v.WhiskyID,
			v.MemberID,
			v.Rating,
			v.Comment,
			v.UpdatedAt,
		).Scan(&v.ID, &v.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("vote", v.MemberID+"/"+v.WhiskyID)
			}
			return fmt.Errorf("update vote: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return meetingID, nil
}
