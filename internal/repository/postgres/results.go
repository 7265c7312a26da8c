package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

// ResultsRepository implements repository.ResultsReader using PostgreSQL.
type ResultsRepository struct {
	pool database.DBTX
}

// NewResultsRepository creates a new PostgreSQL-backed results reader.
func NewResultsRepository(pool database.DBTX) *ResultsRepository {
	return &ResultsRepository{pool: pool}
}

// Snapshot runs fn inside a REPEATABLE READ READ ONLY transaction.
func (r *ResultsRepository) Snapshot(ctx context.Context, fn func(repository.ResultsSnapshot) error) error {
	return database.WithTx(ctx, r.pool, database.SnapshotRead, func(tx pgx.Tx) error {
		return fn(&snapshot{q: tx})
	})
}

type snapshot struct {
	q querier
}

func (s *snapshot) Meeting(ctx context.Context, id string) (*domain.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	m, err := scanMeeting(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("meeting", id)
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

func (s *snapshot) Whisky(ctx context.Context, id string) (*domain.Whisky, error) {
	query := `SELECT ` + whiskyColumns + ` FROM whiskies WHERE id = $1`

	w, err := scanWhisky(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("whisky", id)
		}
		return nil, fmt.Errorf("get whisky: %w", err)
	}
	return w, nil
}

func (s *snapshot) Whiskies(ctx context.Context, meetingID string) ([]domain.Whisky, error) {
	return listWhiskies(ctx, s.q, meetingID)
}

// Aggregates computes count, average, min and max for all whiskyIDs with a
// single GROUP BY.
func (s *snapshot) Aggregates(ctx context.Context, whiskyIDs []string) (result map[string]domain.Aggregate, err error) {
	query := `
		SELECT whisky_id, COUNT(*), AVG(rating)::float8, MIN(rating), MAX(rating)
		FROM votes
		WHERE whisky_id = ANY($1::text[]::uuid[])
		GROUP BY whisky_id`

	ctx, end := database.TraceQuery(ctx, "AggregateVotes", query)
	defer func() { end(err) }()

	rows, err := s.q.Query(ctx, query, whiskyIDs)
	if err != nil {
		return nil, fmt.Errorf("aggregate votes: %w", err)
	}
	defer rows.Close()

	result = make(map[string]domain.Aggregate, len(whiskyIDs))
	for rows.Next() {
		var (
			whiskyID string
			agg      domain.Aggregate
		)
		if err := rows.Scan(&whiskyID, &agg.Count, &agg.Average, &agg.Min, &agg.Max); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		result[whiskyID] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return result, nil
}

// VoteDetails lists individual votes with their authors, newest first.
func (s *snapshot) VoteDetails(ctx context.Context, whiskyIDs []string) (details []domain.VoteDetail, err error) {
	query := `
		SELECT v.id, v.whisky_id, v.rating, v.comment, v.created_at,
		       m.name, m.last_name, m.image_url
		FROM votes v
		JOIN members m ON m.id = v.member_id
		WHERE v.whisky_id = ANY($1::text[]::uuid[])
		ORDER BY v.created_at DESC, v.id DESC`

	ctx, end := database.TraceQuery(ctx, "ListVoteDetails", query)
	defer func() { end(err) }()

	rows, err := s.q.Query(ctx, query, whiskyIDs)
	if err != nil {
		return nil, fmt.Errorf("list vote details: %w", err)
	}
	defer rows.Close()

	details = []domain.VoteDetail{}
	for rows.Next() {
		var d domain.VoteDetail
		if err := rows.Scan(
			&d.ID,
			&d.WhiskyID,
			&d.Rating,
			&d.Comment,
			&d.CreatedAt,
			&d.User.Name,
			&d.User.LastName,
			&d.User.Image,
		); err != nil {
			return nil, fmt.Errorf("scan vote detail row: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote detail rows: %w", err)
	}
	return details, nil
}
