package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

const meetingColumns = `id, date, location, quaich_whisky_id, status, closed_at, created_at, updated_at`

// MeetingRepository implements repository.MeetingRepository using PostgreSQL.
type MeetingRepository struct {
	pool database.DBTX
}

// NewMeetingRepository creates a new PostgreSQL-backed meeting repository.
func NewMeetingRepository(pool database.DBTX) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

func scanMeeting(row pgx.Row) (*domain.Meeting, error) {
	var m domain.Meeting
	err := row.Scan(
		&m.ID,
		&m.Date,
		&m.Location,
		&m.QuaichWhiskyID,
		&m.Status,
		&m.ClosedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new meeting.
func (r *MeetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	query := `
		INSERT INTO meetings (id, date, location, quaich_whisky_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Date,
		m.Location,
		m.QuaichWhiskyID,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// GetByID retrieves a meeting by its ID.
func (r *MeetingRepository) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	m, err := scanMeeting(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("meeting", id)
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// List returns a page of meetings ordered newest first along with the total count.
func (r *MeetingRepository) List(ctx context.Context, page, perPage int) ([]domain.Meeting, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * perPage
	}

	query := `
		SELECT ` + meetingColumns + `, count(*) OVER() AS total_count
		FROM meetings
		ORDER BY date DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var (
		meetings   []domain.Meeting
		totalCount int
	)
	for rows.Next() {
		var m domain.Meeting
		if err := rows.Scan(
			&m.ID,
			&m.Date,
			&m.Location,
			&m.QuaichWhiskyID,
			&m.Status,
			&m.ClosedAt,
			&m.CreatedAt,
			&m.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan meeting row: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate meeting rows: %w", err)
	}

	if meetings == nil {
		meetings = []domain.Meeting{}
	}
	return meetings, totalCount, nil
}

// Update writes the editable meeting fields and re-flags the quaich whisky.
// A nil QuaichWhiskyID keeps the current quaich and an empty one clears it.
func (r *MeetingRepository) Update(ctx context.Context, m *domain.Meeting) error {
	quaich := m.QuaichWhiskyID
	clearQuaich := quaich != nil && *quaich == ""
	if clearQuaich {
		quaich = nil
	}

	return database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		if quaich != nil {
			if err := checkQuaichWhisky(ctx, tx, *quaich, m.ID); err != nil {
				return err
			}
		}

		query := `
			UPDATE meetings
			SET date = $2, location = $3,
			    quaich_whisky_id = CASE WHEN $6 THEN NULL ELSE COALESCE($4, quaich_whisky_id) END,
			    updated_at = $5
			WHERE id = $1`

		tag, err := tx.Exec(ctx, query, m.ID, m.Date, m.Location, quaich, m.UpdatedAt, clearQuaich)
		if err != nil {
			return fmt.Errorf("update meeting: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("meeting", m.ID)
		}

		return syncQuaichFlags(ctx, tx, m.ID)
	})
}

// Close closes an OPEN meeting and records its quaich whisky.
func (r *MeetingRepository) Close(ctx context.Context, id string, quaichWhiskyID *string) (*domain.Meeting, error) {
	var closed *domain.Meeting

	err := database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM meetings WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("meeting", id)
			}
			return fmt.Errorf("lock meeting: %w", err)
		}
		if status != domain.MeetingStatusOpen {
			return apperrors.MeetingClosed(id)
		}

		quaich := quaichWhiskyID
		if quaich != nil {
			if err := checkQuaichWhisky(ctx, tx, *quaich, id); err != nil {
				return err
			}
		} else {
			winnerQuery := `
				SELECT w.id
				FROM whiskies w
				JOIN votes v ON v.whisky_id = w.id
				WHERE w.meeting_id = $1
				GROUP BY w.id, w.display_order
				ORDER BY AVG(v.rating) DESC, w.display_order ASC
				LIMIT 1`

			var winner string
			err := tx.QueryRow(ctx, winnerQuery, id).Scan(&winner)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				// Nothing rated: keep any quaich chosen earlier.
			case err != nil:
				return fmt.Errorf("pick quaich whisky: %w", err)
			default:
				quaich = &winner
			}
		}

		now := time.Now().UTC()
		closeQuery := `
			UPDATE meetings
			SET status = 'CLOSED', closed_at = $2, updated_at = $2,
			    quaich_whisky_id = COALESCE($3, quaich_whisky_id)
			WHERE id = $1 AND status = 'OPEN'
			RETURNING ` + meetingColumns

		closed, err = scanMeeting(tx.QueryRow(ctx, closeQuery, id, now, quaich))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.MeetingClosed(id)
			}
			return fmt.Errorf("close meeting: %w", err)
		}

		return syncQuaichFlags(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// checkQuaichWhisky rejects a quaich whisky poured at another meeting.
func checkQuaichWhisky(ctx context.Context, tx pgx.Tx, whiskyID, meetingID string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM whiskies WHERE id = $1 AND meeting_id = $2)`,
		whiskyID, meetingID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check quaich whisky: %w", err)
	}
	if !exists {
		return apperrors.InvalidInput("quaich whisky does not belong to the meeting")
	}
	return nil
}

// syncQuaichFlags sets whiskies.quaich for exactly the meeting's quaich whisky.
func syncQuaichFlags(ctx context.Context, tx pgx.Tx, meetingID string) error {
	query := `
		UPDATE whiskies w
		SET quaich = COALESCE(w.id = m.quaich_whisky_id, FALSE)
		FROM meetings m
		WHERE m.id = $1 AND w.meeting_id = m.id`

	if _, err := tx.Exec(ctx, query, meetingID); err != nil {
		return fmt.Errorf("sync quaich flags: %w", err)
	}
	return nil
}
