package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

const whiskyColumns = `id, meeting_id, name, description, image_url, display_order, quaich, created_at, updated_at`

// WhiskyRepository implements repository.WhiskyRepository using PostgreSQL.
type WhiskyRepository struct {
	pool database.DBTX
}

// NewWhiskyRepository creates a new PostgreSQL-backed whisky repository.
func NewWhiskyRepository(pool database.DBTX) *WhiskyRepository {
	return &WhiskyRepository{pool: pool}
}

func scanWhisky(row pgx.Row) (*domain.Whisky, error) {
	var w domain.Whisky
	if err := row.Scan(
		&w.ID,
		&w.MeetingID,
		&w.Name,
		&w.Description,
		&w.ImageURL,
		&w.DisplayOrder,
		&w.Quaich,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

func orderTaken(order int) error {
	return apperrors.AlreadyExists("whisky", "display_order", strconv.Itoa(order))
}

// Create inserts a whisky into an open meeting.
func (r *WhiskyRepository) Create(ctx context.Context, w *domain.Whisky) error {
	return database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		if err := lockOpenMeeting(ctx, tx, w.MeetingID); err != nil {
			return err
		}

		query := `
			INSERT INTO whiskies (id, meeting_id, name, description, image_url, display_order, quaich, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)`

		_, err := tx.Exec(ctx, query,
			w.ID,
			w.MeetingID,
			w.Name,
			w.Description,
			w.ImageURL,
			w.DisplayOrder,
			w.CreatedAt,
			w.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return orderTaken(w.DisplayOrder)
			}
			return fmt.Errorf("insert whisky: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a whisky by its ID.
func (r *WhiskyRepository) GetByID(ctx context.Context, id string) (*domain.Whisky, error) {
	query := `SELECT ` + whiskyColumns + ` FROM whiskies WHERE id = $1`

	w, err := scanWhisky(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("whisky", id)
		}
		return nil, fmt.Errorf("get whisky: %w", err)
	}
	return w, nil
}

// ListByMeeting returns the meeting's whiskies ordered by display order.
func (r *WhiskyRepository) ListByMeeting(ctx context.Context, meetingID string) ([]domain.Whisky, error) {
	return listWhiskies(ctx, r.pool, meetingID)
}

// Update writes the editable whisky fields while its meeting is open.
func (r *WhiskyRepository) Update(ctx context.Context, w *domain.Whisky) error {
	return database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		meetingID, err := lockOpenMeetingOfWhisky(ctx, tx, w.ID)
		if err != nil {
			return err
		}
		w.MeetingID = meetingID

		query := `
			UPDATE whiskies
			SET name = $2, description = $3, image_url = $4, display_order = $5, updated_at = $6
			WHERE id = $1
			RETURNING quaich, created_at`

		err = tx.QueryRow(ctx, query,
			w.ID,
			w.Name,
			w.Description,
			w.ImageURL,
			w.DisplayOrder,
			w.UpdatedAt,
		).Scan(&w.Quaich, &w.CreatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return orderTaken(w.DisplayOrder)
			}
			return fmt.Errorf("update whisky: %w", err)
		}
		return nil
	})
}

// Delete removes a whisky that nobody has voted for.
func (r *WhiskyRepository) Delete(ctx context.Context, id string) (string, error) {
	var meetingID string

	err := database.WithTx(ctx, r.pool, database.ReadWrite, func(tx pgx.Tx) error {
		var err error
		meetingID, err = lockOpenMeetingOfWhisky(ctx, tx, id)
		if err != nil {
			return err
		}

		query := `
			DELETE FROM whiskies
			WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM votes WHERE whisky_id = $1)`

		tag, err := tx.Exec(ctx, query, id)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.Conflict("whisky has votes and cannot be removed")
			}
			return fmt.Errorf("delete whisky: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict("whisky has votes and cannot be removed")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return meetingID, nil
}

// listWhiskies is shared by the repository and results snapshots.
func listWhiskies(ctx context.Context, q querier, meetingID string) ([]domain.Whisky, error) {
	query := `
		SELECT ` + whiskyColumns + `
		FROM whiskies
		WHERE meeting_id = $1
		ORDER BY display_order ASC`

	rows, err := q.Query(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list whiskies: %w", err)
	}
	defer rows.Close()

	whiskies := []domain.Whisky{}
	for rows.Next() {
		w, err := scanWhisky(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whisky row: %w", err)
		}
		whiskies = append(whiskies, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whisky rows: %w", err)
	}
	return whiskies, nil
}
