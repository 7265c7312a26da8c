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

const memberColumns = `id, name, last_name, email, image_url, role, created_at, updated_at`

// MemberRepository implements repository.MemberRepository using PostgreSQL.
type MemberRepository struct {
	pool database.DBTX
}

// NewMemberRepository creates a new PostgreSQL-backed member repository.
func NewMemberRepository(pool database.DBTX) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.LastName,
		&m.Email,
		&m.ImageURL,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a member. Email addresses are unique.
func (r *MemberRepository) Create(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (id, name, last_name, email, image_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Name,
		m.LastName,
		m.Email,
		m.ImageURL,
		m.Role,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("member", "email", m.Email)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID retrieves a member by ID.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("member", id)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// List returns all members ordered by name.
func (r *MemberRepository) List(ctx context.Context) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY last_name, name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

// Update writes the editable member fields.
func (r *MemberRepository) Update(ctx context.Context, m *domain.Member) error {
	query := `
		UPDATE members
		SET name = $2, last_name = $3, email = $4, image_url = $5, role = $6, updated_at = $7
		WHERE id = $1
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		m.ID,
		m.Name,
		m.LastName,
		m.Email,
		m.ImageURL,
		m.Role,
		m.UpdatedAt,
	).Scan(&m.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NotFound("member", m.ID)
		case database.IsUniqueViolation(err):
			return apperrors.AlreadyExists("member", "email", m.Email)
		default:
			return fmt.Errorf("update member: %w", err)
		}
	}
	return nil
}

// Delete removes a member. Members who voted are kept so results stay intact.
func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Conflict("member has votes and cannot be removed")
		}
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("member", id)
	}
	return nil
}
