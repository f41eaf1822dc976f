package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crashgate/internal/models"

	"github.com/google/uuid"
)

// timeLayout is how timestamps are stored in TEXT columns.
const timeLayout = time.RFC3339Nano

const (
	insertExclusionSQL = `INSERT INTO exclusions (id, kind, pattern, comment, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	selectExclusionSQL = `SELECT id, kind, pattern, comment, created_at, updated_at FROM exclusions WHERE id = ?`
	listExclusionsSQL  = `SELECT id, kind, pattern, comment, created_at, updated_at FROM exclusions ORDER BY created_at ASC, id ASC`
	updateExclusionSQL = `UPDATE exclusions SET kind = ?, pattern = ?, comment = ?, updated_at = ? WHERE id = ?`
	deleteExclusionSQL = `DELETE FROM exclusions WHERE id = ?`
)

type ExclusionSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewExclusionSQLite(db *sql.DB) *ExclusionSQLite {
	return &ExclusionSQLite{db: db, now: time.Now}
}

var _ Exclusions = (*ExclusionSQLite)(nil)

// Create stores e with a fresh id and timestamps and returns the stored row.
func (r *ExclusionSQLite) Create(ctx context.Context, e models.Exclusion) (models.Exclusion, error) {
	now := r.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, insertExclusionSQL,
		e.ID, e.Kind, e.Pattern, e.Comment, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return models.Exclusion{}, fmt.Errorf("insert exclusion %s/%q: %w", e.Kind, e.Pattern, err)
	}
	return e, nil
}

// Get returns the exclusion with id, or (nil, nil) if there is none.
func (r *ExclusionSQLite) Get(ctx context.Context, id string) (*models.Exclusion, error) {
	e, err := scanExclusion(r.db.QueryRowContext(ctx, selectExclusionSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select exclusion %s: %w", id, err)
	}
	return &e, nil
}

// List returns every exclusion, oldest first.
func (r *ExclusionSQLite) List(ctx context.Context) ([]models.Exclusion, error) {
	rows, err := r.db.QueryContext(ctx, listExclusionsSQL)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.Exclusion, 0)
	for rows.Next() {
		e, err := scanExclusion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return out, nil
}

// Update rewrites kind, pattern and comment. It reports false when id does not exist.
func (r *ExclusionSQLite) Update(ctx context.Context, e models.Exclusion) (bool, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, updateExclusionSQL, e.Kind, e.Pattern, e.Comment, now.Format(timeLayout), e.ID)
	if err != nil {
		return false, fmt.Errorf("update exclusion %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for exclusion %s: %w", e.ID, err)
	}
	return n > 0, nil
}

// Delete removes id. It reports false when id does not exist.
func (r *ExclusionSQLite) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteExclusionSQL, id)
	if err != nil {
		return false, fmt.Errorf("delete exclusion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for exclusion %s: %w", id, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExclusion(s rowScanner) (models.Exclusion, error) {
	var (
		e                models.Exclusion
		comment          sql.NullString
		created, updated string
	)
	if err := s.Scan(&e.ID, &e.Kind, &e.Pattern, &comment, &created, &updated); err != nil {
		return models.Exclusion{}, err
	}
	e.Comment = comment.String

	var err error
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return models.Exclusion{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return models.Exclusion{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	return e, nil
}
