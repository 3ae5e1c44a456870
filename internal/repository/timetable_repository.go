package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clc-lbu/timetable-api/internal/models"
)

// TimetableRepository persists timetable versions in the timetable_store table.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository around an injected handle.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a new immutable version row. The store assigns the id;
// uploaded_at must already be set (UTC, server side) by the caller.
func (r *TimetableRepository) Create(ctx context.Context, record *models.TimetableRecord) error {
	const query = `INSERT INTO timetable_store
	(program, filename, file_data, label, uploaded_by, uploaded_at)
	VALUES (:program, :filename, :file_data, :label, :uploaded_by, :uploaded_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("create timetable record: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&record.ID); err != nil {
			return fmt.Errorf("scan timetable id: %w", err)
		}
	}
	return rows.Err()
}

// FindCurrent returns the newest record for a program, uploaded_at descending
// with id as the deterministic tiebreak. sql.ErrNoRows when the program has
// no versions.
func (r *TimetableRepository) FindCurrent(ctx context.Context, program models.Program) (*models.TimetableRecord, error) {
	const query = `SELECT id, program, filename, file_data, label, uploaded_by, uploaded_at
	FROM timetable_store WHERE program = $1
	ORDER BY uploaded_at DESC, id DESC LIMIT 1`
	var record models.TimetableRecord
	if err := r.db.GetContext(ctx, &record, query, program); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID loads one full record including the payload.
func (r *TimetableRepository) FindByID(ctx context.Context, id int64) (*models.TimetableRecord, error) {
	const query = `SELECT id, program, filename, file_data, label, uploaded_by, uploaded_at
	FROM timetable_store WHERE id = $1`
	var record models.TimetableRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByProgram returns every version's metadata, newest first. The payload
// column is deliberately excluded; the first element is the current version.
func (r *TimetableRepository) ListByProgram(ctx context.Context, program models.Program) ([]models.TimetableSummary, error) {
	const query = `SELECT id, program, filename, label, uploaded_by, uploaded_at
	FROM timetable_store WHERE program = $1
	ORDER BY uploaded_at DESC, id DESC`
	var summaries []models.TimetableSummary
	if err := r.db.SelectContext(ctx, &summaries, query, program); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return summaries, nil
}

// Delete removes exactly one row by id. Zero affected rows map to
// sql.ErrNoRows so callers can report the miss consistently.
func (r *TimetableRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM timetable_store WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timetable delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PruneProgram deletes all but the newest keep rows for a program and returns
// how many were removed. keep is clamped to at least 1 so the current version
// always survives.
func (r *TimetableRepository) PruneProgram(ctx context.Context, program models.Program, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	const query = `DELETE FROM timetable_store WHERE id IN (
		SELECT id FROM timetable_store WHERE program = $1
		ORDER BY uploaded_at DESC, id DESC OFFSET $2
	)`
	res, err := r.db.ExecContext(ctx, query, program, keep)
	if err != nil {
		return 0, fmt.Errorf("prune timetable versions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check timetable prune rows: %w", err)
	}
	return int(affected), nil
}
