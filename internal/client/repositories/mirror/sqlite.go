package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/corund/internal/client/models"
	"github.com/dmitrijs2005/corund/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mirror_user (id, username, firstname, patronym, surname, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username  = excluded.username,
			firstname = excluded.firstname,
			patronym  = excluded.patronym,
			surname   = excluded.surname,
			synced_at = excluded.synced_at
	`, u.ID, u.Username, optional(u.Firstname), optional(u.Patronym), optional(u.Surname), u.SyncedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mirror_user WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, firstname, patronym, surname, synced_at
		FROM mirror_user WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, firstname, patronym, surname, synced_at
		FROM mirror_user ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) IsApplied(ctx context.Context, changeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_change WHERE id = ?`, changeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check change %d: %w", changeID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkApplied(ctx context.Context, c *models.Change, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applied_change (id, action, user_id, applied_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, string(c.Action), c.UserID, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to mark change %d: %w", c.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u        models.User
		first    sql.NullString
		patronym sql.NullString
		surname  sql.NullString
		synced   int64
	)
	if err := s.Scan(&u.ID, &u.Username, &first, &patronym, &surname, &synced); err != nil {
		return nil, err
	}
	u.Firstname = nullable(first)
	u.Patronym = nullable(patronym)
	u.Surname = nullable(surname)
	u.SyncedAt = time.UnixMilli(synced).UTC()
	return &u, nil
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
