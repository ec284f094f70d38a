package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/server/models"
)

const userColumns = `id, username, firstname, patronym, surname, hpassword, rt, created_at, archived_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var (
		firstname, patronym, surname, rt sql.NullString
		archivedAt                       sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &firstname, &patronym, &surname, &u.HPassword, &rt, &u.CreatedAt, &archivedAt); err != nil {
		return nil, err
	}
	u.Firstname = nullString(firstname)
	u.Patronym = nullString(patronym)
	u.Surname = nullString(surname)
	u.RefreshToken = nullString(rt)
	if archivedAt.Valid {
		u.ArchivedAt = &archivedAt.Time
	}
	return u, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func dbError(err error) error {
	return common.Storage(fmt.Errorf("db error: %w", err))
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO appuser (username, origin_username, hpassword, firstname, patronym, surname)
		 VALUES ($1, $1, $2, $3, $4, $5)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.HPassword, user.Firstname, user.Patronym, user.Surname).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrUsernameTaken
		}
		return nil, dbError(err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM appuser
		 WHERE ` + where + ` AND archived_at IS NULL`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, dbError(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `username = $1`, username)
}

func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `rt = $1`, token)
}

func (r *PostgresRepository) FindBySelector(ctx context.Context, sel models.Selector) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM appuser
		 WHERE archived_at IS NULL
		   AND ((id = $1) OR (username = $2))
		 ORDER BY id
		 FOR UPDATE`

	var id sql.NullInt64
	if sel.ID != nil {
		id = sql.NullInt64{Int64: *sel.ID, Valid: true}
	}
	var username sql.NullString
	if sel.Username != nil {
		username = sql.NullString{String: *sel.Username, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, id, username)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	return collect(rows)
}

func (r *PostgresRepository) Archive(ctx context.Context, id int64, archivedUsername string) error {
	query :=
		`UPDATE appuser SET username = $2, rt = NULL, archived_at = now()
		 WHERE id = $1 AND archived_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, archivedUsername)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id int64, token string) error {
	query :=
		`UPDATE appuser SET rt = $2
		 WHERE id = $1 AND archived_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, token string) error {
	query := `UPDATE appuser SET rt = NULL WHERE rt = $1`

	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, q models.UserQuery) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM appuser
		 WHERE archived_at IS NULL
		   AND (cardinality($1::bigint[]) = 0 OR id = ANY($1))
		   AND (cardinality($2::text[]) = 0 OR username = ANY($2))
		 ORDER BY id`

	ids := q.IDs
	if ids == nil {
		ids = []int64{}
	}
	usernames := q.Usernames
	if usernames == nil {
		usernames = []string{}
	}

	rows, err := r.db.QueryContext(ctx, query, ids, usernames)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.User, error) {
	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbError(err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}
