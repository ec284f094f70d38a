package changes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx). Fan-out and ack are only atomic with the surrounding
// work when the repository is bound to a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func dbError(err error) error {
	return common.Storage(fmt.Errorf("db error: %w", err))
}

func (r *PostgresRepository) Create(ctx context.Context, action models.ChangeAction, userID int64) (*models.Change, error) {
	query :=
		`INSERT INTO user_change (action, user_detached_id)
		 VALUES ($1, $2)
		 RETURNING id, created, action, user_detached_id`

	c, err := scanChange(r.db.QueryRowContext(ctx, query, string(action), userID))
	if err != nil {
		return nil, dbError(err)
	}
	return c, nil
}

func (r *PostgresRepository) LinkToAllDomains(ctx context.Context, changeID int64) (int64, error) {
	query :=
		`INSERT INTO domain_to_user_change (domain_id, user_change_id)
		 SELECT id, $1 FROM domain`

	res, err := r.db.ExecContext(ctx, query, changeID)
	if err != nil {
		return 0, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, domainKey string) ([]*models.Change, error) {
	query :=
		`SELECT c.id, c.created, c.action, c.user_detached_id
		 FROM domain_to_user_change l
		 JOIN user_change c ON c.id = l.user_change_id
		 JOIN domain d ON d.id = l.domain_id
		 WHERE d.key = $1
		 ORDER BY c.created, c.id`

	rows, err := r.db.QueryContext(ctx, query, domainKey)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	return collect(rows)
}

// AckPending relies on DELETE ... RETURNING: concurrent callers for the same
// domain block on the link rows, and the loser sees them already gone.
func (r *PostgresRepository) AckPending(ctx context.Context, domainKey string) ([]*models.Change, error) {
	query :=
		`WITH acked AS (
		     DELETE FROM domain_to_user_change l
		     USING domain d
		     WHERE d.id = l.domain_id AND d.key = $1
		     RETURNING l.user_change_id
		 )
		 SELECT c.id, c.created, c.action, c.user_detached_id
		 FROM user_change c
		 JOIN acked a ON a.user_change_id = c.id
		 ORDER BY c.created, c.id`

	rows, err := r.db.QueryContext(ctx, query, domainKey)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChange(row scanner) (*models.Change, error) {
	c := &models.Change{}
	var action string
	if err := row.Scan(&c.ID, &c.CreatedAt, &action, &c.UserID); err != nil {
		return nil, err
	}
	a, err := models.ParseChangeAction(action)
	if err != nil {
		return nil, err
	}
	c.Action = a
	return c, nil
}

func collect(rows *sql.Rows) ([]*models.Change, error) {
	result := make([]*models.Change, 0)
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, dbError(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}
