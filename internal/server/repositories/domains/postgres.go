package domains

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, key, secret string) (bool, error) {
	query :=
		`INSERT INTO domain (key, secret)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, key, secret)
	if err != nil {
		return false, common.Storage(fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.Storage(fmt.Errorf("db error: %w", err))
	}
	return n > 0, nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.Domain, error) {
	query := `SELECT id, key, secret FROM domain WHERE key = $1`

	d := &models.Domain{}
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&d.ID, &d.Key, &d.Secret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrDomainNotFound
		}
		return nil, common.Storage(fmt.Errorf("db error: %w", err))
	}
	return d, nil
}
