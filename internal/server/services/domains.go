package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/config"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/dmitrijs2005/corund/internal/server/repositories/repomanager"
)

// DomainRegistry holds the tenants and their shared secrets.
type DomainRegistry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewDomainRegistry(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *DomainRegistry {
	return &DomainRegistry{db: db, repomanager: rm, log: log.With("module", "domains")}
}

// Bootstrap registers the configured domains in one transaction. Keys that
// are already registered keep their stored secret. It returns the number of
// newly registered domains.
func (r *DomainRegistry) Bootstrap(ctx context.Context, domains []config.Domain) (int, error) {
	for i, d := range domains {
		if d.Key == "" || d.Secret == "" {
			return 0, common.Validation(fmt.Errorf("domain #%d: key and secret are required", i))
		}
	}

	inserted := 0
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Domains(tx)
		for _, d := range domains {
			ok, err := repo.Upsert(ctx, d.Key, d.Secret)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			} else {
				r.log.Debug(ctx, "domain already registered", "domain", d.Key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, common.Storage(err)
	}

	r.log.Info(ctx, "domains bootstrapped", "configured", len(domains), "registered", inserted)
	return inserted, nil
}

// Authenticate returns the domain whose key and secret match. Unknown keys
// and wrong secrets are both reported as common.ErrInvalidDomainSecret.
func (r *DomainRegistry) Authenticate(ctx context.Context, key, secret string) (*models.Domain, error) {
	if key == "" || secret == "" {
		return nil, common.ErrMissingDomainSecret
	}

	d, err := r.repomanager.Domains(r.db).GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrDomainNotFound) {
			return nil, common.ErrInvalidDomainSecret
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(d.Secret), []byte(secret)) != 1 {
		r.log.Warn(ctx, "domain secret mismatch", "domain", key)
		return nil, common.ErrInvalidDomainSecret
	}
	return d, nil
}
