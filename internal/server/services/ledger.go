// Package services contains the server-side business logic: the change
// ledger, the user directory, session management and the domain registry.
// Services bind repositories either to the pool or to a transaction obtained
// from dbx.WithTx; every multi-statement mutation runs in one transaction.
package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/metrics"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/dmitrijs2005/corund/internal/server/repositories/repomanager"
)

// ChangeLedger is the append-only log of user lifecycle changes together
// with the per-domain delivery links.
//
// A (domain, change) pair is pending while its link exists and acknowledged
// once the link is deleted. Links are only created at append time, for the
// domains registered at that moment.
type ChangeLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewChangeLedger(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger, m *metrics.Metrics) *ChangeLedger {
	return &ChangeLedger{
		db:          db,
		repomanager: rm,
		log:         log.With("module", "ledger"),
		metrics:     m,
	}
}

// Append writes a change record and links it to every registered domain
// using the caller's transaction, so the record commits or rolls back with
// the mutation it describes. It returns the record and the number of links.
// With no domains registered the record is still written.
func (l *ChangeLedger) Append(ctx context.Context, tx dbx.DBTX, action models.ChangeAction, userID int64) (*models.Change, int64, error) {
	repo := l.repomanager.Changes(tx)

	change, err := repo.Create(ctx, action, userID)
	if err != nil {
		return nil, 0, err
	}

	links, err := repo.LinkToAllDomains(ctx, change.ID)
	if err != nil {
		return nil, 0, err
	}

	l.log.Debug(ctx, "change appended", "change_id", change.ID, "action", action, "user_id", userID, "links", links)
	return change, links, nil
}

// FetchPending returns the domain's unacknowledged changes ordered by
// creation time, then id. With ack the returned links are deleted by the
// same statement that reads them, so concurrent fetches for one domain never
// both receive a change.
func (l *ChangeLedger) FetchPending(ctx context.Context, domainKey string, ack bool) ([]*models.Change, error) {
	var result []*models.Change

	err := dbx.WithTx(ctx, l.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := l.repomanager.Domains(tx).GetByKey(ctx, domainKey); err != nil {
			return err
		}

		repo := l.repomanager.Changes(tx)
		var err error
		if ack {
			result, err = repo.AckPending(ctx, domainKey)
		} else {
			result, err = repo.ListPending(ctx, domainKey)
		}
		return err
	})
	if err != nil {
		return nil, common.Storage(err)
	}

	l.metrics.ChangesDelivered(domainKey, ack, len(result))
	l.log.Info(ctx, "pending changes fetched", "domain", domainKey, "ack", ack, "count", len(result))
	return result, nil
}
