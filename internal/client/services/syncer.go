// Package services contains the tenant mirror's sync logic.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/corund/internal/client/models"
	"github.com/dmitrijs2005/corund/internal/client/repositories/mirror"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/logging"
)

// ChangeSource is the identity service as seen by a tenant.
type ChangeSource interface {
	FetchChanges(ctx context.Context, ack bool) ([]*models.Change, error)
	GetUsers(ctx context.Context, ids []int64) ([]*models.User, error)
}

// SyncResult counts what a single SyncOnce did.
type SyncResult struct {
	Fetched  int
	Applied  int
	Skipped  int
	Upserted int
	Deleted  int
}

func (r *SyncResult) add(o *SyncResult) {
	r.Fetched += o.Fetched
	r.Applied += o.Applied
	r.Skipped += o.Skipped
	r.Upserted += o.Upserted
	r.Deleted += o.Deleted
}

// Syncer keeps the local mirror in step with the domain's change feed.
//
// Changes are first peeked without acknowledgement, applied locally and only
// then acknowledged, so a crash between the two steps replays them. Applied
// change ids are recorded in the same transaction as their effect, which
// makes the replay a no-op.
type Syncer struct {
	db     *sql.DB
	repo   func(db dbx.DBTX) mirror.Repository
	source ChangeSource
	logger logging.Logger
	now    func() time.Time
}

func NewSyncer(db *sql.DB, source ChangeSource, l logging.Logger) *Syncer {
	return &Syncer{
		db:     db,
		repo:   func(db dbx.DBTX) mirror.Repository { return mirror.NewSQLiteRepository(db) },
		source: source,
		logger: l.With("module", "syncer"),
		now:    time.Now,
	}
}

// SyncOnce runs one peek, apply, acknowledge round.
func (s *Syncer) SyncOnce(ctx context.Context) (*SyncResult, error) {
	peeked, err := s.source.FetchChanges(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("fetch changes: %w", err)
	}

	result, err := s.apply(ctx, peeked)
	if err != nil {
		return nil, err
	}
	if len(peeked) == 0 {
		return result, nil
	}

	acked, err := s.source.FetchChanges(ctx, true)
	if err != nil {
		return result, fmt.Errorf("ack changes: %w", err)
	}

	// Changes that arrived between the two calls are only seen here.
	late, err := s.apply(ctx, acked)
	if err != nil {
		return result, err
	}
	late.Fetched, late.Skipped = 0, 0
	result.add(late)

	s.logger.Info(ctx, "sync finished",
		"fetched", result.Fetched, "applied", result.Applied, "skipped", result.Skipped,
		"upserted", result.Upserted, "deleted", result.Deleted)
	return result, nil
}

func (s *Syncer) apply(ctx context.Context, changes []*models.Change) (*SyncResult, error) {
	result := &SyncResult{Fetched: len(changes)}
	if len(changes) == 0 {
		return result, nil
	}

	repo := s.repo(s.db)
	pending := make([]*models.Change, 0, len(changes))
	for _, c := range changes {
		applied, err := repo.IsApplied(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if applied {
			result.Skipped++
			continue
		}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return result, nil
	}

	users, err := s.fetchUsers(ctx, pending)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, c := range pending {
			switch c.Action {
			case models.ChangeActionNew:
				// Missing users were removed before we caught up; the del
				// change that follows takes care of them.
				if u, ok := users[c.UserID]; ok {
					u.SyncedAt = now
					if err := repo.Upsert(ctx, u); err != nil {
						return err
					}
					result.Upserted++
				}
			case models.ChangeActionDel:
				deleted, err := repo.Delete(ctx, c.UserID)
				if err != nil {
					return err
				}
				if deleted {
					result.Deleted++
				}
			default:
				s.logger.Warn(ctx, "unknown change action", "id", c.ID, "action", string(c.Action))
			}
			if err := repo.MarkApplied(ctx, c, now); err != nil {
				return err
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply changes: %w", err)
	}
	return result, nil
}

func (s *Syncer) fetchUsers(ctx context.Context, changes []*models.Change) (map[int64]*models.User, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, c := range changes {
		if c.Action != models.ChangeActionNew {
			continue
		}
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	list, err := s.source.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	users := make(map[int64]*models.User, len(list))
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}

// Run syncs immediately and then every interval until ctx is cancelled.
// Failed rounds are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error(ctx, "sync failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
