// Package mirror persists the tenant's copy of identity service users and
// the ids of the changes already applied to it.
package mirror

import (
	"context"
	"time"

	"github.com/dmitrijs2005/corund/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, u *models.User) error
	// Delete removes the user and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
	// Get returns (nil, nil) when the user is not mirrored.
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	IsApplied(ctx context.Context, changeID int64) (bool, error)
	MarkApplied(ctx context.Context, c *models.Change, at time.Time) error
}
