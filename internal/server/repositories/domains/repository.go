// Package domains persists the registry of tenants.
package domains

import (
	"context"

	"github.com/dmitrijs2005/corund/internal/server/models"
)

type Repository interface {
	// Upsert registers the domain unless its key is already present, in which
	// case the stored row is left untouched. It reports whether a row was
	// inserted.
	Upsert(ctx context.Context, key, secret string) (bool, error)

	GetByKey(ctx context.Context, key string) (*models.Domain, error)
}
