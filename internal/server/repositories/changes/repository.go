// Package changes persists the user change log and its per-domain delivery
// links.
package changes

import (
	"context"

	"github.com/dmitrijs2005/corund/internal/server/models"
)

// Repository is the storage side of the change ledger. Change rows are only
// ever inserted; delivery links are inserted on fan-out and deleted on ack.
type Repository interface {
	// Create appends a change record and returns it as stored.
	Create(ctx context.Context, action models.ChangeAction, userID int64) (*models.Change, error)

	// LinkToAllDomains creates one delivery link per currently registered
	// domain and reports how many were created.
	LinkToAllDomains(ctx context.Context, changeID int64) (int64, error)

	// ListPending returns the changes linked to the domain, oldest first.
	ListPending(ctx context.Context, domainKey string) ([]*models.Change, error)

	// AckPending deletes the domain's delivery links and returns the changes
	// they pointed to, oldest first, in a single statement.
	AckPending(ctx context.Context, domainKey string) ([]*models.Change, error)
}
