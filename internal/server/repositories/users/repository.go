// Package users declares the persistence contract of the user directory.
package users

import (
	"context"

	"github.com/dmitrijs2005/corund/internal/server/models"
)

// Repository reads and mutates appuser rows. Every lookup except
// FindBySelector's archived check ignores archived users.
type Repository interface {
	// Create inserts the user and fills ID and CreatedAt. A taken username,
	// archived or not, yields common.ErrUsernameTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)

	// FindBySelector locks and returns every active user matching either
	// part of the selector.
	FindBySelector(ctx context.Context, sel models.Selector) ([]*models.User, error)

	// Archive moves the user into the archived namespace under the given
	// username and drops its session.
	Archive(ctx context.Context, id int64, archivedUsername string) error

	SetRefreshToken(ctx context.Context, id int64, token string) error
	// ClearRefreshToken is a no-op when no user holds token.
	ClearRefreshToken(ctx context.Context, token string) error

	List(ctx context.Context, q models.UserQuery) ([]*models.User, error)
}
