// Package httpapi exposes the identity service over HTTP: POST routes with
// JSON bodies under /rpc, tenant routes under /rpc/server guarded by the
// domain_key and domain_secret headers, plus /healthz and /metrics.
package httpapi

import (
	"context"

	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/metrics"
	"github.com/dmitrijs2005/corund/internal/server/models"
)

type UserService interface {
	Create(ctx context.Context, reg models.Registration) (*models.User, error)
	Remove(ctx context.Context, sel models.Selector) error
	List(ctx context.Context, q models.UserQuery) ([]*models.User, error)
}

type SessionService interface {
	Login(ctx context.Context, username, password string) (string, error)
	EndSession(ctx context.Context, refreshToken string) error
	Current(ctx context.Context, refreshToken string) (*models.User, error)
	IssueAccessToken(ctx context.Context, refreshToken string) (string, error)
}

type ChangeFeed interface {
	FetchPending(ctx context.Context, domainKey string, ack bool) ([]*models.Change, error)
}

type DomainAuthenticator interface {
	Authenticate(ctx context.Context, key, secret string) (*models.Domain, error)
}

// Handler serves the RPC routes.
type Handler struct {
	users    UserService
	sessions SessionService
	changes  ChangeFeed
	domains  DomainAuthenticator
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewHandler(us UserService, ss SessionService, cf ChangeFeed, da DomainAuthenticator,
	l logging.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		users:    us,
		sessions: ss,
		changes:  cf,
		domains:  da,
		logger:   l.With("module", "http"),
		metrics:  m,
	}
}
