package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/cryptox"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/auth"
	"github.com/dmitrijs2005/corund/internal/server/config"
	"github.com/dmitrijs2005/corund/internal/server/metrics"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/dmitrijs2005/corund/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
)

// SessionStore keeps at most one live refresh token per user, stored on the
// user row. A new login overwrites it, which invalidates every access token
// request made with the previous one. Access tokens are never stored.
type SessionStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *UserDirectory
	hasher      cryptox.Hasher
	codec       *auth.TokenCodec
	refreshTTL  time.Duration
	accessTTL   time.Duration
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewSessionStore(db *sql.DB, rm repomanager.RepositoryManager, users *UserDirectory, hasher cryptox.Hasher,
	codec *auth.TokenCodec, cfg *config.Config, log logging.Logger, m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		db:          db,
		repomanager: rm,
		users:       users,
		hasher:      hasher,
		codec:       codec,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
		accessTTL:   cfg.AccessTokenValidityDuration,
		log:         log.With("module", "sessions"),
		metrics:     m,
	}
}

// Login checks the credentials and starts a new session, ending any other
// session of the same user.
func (s *SessionStore) Login(ctx context.Context, username, password string) (string, error) {
	err := validation.Validate(username, validation.Required, validation.Length(1, 256))
	if err != nil {
		return "", common.Validation(fmt.Errorf("username: %w", err))
	}
	if err := validation.Validate(password, validation.Required, validation.Length(1, 1024)); err != nil {
		return "", common.Validation(fmt.Errorf("password: %w", err))
	}

	user, err := s.users.ResolveCredentials(ctx, username)
	if err != nil {
		return "", err
	}

	ok, err := s.hasher.Verify(password, user.HPassword)
	if err != nil {
		return "", fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		s.log.Warn(ctx, "login rejected", "user_id", user.ID)
		return "", common.ErrInvalidPassword
	}

	return s.StartSession(ctx, user.ID)
}

// StartSession mints a refresh token for the user and stores it in place of
// the previous one.
func (s *SessionStore) StartSession(ctx context.Context, userID int64) (string, error) {
	rt, err := s.codec.Issue(userID, auth.KeyRefresh)
	if err != nil {
		return "", fmt.Errorf("error issuing refresh token: %w", err)
	}

	if err := s.repomanager.Users(s.db).SetRefreshToken(ctx, userID, rt); err != nil {
		return "", err
	}

	s.metrics.SessionStarted()
	s.log.Info(ctx, "session started", "user_id", userID)
	return rt, nil
}

// EndSession forgets the refresh token. Unknown or already ended sessions
// are not an error.
func (s *SessionStore) EndSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.Users(s.db).ClearRefreshToken(ctx, refreshToken)
}

// ResolveSession verifies the refresh token and checks it is still the one
// stored for its user. A superseded token, or one whose user was removed,
// yields common.ErrSessionNotFound.
func (s *SessionStore) ResolveSession(ctx context.Context, refreshToken string) (int64, error) {
	p, err := s.codec.Verify(refreshToken, auth.KeyRefresh, s.refreshTTL)
	if err != nil {
		return 0, err
	}

	user, err := s.users.ResolveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return 0, common.ErrSessionNotFound
		}
		return 0, err
	}
	if user.ID != p.UserID {
		return 0, common.ErrSessionNotFound
	}
	return user.ID, nil
}

// IssueAccessToken mints an access token for the holder of a live refresh
// token.
func (s *SessionStore) IssueAccessToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.ResolveSession(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	at, err := s.codec.Issue(userID, auth.KeyAccess)
	if err != nil {
		return "", fmt.Errorf("error issuing access token: %w", err)
	}
	return at, nil
}

// Current returns the user owning a live refresh token.
func (s *SessionStore) Current(ctx context.Context, refreshToken string) (*models.User, error) {
	userID, err := s.ResolveSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.users.ResolveByID(ctx, userID)
}

// VerifyAccessToken checks an access token and returns its subject. It does
// not consult storage: access tokens stay valid until their TTL runs out.
func (s *SessionStore) VerifyAccessToken(accessToken string) (int64, error) {
	p, err := s.codec.Verify(accessToken, auth.KeyAccess, s.accessTTL)
	if err != nil {
		return 0, err
	}
	return p.UserID, nil
}
