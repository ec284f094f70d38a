package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/cryptox"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/metrics"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/dmitrijs2005/corund/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
)

// UserDirectory owns the user lifecycle. Creation and removal each append a
// change record in the same transaction as the user mutation.
//
// Removal archives: the row and its id stay, the username moves to
// prefix + id + "::" + username, and the session is dropped. Archived users
// are invisible to every read path.
type UserDirectory struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	ledger         *ChangeLedger
	hasher         cryptox.Hasher
	archivedPrefix string
	log            logging.Logger
	metrics        *metrics.Metrics
}

func NewUserDirectory(db *sql.DB, rm repomanager.RepositoryManager, ledger *ChangeLedger, hasher cryptox.Hasher,
	archivedPrefix string, log logging.Logger, m *metrics.Metrics) *UserDirectory {
	return &UserDirectory{
		db:             db,
		repomanager:    rm,
		ledger:         ledger,
		hasher:         hasher,
		archivedPrefix: archivedPrefix,
		log:            log.With("module", "users"),
		metrics:        m,
	}
}

func (d *UserDirectory) validateRegistration(r models.Registration) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(1, 256),
			validation.By(d.notArchivedName),
		),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 1024)),
		validation.Field(&r.Firstname, validation.Length(0, 256)),
		validation.Field(&r.Patronym, validation.Length(0, 256)),
		validation.Field(&r.Surname, validation.Length(0, 256)),
	)
	return common.Validation(err)
}

func (d *UserDirectory) notArchivedName(value interface{}) error {
	s, _ := value.(string)
	if d.archivedPrefix != "" && strings.HasPrefix(s, d.archivedPrefix) {
		return errors.New("must not start with the archived prefix")
	}
	return nil
}

// ArchivedUsername is the name a removed user is renamed to.
func (d *UserDirectory) ArchivedUsername(u *models.User) string {
	return fmt.Sprintf("%s%d::%s", d.archivedPrefix, u.ID, u.Username)
}

// Create registers a user. A username held by an active or archived user
// yields common.ErrUsernameTaken.
func (d *UserDirectory) Create(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := d.validateRegistration(reg); err != nil {
		return nil, err
	}

	digest, err := d.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:  reg.Username,
		HPassword: digest,
		Firstname: reg.Firstname,
		Patronym:  reg.Patronym,
		Surname:   reg.Surname,
	}

	var links int64
	err = dbx.WithTx(ctx, d.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := d.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		_, n, err := d.ledger.Append(ctx, tx, models.ChangeActionNew, user.ID)
		links = n
		return err
	})
	if err != nil {
		return nil, common.Storage(err)
	}

	d.metrics.UserCreated()
	d.metrics.ChangeAppended(string(models.ChangeActionNew), links)
	d.log.Info(ctx, "user created", "user_id", user.ID, "username", user.Username, "domains", links)
	return user, nil
}

func validateSelector(sel models.Selector) error {
	if sel.ID == nil && sel.Username == nil {
		return common.ErrEmptySelector
	}
	if sel.Username != nil && *sel.Username == "" {
		return common.Validation(errors.New("username: cannot be blank"))
	}
	return nil
}

// matchesSelector reports whether every part set in sel names u.
func matchesSelector(u *models.User, sel models.Selector) bool {
	if sel.ID != nil && *sel.ID != u.ID {
		return false
	}
	return sel.Username == nil || *sel.Username == u.Username
}

// Remove archives the single active user matched by sel. Every part set in
// sel must name that user, otherwise common.ErrUserNotFound is returned; a
// selector whose id and username point at two different users yields
// common.ErrAmbiguousSelector.
func (d *UserDirectory) Remove(ctx context.Context, sel models.Selector) error {
	if err := validateSelector(sel); err != nil {
		return err
	}

	var (
		removed *models.User
		links   int64
	)
	err := dbx.WithTx(ctx, d.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		repo := d.repomanager.Users(tx)

		found, err := repo.FindBySelector(ctx, sel)
		if err != nil {
			return err
		}
		switch {
		case len(found) > 1:
			return common.ErrAmbiguousSelector
		case len(found) == 0 || !matchesSelector(found[0], sel):
			return common.ErrUserNotFound
		}
		removed = found[0]

		if err := repo.Archive(ctx, removed.ID, d.ArchivedUsername(removed)); err != nil {
			return err
		}
		_, links, err = d.ledger.Append(ctx, tx, models.ChangeActionDel, removed.ID)
		return err
	})
	if err != nil {
		return common.Storage(err)
	}

	d.metrics.UserRemoved()
	d.metrics.ChangeAppended(string(models.ChangeActionDel), links)
	d.log.Info(ctx, "user removed", "user_id", removed.ID, "username", removed.Username, "domains", links)
	return nil
}

// ResolveCredentials returns the active user with the given username; the
// credential digest is in HPassword.
func (d *UserDirectory) ResolveCredentials(ctx context.Context, username string) (*models.User, error) {
	return d.repomanager.Users(d.db).GetByUsername(ctx, username)
}

func (d *UserDirectory) ResolveByID(ctx context.Context, id int64) (*models.User, error) {
	return d.repomanager.Users(d.db).GetByID(ctx, id)
}

// ResolveByRefreshToken returns the active user currently holding token.
func (d *UserDirectory) ResolveByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return d.repomanager.Users(d.db).GetByRefreshToken(ctx, token)
}

// List returns active users matching q, ordered by id.
func (d *UserDirectory) List(ctx context.Context, q models.UserQuery) ([]*models.User, error) {
	return d.repomanager.Users(d.db).List(ctx, q)
}
