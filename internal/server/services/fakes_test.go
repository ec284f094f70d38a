package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/cryptox"
	"github.com/dmitrijs2005/corund/internal/dbx"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/auth"
	"github.com/dmitrijs2005/corund/internal/server/config"
	"github.com/dmitrijs2005/corund/internal/server/models"
	changesrepo "github.com/dmitrijs2005/corund/internal/server/repositories/changes"
	domainsrepo "github.com/dmitrijs2005/corund/internal/server/repositories/domains"
	usersrepo "github.com/dmitrijs2005/corund/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the Postgres schema. It ignores the
// transaction handle and does not roll back; atomicity is asserted through
// sqlmock transaction expectations instead.
type memStore struct {
	mu sync.Mutex

	users   map[int64]*models.User
	origins map[string]bool
	nextUID int64

	changes []*models.Change
	nextCID int64
	clock   time.Time

	domains []*models.Domain
	links   map[int64]map[int64]bool

	failChangeCreate error
	failLink         error
	failArchive      error
	failFind         error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]*models.User{},
		origins: map[string]bool{},
		links:   map[int64]map[int64]bool{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addDomain(key, secret string) *models.Domain {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &models.Domain{ID: int64(len(s.domains) + 1), Key: key, Secret: secret}
	s.domains = append(s.domains, d)
	s.links[d.ID] = map[int64]bool{}
	return d
}

func (s *memStore) domainByKey(key string) *models.Domain {
	for _, d := range s.domains {
		if d.Key == key {
			return d
		}
	}
	return nil
}

func (s *memStore) linkCount(domainKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.domainByKey(domainKey)
	if d == nil {
		return 0
	}
	return len(s.links[d.ID])
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.origins[u.Username] {
		return nil, common.ErrUsernameTaken
	}
	for _, x := range r.s.users {
		if x.Username == u.Username {
			return nil, common.ErrUsernameTaken
		}
	}
	r.s.nextUID++
	u.ID = r.s.nextUID
	u.CreatedAt = time.Now()
	r.s.origins[u.Username] = true
	r.s.users[u.ID] = clone(u)
	return u, nil
}

func (r memUsers) find(pred func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ArchivedAt == nil && pred(u) {
			return clone(u), nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r memUsers) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token })
}

func (r memUsers) FindBySelector(ctx context.Context, sel models.Selector) ([]*models.User, error) {
	if r.s.failFind != nil {
		return nil, r.s.failFind
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.ArchivedAt != nil {
			continue
		}
		if (sel.ID != nil && *sel.ID == u.ID) || (sel.Username != nil && *sel.Username == u.Username) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) Archive(ctx context.Context, id int64, archivedUsername string) error {
	if r.s.failArchive != nil {
		return r.s.failArchive
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ArchivedAt != nil {
		return common.ErrUserNotFound
	}
	now := time.Now()
	u.Username = archivedUsername
	u.RefreshToken = nil
	u.ArchivedAt = &now
	return nil
}

func (r memUsers) SetRefreshToken(ctx context.Context, id int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ArchivedAt != nil {
		return common.ErrUserNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (r memUsers) ClearRefreshToken(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			u.RefreshToken = nil
		}
	}
	return nil
}

func (r memUsers) List(ctx context.Context, q models.UserQuery) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.ArchivedAt != nil {
			continue
		}
		if len(q.IDs) > 0 && !containsID(q.IDs, u.ID) {
			continue
		}
		if len(q.Usernames) > 0 && !containsName(q.Usernames, u.Username) {
			continue
		}
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsName(names []string, name string) bool {
	for _, x := range names {
		if x == name {
			return true
		}
	}
	return false
}

// --- changes ---

type memChanges struct{ s *memStore }

func (r memChanges) Create(ctx context.Context, action models.ChangeAction, userID int64) (*models.Change, error) {
	if r.s.failChangeCreate != nil {
		return nil, r.s.failChangeCreate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextCID++
	r.s.clock = r.s.clock.Add(time.Millisecond)
	c := &models.Change{ID: r.s.nextCID, CreatedAt: r.s.clock, Action: action, UserID: userID}
	r.s.changes = append(r.s.changes, c)
	cp := *c
	return &cp, nil
}

func (r memChanges) LinkToAllDomains(ctx context.Context, changeID int64) (int64, error) {
	if r.s.failLink != nil {
		return 0, r.s.failLink
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.domains {
		r.s.links[d.ID][changeID] = true
	}
	return int64(len(r.s.domains)), nil
}

func (r memChanges) pending(domainKey string, ack bool) ([]*models.Change, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := r.s.domainByKey(domainKey)
	out := make([]*models.Change, 0)
	if d == nil {
		return out, nil
	}
	for _, c := range r.s.changes {
		if r.s.links[d.ID][c.ID] {
			cp := *c
			out = append(out, &cp)
			if ack {
				delete(r.s.links[d.ID], c.ID)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memChanges) ListPending(ctx context.Context, domainKey string) ([]*models.Change, error) {
	return r.pending(domainKey, false)
}

func (r memChanges) AckPending(ctx context.Context, domainKey string) ([]*models.Change, error) {
	return r.pending(domainKey, true)
}

// --- domains ---

type memDomains struct{ s *memStore }

func (r memDomains) Upsert(ctx context.Context, key, secret string) (bool, error) {
	r.s.mu.Lock()
	exists := r.s.domainByKey(key) != nil
	r.s.mu.Unlock()
	if exists {
		return false, nil
	}
	r.s.addDomain(key, secret)
	return true, nil
}

func (r memDomains) GetByKey(ctx context.Context, key string) (*models.Domain, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := r.s.domainByKey(key)
	if d == nil {
		return nil, common.ErrDomainNotFound
	}
	cp := *d
	return &cp, nil
}

// --- manager ---

type memRepoManager struct{ s *memStore }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return memUsers{m.s} }
func (m *memRepoManager) Changes(dbx.DBTX) changesrepo.Repository      { return memChanges{m.s} }
func (m *memRepoManager) Domains(dbx.DBTX) domainsrepo.Repository      { return memDomains{m.s} }

// --- fixtures ---

// plainHasher keeps tests fast; argon2 is covered in cryptox.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error)    { return "plain$" + p, nil }
func (plainHasher) Verify(p, d string) (bool, error) { return d == "plain$"+p, nil }

var _ cryptox.Hasher = plainHasher{}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

type fixture struct {
	db       *sql.DB
	store    *memStore
	ledger   *ChangeLedger
	users    *UserDirectory
	sessions *SessionStore
	domains  *DomainRegistry
	clock    *testClock
	cfg      *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	store := newMemStore()
	rm := &memRepoManager{s: store}
	cfg := testConfig()
	log := logging.Discard()
	clk := &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := auth.NewTokenCodec([]byte(cfg.RefreshTokenSecret), []byte(cfg.AccessTokenSecret)).WithClock(clk.now)

	ledger := NewChangeLedger(db, rm, log, nil)
	users := NewUserDirectory(db, rm, ledger, plainHasher{}, cfg.ArchivedUsernamePrefix, log, nil)
	return &fixture{
		db:       db,
		store:    store,
		ledger:   ledger,
		users:    users,
		sessions: NewSessionStore(db, rm, users, plainHasher{}, codec, cfg, log, nil),
		domains:  NewDomainRegistry(db, rm, log),
		clock:    clk,
		cfg:      cfg,
	}
}

// expectTxs registers n transactions that commit.
func expectTxs(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func strp(s string) *string { return &s }
func int64p(i int64) *int64 { return &i }
