package changes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

var changeCols = []string{"id", "created", "action", "user_detached_id"}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+user_change\s*\(action,\s*user_detached_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created,\s*action,\s*user_detached_id$`).
		WithArgs("new", int64(42)).
		WillReturnRows(sqlmock.NewRows(changeCols).AddRow(int64(1), ts, "new", int64(42)))

	c, err := repo.Create(context.Background(), models.ChangeActionNew, 42)
	require.NoError(t, err)
	assert.Equal(t, &models.Change{ID: 1, CreatedAt: ts, Action: models.ChangeActionNew, UserID: 42}, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+user_change`).WillReturnError(errors.New("boom"))

	_, err := repo.Create(context.Background(), models.ChangeActionDel, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Contains(t, err.Error(), "db error: boom")
}

func TestCreate_UnknownActionFromStore(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+user_change`).
		WillReturnRows(sqlmock.NewRows(changeCols).AddRow(int64(1), time.Now(), "upd", int64(1)))

	_, err := repo.Create(context.Background(), models.ChangeActionNew, 1)
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestLinkToAllDomains(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+domain_to_user_change\s*\(domain_id,\s*user_change_id\)\s*SELECT\s+id,\s*\$1\s+FROM\s+domain$`

	mock.ExpectExec(q).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := repo.LinkToAllDomains(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// no domains registered: the record stays, nothing is linked
	mock.ExpectExec(q).WithArgs(int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))
	n, err = repo.LinkToAllDomains(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec(q).WithArgs(int64(11)).WillReturnError(errors.New("boom"))
	_, err = repo.LinkToAllDomains(context.Background(), 11)
	assert.ErrorIs(t, err, common.ErrStorage)

	mock.ExpectExec(q).WithArgs(int64(12)).WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))
	_, err = repo.LinkToAllDomains(context.Background(), 12)
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestListPending(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	ts := time.Now().UTC()
	mock.ExpectQuery(`(?s)^SELECT\s+c\.id,.*FROM\s+domain_to_user_change\s+l.*WHERE\s+d\.key\s*=\s*\$1\s+ORDER\s+BY\s+c\.created,\s*c\.id$`).
		WithArgs("tenantA").
		WillReturnRows(sqlmock.NewRows(changeCols).
			AddRow(int64(1), ts, "new", int64(5)).
			AddRow(int64(2), ts, "del", int64(5)))

	got, err := repo.ListPending(context.Background(), "tenantA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ChangeActionNew, got[0].Action)
	assert.Equal(t, models.ChangeActionDel, got[1].Action)
}

func TestListPending_Empty(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+domain_to_user_change`).
		WithArgs("tenantB").
		WillReturnRows(sqlmock.NewRows(changeCols))

	got, err := repo.ListPending(context.Background(), "tenantB")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAckPending(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	ts := time.Now().UTC()
	mock.ExpectQuery(`(?s)^WITH\s+acked\s+AS\s*\(\s*DELETE\s+FROM\s+domain_to_user_change\s+l\s+USING\s+domain\s+d\s+WHERE\s+d\.id\s*=\s*l\.domain_id\s+AND\s+d\.key\s*=\s*\$1\s+RETURNING\s+l\.user_change_id\s*\).*ORDER\s+BY\s+c\.created,\s*c\.id$`).
		WithArgs("tenantA").
		WillReturnRows(sqlmock.NewRows(changeCols).AddRow(int64(7), ts, "new", int64(3)))

	got, err := repo.AckPending(context.Background(), "tenantA")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, int64(3), got[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAckPending_Errors(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`WITH\s+acked`).WillReturnError(errors.New("deadlock"))
	_, err := repo.AckPending(context.Background(), "tenantA")
	assert.ErrorIs(t, err, common.ErrStorage)

	mock.ExpectQuery(`WITH\s+acked`).
		WillReturnRows(sqlmock.NewRows(changeCols).
			AddRow(int64(1), time.Now(), "new", int64(1)).
			RowError(0, errors.New("broken")))
	_, err = repo.AckPending(context.Background(), "tenantA")
	assert.ErrorIs(t, err, common.ErrStorage)
}
