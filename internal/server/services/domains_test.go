package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/corund/internal/common"
	"github.com/dmitrijs2005/corund/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_Idempotent(t *testing.T) {
	db, mock := newSQLMockDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	expectTxs(mock, 2)

	n, err := f.domains.Bootstrap(ctx, []config.Domain{{Key: "a", Secret: "1"}, {Key: "b", Secret: "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.domains.Bootstrap(ctx, []config.Domain{{Key: "a", Secret: "changed"}, {Key: "c", Secret: "3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := f.domains.Authenticate(ctx, "a", "1")
	require.NoError(t, err)
	assert.Equal(t, "a", d.Key)

	_, err = f.domains.Authenticate(ctx, "a", "changed")
	assert.ErrorIs(t, err, common.ErrInvalidDomainSecret)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrap_RejectsIncompleteEntries(t *testing.T) {
	db, mock := newSQLMockDB(t)
	f := newFixture(t, db)

	_, err := f.domains.Bootstrap(context.Background(), []config.Domain{{Key: "a"}})
	assert.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	f.store.addDomain("tenantA", "secretA")

	_, err := f.domains.Authenticate(ctx, "tenantA", "secretA")
	require.NoError(t, err)

	_, err = f.domains.Authenticate(ctx, "tenantA", "secretB")
	assert.ErrorIs(t, err, common.ErrInvalidDomainSecret)

	_, err = f.domains.Authenticate(ctx, "tenantZ", "secretA")
	assert.ErrorIs(t, err, common.ErrInvalidDomainSecret)

	_, err = f.domains.Authenticate(ctx, "tenantA", "")
	assert.ErrorIs(t, err, common.ErrMissingDomainSecret)
	assert.Equal(t, common.CodeAuth, common.Code(err))
}
