package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/corund/internal/client/config"
	"github.com/dmitrijs2005/corund/internal/client/repositories/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_RequiresDomainCredentials(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = filepath.Join(t.TempDir(), "mirror.db")

	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestRun_Once(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("domain_secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "auth_err", "message": "invalid domain secret"})
			return
		}
		switch r.URL.Path {
		case "/rpc/server/get_user_changes":
			_, _ = w.Write([]byte(`[{"id":1,"created":"2024-01-01T00:00:00Z","action":"new","user_id":4}]`))
		case "/rpc/server/get_users":
			_, _ = w.Write([]byte(`[{"id":4,"username":"dora","firstname":null,"patronym":null,"surname":null}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := &config.Config{}
	c.LoadDefaults()
	c.ServerURL = ts.URL
	c.DomainKey = "shop"
	c.DomainSecret = "s3cret"
	c.DatabaseDSN = filepath.Join(t.TempDir(), "data", "mirror.db")
	c.Once = true

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background()))

	// Run closes the database; reopen to inspect it.
	app2, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	defer app2.db.Close()

	u, err := mirror.NewSQLiteRepository(app2.db).Get(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "dora", u.Username)
}

func TestRun_OnceReportsAuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "auth_err", "message": "invalid domain secret"})
	}))
	defer ts.Close()

	c := &config.Config{}
	c.LoadDefaults()
	c.ServerURL = ts.URL
	c.DomainKey = "shop"
	c.DomainSecret = "wrong"
	c.DatabaseDSN = filepath.Join(t.TempDir(), "mirror.db")
	c.Once = true

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	err = app.Run(context.Background())
	assert.ErrorContains(t, err, "auth_err")
}
