package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/corund/internal/client/models"
	"github.com/dmitrijs2005/corund/internal/netx"
)

const (
	headerDomainKey    = "domain_key"
	headerDomainSecret = "domain_secret"

	pathUserChanges = "/rpc/server/get_user_changes"
	pathGetUsers    = "/rpc/server/get_users"
)

type changesRequest struct {
	Unlink bool `json:"unlink"`
}

type usersRequest struct {
	IDs []int64 `json:"ids"`
}

// HTTPClient calls the tenant-only RPC endpoints of the identity service.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	header  http.Header
}

// NewHTTPClient returns a client for the service at baseURL. A nil hc gets a
// client with a 30 second timeout.
func NewHTTPClient(baseURL, domainKey, domainSecret string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	h := http.Header{}
	h.Set(headerDomainKey, domainKey)
	h.Set(headerDomainSecret, domainSecret)
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      hc,
		header:  h,
	}
}

// FetchChanges returns the pending changes of the domain in ledger order.
// With ack set the server drops them from the domain's queue.
func (c *HTTPClient) FetchChanges(ctx context.Context, ack bool) ([]*models.Change, error) {
	var out []*models.Change
	if err := c.post(ctx, pathUserChanges, changesRequest{Unlink: ack}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUsers returns the active users among ids. Archived users are omitted
// by the server.
func (c *HTTPClient) GetUsers(ctx context.Context, ids []int64) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*models.User
	if err := c.post(ctx, pathGetUsers, usersRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	err := netx.PostJSON(ctx, c.hc, c.baseURL+path, c.header, in, out)
	if err == nil {
		return nil
	}

	var se *netx.StatusError
	if !errors.As(err, &se) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Join(ErrUnavailable, err)
	}

	apiErr := &APIError{StatusCode: se.StatusCode}
	if jerr := json.Unmarshal(se.Body, apiErr); jerr != nil || apiErr.Code == "" {
		apiErr.Code = "http_err"
		apiErr.Message = strings.TrimSpace(string(se.Body))
	}
	return apiErr
}
