// Package client talks to the identity service on behalf of a tenant domain
// and bootstraps the local sqlite database of the mirror.
//
// HTTPClient authenticates every call with the domain_key/domain_secret
// headers. Failures are reported as:
//
//   - ErrUnavailable when the server cannot be reached;
//   - *APIError when the server answered with a {code, message} body.
//
// APIError matches ErrUnauthorized with errors.Is for auth_err responses.
package client
