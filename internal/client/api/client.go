// Package api is the client-side gateway to the expense-tracker REST
// backend. The Client interface covers authentication exchanges and the
// transaction resource; HTTPClient is the production implementation.
package api

import (
	"context"

	"github.com/vpetrenko/tracklet/internal/client/models"
)

// Page is one page of server-side filtered and paginated results.
type Page struct {
	Items      []models.Transaction
	Page       int
	TotalPages int
}

// TokenSource supplies the bearer token for protected calls and receives
// authorization-failure notifications. The token is read at call time, so a
// logout between dispatch and response does not affect the outbound header
// of already-dispatched requests.
type TokenSource interface {
	// AccessToken returns the current bearer token, or "" when anonymous.
	AccessToken() string

	// AuthFailed tells the source the backend rejected its token. The
	// source must drop the session; the failed call is never retried.
	AuthFailed(ctx context.Context)
}

// Client is the remote transaction resource plus the credential exchanges
// that establish a session.
type Client interface {
	Close() error

	Login(ctx context.Context, username, password string) (models.Session, error)
	LoginWithGoogle(ctx context.Context, credential string) (models.Session, error)
	Register(ctx context.Context, username, email, password string) (models.Session, error)

	List(ctx context.Context, filter models.Filter, page int) (Page, error)
	Create(ctx context.Context, draft models.Draft) (models.Transaction, error)
	Update(ctx context.Context, id int64, record models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, filter models.Filter) (models.Totals, error)
	ExportCSV(ctx context.Context, filter models.Filter) ([]byte, error)
}
