// Package opay provides a thin client for the OPay REST API. It attaches
// the bearer token and merchant ID to every call, sends optional JSON
// bodies and query parameters, and returns the decoded JSON response
// without interpreting it.
package opay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/donaldgifford/opay/internal/settings"
	domain "github.com/donaldgifford/opay/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// API is the operation set exposed to callers.
type API interface {
	Request(
		ctx context.Context,
		method Method,
		endpoint string,
		query map[string]string,
		body any,
	) (any, error)
	IsValid() bool
}

// Client calls the OPay API with a fixed set of credentials. It holds no
// per-call state and is safe for concurrent use when its Doer is.
type Client struct {
	creds domain.Credentials
	doer  Doer
	log   *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithDoer overrides the HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithHTTPClient overrides the HTTP transport with hc.
func WithHTTPClient(hc *http.Client) Option {
	return WithDoer(hc)
}

// WithLogger sets the logger used to record failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client for creds. The credentials are copied; later
// changes to creds do not affect the client.
func New(creds *domain.Credentials, opts ...Option) *Client {
	c := &Client{
		doer: &http.Client{Timeout: defaultTimeout},
		log:  slog.Default(),
	}
	if creds != nil {
		c.creds = *creds
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient reads token, merchant_id, and api_uri from p once and creates
// a client for them.
func NewClient(p settings.Provider, opts ...Option) *Client {
	return New(settings.CredentialsFrom(p), opts...)
}

// IsValid reports whether all three credentials were present at
// construction. Request does not check it.
func (c *Client) IsValid() bool {
	return c.creds.IsValid()
}

// MerchantID returns the merchant ID the client sends.
func (c *Client) MerchantID() string {
	return c.creds.MerchantID
}

// BaseURI returns the API base URI endpoints are appended to.
func (c *Client) BaseURI() string {
	return c.creds.BaseURI
}
