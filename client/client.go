// Package client talks to the job board REST backend. Every request goes
// through the access and tenant scope transports; failures come back as
// the kinds defined by the jobboard package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/middleware/access"
	"github.com/goliatone/go-jobboard/middleware/tenantscope"
)

type Config struct {
	BaseURL string

	// Credentials, Session and Tenants feed the transports. Nil values
	// mean anonymous and single owner.
	Credentials jobboard.CredentialSource
	Session     jobboard.SessionTerminator
	Tenants     tenantscope.TenantSource
	Navigator   jobboard.Navigator

	Timeout         time.Duration
	UploadTimeout   time.Duration
	UploadLimit     string
	PublicLocations []string

	// Transport is the network transport below the pipeline.
	Transport http.RoundTripper
	Metrics   *access.Metrics
	Logger    jobboard.Logger
	// Debug turns on resty request logging.
	Debug bool
}

// Client is the backend API client. It implements jobboard.AuthBackend,
// jobboard.TenantLoader, jobboard.OfferWorkflow and
// jobboard.CandidatureWorkflow.
type Client struct {
	http       *resty.Client
	access     *access.Transport
	scope      *tenantscope.Transport
	normalizer access.Normalizer
	logger     jobboard.Logger
}

var (
	_ jobboard.AuthBackend         = (*Client)(nil)
	_ jobboard.TenantLoader        = (*Client)(nil)
	_ jobboard.OfferWorkflow       = (*Client)(nil)
	_ jobboard.CandidatureWorkflow = (*Client)(nil)
)

// New builds the client and its transport chain. It panics when BaseURL is
// missing, like the transports do.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = jobboard.NopLogger{}
	}
	if cfg.Credentials == nil {
		cfg.Credentials = anonymous{}
	}
	if cfg.Tenants == nil {
		cfg.Tenants = anonymous{}
	}

	scope := tenantscope.New(cfg.Transport, tenantscope.Config{
		BaseURL: cfg.BaseURL,
		Tenants: cfg.Tenants,
		Logger:  cfg.Logger,
	})
	acc := access.New(scope, access.Config{
		BaseURL:         cfg.BaseURL,
		Credentials:     cfg.Credentials,
		Session:         cfg.Session,
		Navigator:       cfg.Navigator,
		PublicLocations: cfg.PublicLocations,
		Timeout:         cfg.Timeout,
		UploadTimeout:   cfg.UploadTimeout,
		UploadLimit:     cfg.UploadLimit,
		Logger:          cfg.Logger,
		Metrics:         cfg.Metrics,
	})

	c := &Client{
		access:     acc,
		scope:      scope,
		normalizer: acc.Normalizer(),
		logger:     cfg.Logger,
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTransport(acc).
		SetRetryCount(0).
		SetLogger(restyLogger{cfg.Logger}).
		SetDebug(cfg.Debug).
		SetHeader(access.HeaderAccept, access.MIMEApplicationJSON)

	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if !resp.IsError() {
			return nil
		}
		return c.normalizer.FromStatus(resp.StatusCode(), resp.Body())
	})

	return c
}

// Access returns the first pipeline stage.
func (c *Client) Access() *access.Transport {
	return c.access
}

// Scope returns the tenant scoping stage.
func (c *Client) Scope() *tenantscope.Transport {
	return c.scope
}

// Do sends a request through the pipeline and returns the raw body of a
// successful answer. prepare may set body, query and path params.
func (c *Client) Do(ctx context.Context, method, path string, prepare func(*resty.Request)) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, c.failure(err)
	}
	return resp.Body(), nil
}

func (c *Client) failure(err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich
	}
	return c.normalizer.FromTransport(err)
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, dst any) error {
	body, err := c.Do(ctx, http.MethodGet, path, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
	})
	if err != nil {
		return err
	}
	return decodeData(body, dst)
}

func (c *Client) send(ctx context.Context, method, path string, payload any, dst any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := c.Do(ctx, method, path, jsonBody(payload))
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return decodeData(body, dst)
}

func jsonBody(payload any) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetHeader(access.HeaderContentType, access.MIMEApplicationJSON).SetBody(payload)
	}
}

// unwrap strips up to two "data" envelopes: {"data": ...} and the
// paginated {"data": {"data": [...]}}. A null envelope gives nil.
func unwrap(body []byte) json.RawMessage {
	raw := json.RawMessage(bytes.TrimSpace(body))
	for range 2 {
		if len(raw) == 0 || raw[0] != '{' {
			return raw
		}
		var env map[string]json.RawMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			return raw
		}
		inner, ok := env["data"]
		if !ok {
			return raw
		}
		if isNull(inner) {
			return nil
		}
		raw = bytes.TrimSpace(inner)
	}
	return raw
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func decodeData(body []byte, dst any) error {
	raw := unwrap(body)
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return jobboard.NewKindError(jobboard.ErrHTTP, 0, err, map[string]any{
			"reason": "unexpected response body",
		})
	}
	return nil
}

// decodeOptional decodes an object envelope into a new T, nil when the
// answer carries no object.
func decodeOptional[T any](body []byte) (*T, error) {
	raw := unwrap(body)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, jobboard.NewKindError(jobboard.ErrHTTP, 0, err, map[string]any{
			"reason": "unexpected response body",
		})
	}
	return out, nil
}

type anonymous struct{}

func (anonymous) Token() (string, bool)         { return "", false }
func (anonymous) IsMultiTenantMode() bool       { return false }
func (anonymous) ActiveTenantID() (int64, bool) { return 0, false }

type restyLogger struct {
	logger jobboard.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.logger.Error(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.logger.Info(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.logger.Debug(format, v...) }
