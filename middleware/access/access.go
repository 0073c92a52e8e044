// Package access is the first stage of the request pipeline: it classifies
// backend requests as public or protected, attaches credentials, applies the
// request deadline and reacts to 401 and 403 answers.
package access

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-jobboard"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "X-Request-ID"

	MIMEApplicationJSON = "application/json"
	MIMEMultipartForm   = "multipart/form-data"

	DefaultTimeout       = 30 * time.Second
	DefaultUploadTimeout = 180 * time.Second
	DefaultUploadLimit   = "10 MB"
)

// DefaultPublicPrefixes never carry credentials. Matching is by prefix on
// the path relative to the API base URL.
var DefaultPublicPrefixes = []string{
	"/auth/login",
	"/auth/register",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/auth/verify-reset-token",
	"/categories",
	"/pays",
	"/conseils",
	"/candidatures/guest",
	"/candidatures/suivi/",
}

// DefaultPublicLocations are the UI locations that do not redirect to login
// when a protected request lacks a token. "/" matches only itself, other
// entries match by prefix.
var DefaultPublicLocations = []string{
	"/",
	"/connexion",
	"/register",
	"/offres",
	"/suivre-candidature",
}

// DefaultOffersCollection is the offers path segment whose list and numeric
// detail reads are public.
const DefaultOffersCollection = "offres"

// Class is the access classification of a request.
type Class string

const (
	ClassExternal  Class = "external"
	ClassPublic    Class = "public"
	ClassProtected Class = "protected"
)

type Config struct {
	// BaseURL is the API root. Requests outside it pass through untouched.
	BaseURL string
	// Credentials provides the token for protected requests.
	Credentials jobboard.CredentialSource
	// Session is torn down when a protected request gets a 401.
	Session jobboard.SessionTerminator
	// Navigator performs redirects. Optional.
	Navigator jobboard.Navigator
	// Filter skips the middleware entirely when it returns true.
	Filter func(*http.Request) bool

	PublicPrefixes   []string
	OffersCollection string
	PublicLocations  []string

	Timeout       time.Duration
	UploadTimeout time.Duration
	// UploadLimit is shown in the message of a 413 answer.
	UploadLimit string

	Logger  jobboard.Logger
	Metrics *Metrics
	Now     func() time.Time

	base     *url.URL
	offersRe *regexp.Regexp
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.BaseURL == "" {
		panic("JOBBOARD: access middleware configuration: BaseURL is required.")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		panic("JOBBOARD: access middleware configuration: invalid BaseURL: " + err.Error())
	}
	base.Path = strings.TrimRight(base.Path, "/")
	cfg.base = base

	if cfg.Credentials == nil {
		panic("JOBBOARD: access middleware configuration: Credentials is required.")
	}

	if cfg.PublicPrefixes == nil {
		cfg.PublicPrefixes = DefaultPublicPrefixes
	}

	if cfg.OffersCollection == "" {
		cfg.OffersCollection = DefaultOffersCollection
	}
	cfg.OffersCollection = strings.Trim(cfg.OffersCollection, "/")
	cfg.offersRe = regexp.MustCompile(`^/` + regexp.QuoteMeta(cfg.OffersCollection) + `/\d+/?$`)

	if cfg.PublicLocations == nil {
		cfg.PublicLocations = DefaultPublicLocations
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}

	if cfg.UploadLimit == "" {
		cfg.UploadLimit = DefaultUploadLimit
	}

	if cfg.Logger == nil {
		cfg.Logger = jobboard.NopLogger{}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return cfg
}

// RelativePath returns the request path relative to the API base URL with a
// leading slash, and false when u is outside the API.
func (cfg Config) RelativePath(u *url.URL) (string, bool) {
	if u == nil || cfg.base == nil {
		return "", false
	}
	if !strings.EqualFold(u.Scheme, cfg.base.Scheme) || !strings.EqualFold(u.Host, cfg.base.Host) {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, cfg.base.Path) {
		return "", false
	}
	rel := strings.TrimPrefix(p, cfg.base.Path)
	if rel != "" && !strings.HasPrefix(rel, "/") {
		// base "/api" must not match "/apiv2"
		return "", false
	}
	if rel == "" {
		rel = "/"
	}
	return rel, true
}

// Classify tells whether u is outside the API, public or protected.
func (cfg Config) Classify(u *url.URL) Class {
	rel, ok := cfg.RelativePath(u)
	if !ok {
		return ClassExternal
	}
	if cfg.IsPublicPath(rel) {
		return ClassPublic
	}
	return ClassProtected
}

// IsPublicPath applies the public allowlist and the offers read rule to a
// path relative to the API root.
func (cfg Config) IsPublicPath(rel string) bool {
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	for _, prefix := range cfg.PublicPrefixes {
		if rel == prefix || strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	collection := "/" + cfg.OffersCollection
	if rel == collection || rel == collection+"/" {
		return true
	}
	return cfg.offersRe.MatchString(rel)
}

// IsPublicLocation reports whether the UI location needs no login.
func (cfg Config) IsPublicLocation(location string) bool {
	loc := location
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	for _, p := range cfg.PublicLocations {
		if p == "/" {
			if loc == "/" || loc == "" {
				return true
			}
			continue
		}
		if strings.HasPrefix(loc, p) {
			return true
		}
	}
	return false
}

// New wraps next. A nil next uses http.DefaultTransport.
func New(next http.RoundTripper, config ...Config) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{next: next, cfg: GetDefaultConfig(config...)}
}

// Transport is the credentialing stage of the pipeline.
type Transport struct {
	next http.RoundTripper
	cfg  Config
}

// Config returns the effective configuration.
func (t *Transport) Config() Config {
	return t.cfg
}

// RoundTrip implements http.RoundTripper. Answers are returned unchanged
// whatever their status; use Normalize to turn failures into errors.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	cfg := t.cfg
	if cfg.Filter != nil && cfg.Filter(req) {
		return t.next.RoundTrip(req)
	}

	class := cfg.Classify(req.URL)
	if class == ClassExternal {
		return t.next.RoundTrip(req)
	}

	r := req.Clone(WithClass(req.Context(), class))
	if r.Header.Get(HeaderRequestID) == "" {
		r.Header.Set(HeaderRequestID, uuid.NewString())
	}

	multipart := IsMultipart(r)
	r.Header.Set(HeaderAccept, MIMEApplicationJSON)
	if !multipart {
		r.Header.Set(HeaderContentType, MIMEApplicationJSON)
	}

	if class == ClassPublic {
		r.Header.Del(HeaderAuthorization)
	} else {
		token, ok := cfg.Credentials.Token()
		if !ok || token == "" {
			closeBody(req)
			cfg.Logger.Debug("no token for protected request %s %s", req.Method, req.URL.Path)
			cfg.Metrics.failure(string(jobboard.KindMissingCredentials))
			if cfg.Navigator != nil && !cfg.IsPublicLocation(cfg.Navigator.CurrentLocation()) {
				cfg.Navigator.RedirectToLogin(req.Context())
			}
			return nil, jobboard.NewKindError(jobboard.ErrMissingCredentials, 0, nil, map[string]any{
				"method": req.Method,
				"path":   req.URL.Path,
			})
		}
		r.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	timeout := cfg.Timeout
	if multipart {
		timeout = cfg.UploadTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	r = r.WithContext(ctx)

	start := cfg.Now()
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		cancel()
		cfg.Metrics.observe(string(class), req.Method, 0, cfg.Now().Sub(start))
		return nil, t.transportError(req, ctx, err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	cfg.Metrics.observe(string(class), req.Method, resp.StatusCode, cfg.Now().Sub(start))

	if class == ClassProtected {
		t.sideEffects(req, resp.StatusCode)
	}
	return resp, nil
}

func (t *Transport) transportError(req *http.Request, ctx context.Context, err error) error {
	// the caller cancelled: report it as is
	if req.Context().Err() != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		t.cfg.Metrics.failure(string(jobboard.KindTimeout))
		return jobboard.NewKindError(jobboard.ErrTimeout, 0, err, map[string]any{
			"method": req.Method,
			"path":   req.URL.Path,
		})
	}
	t.cfg.Metrics.failure(string(jobboard.KindNetworkError))
	return jobboard.NewKindError(jobboard.ErrNetwork, 0, err, map[string]any{
		"method": req.Method,
		"path":   req.URL.Path,
	})
}

func (t *Transport) sideEffects(req *http.Request, status int) {
	cfg := t.cfg
	switch status {
	case http.StatusUnauthorized:
		cfg.Logger.Info("401 on %s, terminating session", req.URL.Path)
		if cfg.Session != nil {
			if err := cfg.Session.Terminate(context.WithoutCancel(req.Context())); err != nil {
				cfg.Logger.Error("session teardown failed: %v", err)
			}
		}
		if cfg.Navigator != nil {
			cfg.Navigator.RedirectToLogin(req.Context())
		}
	case http.StatusForbidden:
		if cfg.Navigator != nil {
			cfg.Navigator.RedirectToAccessDenied(req.Context())
		}
	}
}

type classKey struct{}

// WithClass records the access class of a request in ctx.
func WithClass(ctx context.Context, class Class) context.Context {
	return context.WithValue(ctx, classKey{}, class)
}

// ClassFromContext returns the class recorded by the transport.
func ClassFromContext(ctx context.Context) (Class, bool) {
	c, ok := ctx.Value(classKey{}).(Class)
	return c, ok
}

// IsMultipart reports whether the request body is a multipart form.
func IsMultipart(r *http.Request) bool {
	ct := r.Header.Get(HeaderContentType)
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(ct), MIMEMultipartForm)
	}
	return mt == MIMEMultipartForm
}

func closeBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close()
	}
}

// cancelOnClose releases the request deadline once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
