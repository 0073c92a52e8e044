// Package tenantscope is the second stage of the request pipeline. When a
// community manager works on behalf of a company, it adds the active
// company id to tenant scoped requests: as a query parameter on reads, as a
// body field on JSON writes and as a form part on multipart uploads. A value
// already set by the caller is never overwritten.
package tenantscope

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/middleware/access"
)

const DefaultField = "entreprise_id"

// DefaultScopedPrefixes are the endpoints that act on a company's data.
var DefaultScopedPrefixes = []string{
	"/offres",
	"/candidatures",
	"/publicites",
	"/mon-entreprise",
	"/community/offres",
	"/community/candidatures",
}

// DefaultExcludedPrefixes win over DefaultScopedPrefixes.
var DefaultExcludedPrefixes = []string{
	"/auth/",
	"/categories",
	"/pays",
	"/conseils",
	"/community/entreprises",
	"/profile",
	"/users/",
}

// TenantSource exposes the active tenant. TenantContext implements it.
type TenantSource interface {
	IsMultiTenantMode() bool
	ActiveTenantID() (int64, bool)
}

type Config struct {
	BaseURL string
	Tenants TenantSource
	// Field is the query parameter, body field and form part name.
	Field string

	ScopedPrefixes   []string
	ExcludedPrefixes []string

	// Filter skips the middleware entirely when it returns true.
	Filter func(*http.Request) bool
	Logger jobboard.Logger

	base *url.URL
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.BaseURL == "" {
		panic("JOBBOARD: tenant scope configuration: BaseURL is required.")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		panic("JOBBOARD: tenant scope configuration: invalid BaseURL: " + err.Error())
	}
	base.Path = strings.TrimRight(base.Path, "/")
	cfg.base = base

	if cfg.Tenants == nil {
		panic("JOBBOARD: tenant scope configuration: Tenants is required.")
	}

	if cfg.Field == "" {
		cfg.Field = DefaultField
	}

	if cfg.ScopedPrefixes == nil {
		cfg.ScopedPrefixes = DefaultScopedPrefixes
	}

	if cfg.ExcludedPrefixes == nil {
		cfg.ExcludedPrefixes = DefaultExcludedPrefixes
	}

	if cfg.Logger == nil {
		cfg.Logger = jobboard.NopLogger{}
	}

	return cfg
}

// Scoped reports whether a path relative to the API root carries a tenant.
func (cfg Config) Scoped(rel string) bool {
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	for _, p := range cfg.ExcludedPrefixes {
		if strings.HasPrefix(rel, p) {
			return false
		}
	}
	for _, p := range cfg.ScopedPrefixes {
		if rel == p || strings.HasPrefix(rel, p+"/") || strings.HasPrefix(rel, p+"?") {
			return true
		}
	}
	return false
}

func (cfg Config) relativePath(u *url.URL) (string, bool) {
	if u == nil || !strings.EqualFold(u.Scheme, cfg.base.Scheme) || !strings.EqualFold(u.Host, cfg.base.Host) {
		return "", false
	}
	rel := strings.TrimPrefix(u.Path, cfg.base.Path)
	if len(rel) == len(u.Path) && cfg.base.Path != "" {
		return "", false
	}
	if rel == "" {
		rel = "/"
	}
	if !strings.HasPrefix(rel, "/") {
		return "", false
	}
	return rel, true
}

// New wraps next. A nil next uses http.DefaultTransport.
func New(next http.RoundTripper, config ...Config) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{next: next, cfg: GetDefaultConfig(config...)}
}

// Transport is the tenant scoping stage of the pipeline.
type Transport struct {
	next http.RoundTripper
	cfg  Config
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r, err := t.Apply(req)
	if err != nil {
		return nil, err
	}
	return t.next.RoundTrip(r)
}

// Apply returns req with the active tenant added, or req itself when no
// scoping applies. Applying it twice gives the same request as once.
func (t *Transport) Apply(req *http.Request) (*http.Request, error) {
	cfg := t.cfg
	if cfg.Filter != nil && cfg.Filter(req) {
		return req, nil
	}
	if class, ok := access.ClassFromContext(req.Context()); ok && class != access.ClassProtected {
		return req, nil
	}
	if !cfg.Tenants.IsMultiTenantMode() {
		return req, nil
	}
	tenantID, ok := cfg.Tenants.ActiveTenantID()
	if !ok || tenantID == 0 {
		return req, nil
	}
	rel, ok := cfg.relativePath(req.URL)
	if !ok || !cfg.Scoped(rel) {
		return req, nil
	}

	id := strconv.FormatInt(tenantID, 10)
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return t.scopeQuery(req, id), nil
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if access.IsMultipart(req) {
			return t.scopeMultipart(req, id)
		}
		return t.scopeJSON(req, tenantID)
	}
	return req, nil
}

func (t *Transport) scopeQuery(req *http.Request, id string) *http.Request {
	q := req.URL.Query()
	if q.Has(t.cfg.Field) {
		return req
	}
	q.Set(t.cfg.Field, id)
	r := req.Clone(req.Context())
	r.URL.RawQuery = q.Encode()
	return r
}

func (t *Transport) scopeJSON(req *http.Request, tenantID int64) (*http.Request, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	fields := map[string]any{}
	switch {
	case len(trimmed) == 0:
		// an empty write becomes an object holding only the tenant field
	case trimmed[0] != '{':
		return withBody(req, body), nil
	default:
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			t.cfg.Logger.Debug("tenant scope: body of %s is not a JSON object: %v", req.URL.Path, err)
			return withBody(req, body), nil
		}
	}
	if _, ok := fields[t.cfg.Field]; ok {
		return withBody(req, body), nil
	}
	fields[t.cfg.Field] = tenantID

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return withBody(req, out), nil
}

func (t *Transport) scopeMultipart(req *http.Request, id string) (*http.Request, error) {
	_, params, err := mime.ParseMediaType(req.Header.Get(access.HeaderContentType))
	boundary := params["boundary"]
	if err != nil || boundary == "" {
		return req, nil
	}

	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return withBody(req, body), nil
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.cfg.Logger.Debug("tenant scope: unreadable multipart body on %s: %v", req.URL.Path, err)
			return withBody(req, body), nil
		}
		if part.FormName() == t.cfg.Field {
			return withBody(req, body), nil
		}
		dst, err := w.CreatePart(part.Header)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(dst, part); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField(t.cfg.Field, id); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return withBody(req, buf.Bytes()), nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// withBody clones req with a replayable body.
func withBody(req *http.Request, body []byte) *http.Request {
	r := req.Clone(req.Context())
	r.ContentLength = int64(len(body))
	r.Header.Del("Content-Length")
	if len(body) == 0 {
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return r
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return r
}
