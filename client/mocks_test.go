package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// captured is what the fake backend saw of one request.
type captured struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
	Form   map[string][]string
	Files  map[string]string
}

// backend is an httptest server answering from a route table keyed by
// "METHOD /path". Unknown routes answer 404.
type backend struct {
	mu       sync.Mutex
	server   *httptest.Server
	routes   map[string]reply
	requests []captured
}

type reply struct {
	status int
	body   string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{routes: map[string]reply{}}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) baseURL() string {
	return b.server.URL + "/api/"
}

func (b *backend) on(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = reply{status: status, body: body}
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	c := captured{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			c.Form = r.MultipartForm.Value
			c.Files = map[string]string{}
			for name, headers := range r.MultipartForm.File {
				f, err := headers[0].Open()
				if err != nil {
					continue
				}
				content, _ := io.ReadAll(f)
				f.Close()
				c.Files[name] = headers[0].Filename + ":" + string(content)
			}
		}
	} else {
		body, _ := io.ReadAll(r.Body)
		c.Body = string(body)
	}

	b.mu.Lock()
	b.requests = append(b.requests, c)
	rep, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if !ok {
		rep = reply{status: http.StatusNotFound, body: `{"message":"not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *backend) last() captured {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return captured{}
	}
	return b.requests[len(b.requests)-1]
}

type tokenSource string

func (t tokenSource) Token() (string, bool) { return string(t), t != "" }

// navigator records redirects.
type navigator struct {
	mu           sync.Mutex
	location     string
	logins       int
	accessDenied int
}

func (n *navigator) CurrentLocation() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *navigator) RedirectToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins++
}

func (n *navigator) RedirectToAccessDenied(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accessDenied++
}

func (n *navigator) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.logins, n.accessDenied
}
