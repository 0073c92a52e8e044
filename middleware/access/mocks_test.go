package access_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// recorder answers every request with a fixed status and keeps the requests
// it saw.
type recorder struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []*http.Request
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recorder) last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

type tokenSource string

func (t tokenSource) Token() (string, bool) {
	return string(t), t != ""
}

// MockSession implements jobboard.SessionTerminator
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Terminate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockNavigator implements jobboard.Navigator
type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) CurrentLocation() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNavigator) RedirectToLogin(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockNavigator) RedirectToAccessDenied(ctx context.Context) {
	m.Called(ctx)
}
