package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/client"
	"github.com/goliatone/go-jobboard/storage"
)

func TestParseID(t *testing.T) {
	id, rest, err := parseID([]string{"42", "-reason", "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, []string{"-reason", "x"}, rest)

	for _, args := range [][]string{nil, {"abc"}, {"0"}, {"-3"}} {
		_, _, err := parseID(args)
		assert.Error(t, err, args)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "boom", describe(errors.New("boom")))

	err := jobboard.NewValidationError("", map[string][]string{"email": {"is required"}})
	out := describe(err)
	assert.True(t, strings.HasPrefix(out, string(jobboard.KindValidationFailed)+": "), out)
	assert.Contains(t, out, "email")
}

// testApp returns an App signed in as a recruiter of organization 12,
// talking to handler.
func testApp(t *testing.T, handler http.HandlerFunc) (*client.App, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	store := storage.NewMemory()
	tenant := int64(12)
	require.NoError(t, store.Set(ctx, jobboard.KeyAccessToken, "rh-token"))
	require.NoError(t, storage.SetJSON(ctx, store, jobboard.KeyRoles, []string{"recruteur"}))
	require.NoError(t, storage.SetJSON(ctx, store, jobboard.KeyIdentity, jobboard.Identity{ID: 4, Email: "rh@acme.fr", EntrepriseID: &tenant}))

	app, err := client.NewApp(ctx, client.Config{
		BaseURL: srv.URL + "/api/",
		Logger:  jobboard.NopLogger{},
	}, store, client.AppOptions{})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, &bytes.Buffer{}
}

func TestDispatchWorkflow(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	app, out := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path+" "+string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/offres/5":
			_, _ = io.WriteString(w, `{"data":{"id":5,"titre":"Dev Go","statut":"publiee","entreprise_id":12}}`)
		case "/api/offres/5/fermer":
			_, _ = io.WriteString(w, `{"data":{"id":5,"titre":"Dev Go","statut":"fermee","entreprise_id":12}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cmd := command{app: app, out: out, now: func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }}
	require.NoError(t, cmd.dispatch(context.Background(), "close", []string{"5"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/offres/5 ",
		"PATCH /api/offres/5/fermer {}",
	}, seen)
	assert.Contains(t, out.String(), "fermee")
}

func TestDispatchRefusesForbiddenTransition(t *testing.T) {
	var calls atomic.Int32
	app, out := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":5,"statut":"en_attente_validation","entreprise_id":12}}`)
	})

	cmd := command{app: app, out: out, now: time.Now}
	err := cmd.dispatch(context.Background(), "validate", []string{"5"})
	require.Error(t, err)
	assert.Equal(t, jobboard.KindForbidden, jobboard.KindOf(err))
	assert.Equal(t, int32(1), calls.Load(), "only the offer read reaches the backend")
}

func TestDispatchReviewIsAdminOnly(t *testing.T) {
	var calls atomic.Int32
	app, out := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":12,"nom_entreprise":"Acme","statut":"en attente"}}`)
	})

	cmd := command{app: app, out: out, now: time.Now}
	ctx := context.Background()

	err := cmd.dispatch(ctx, "pending-tenants", nil)
	assert.Equal(t, jobboard.KindForbidden, jobboard.KindOf(err))
	assert.Equal(t, int32(0), calls.Load())

	err = cmd.dispatch(ctx, "validate-tenant", []string{"12"})
	assert.Equal(t, jobboard.KindForbidden, jobboard.KindOf(err))
	assert.Equal(t, int32(1), calls.Load(), "only the organization read reaches the backend")
}

func TestDispatchMisc(t *testing.T) {
	app, out := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	cmd := command{app: app, out: out, now: time.Now}
	ctx := context.Background()

	require.NoError(t, cmd.dispatch(ctx, "tenants", nil))
	assert.Contains(t, out.String(), "single organization account")

	out.Reset()
	require.NoError(t, cmd.dispatch(ctx, "whoami", nil))
	assert.Contains(t, out.String(), "rh@acme.fr")

	assert.Error(t, cmd.dispatch(ctx, "frobnicate", nil))
	assert.Error(t, cmd.dispatch(ctx, "track", nil))
	assert.Error(t, cmd.dispatch(ctx, "candidature-status", []string{"3", "-status", "maybe"}))

	require.NoError(t, cmd.dispatch(ctx, "logout", nil))
	assert.False(t, app.Session.IsAuthenticated())
}
