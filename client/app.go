package client

import (
	"context"
	"sync/atomic"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/storage"
)

// App wires one authenticated context: the API client, the session store,
// the tenant context and the workflow managers sharing them.
type App struct {
	Client       *Client
	Session      *jobboard.SessionStore
	Tenants      *jobboard.TenantContext
	Offers       *jobboard.OfferLifecycle
	Candidatures *jobboard.CandidatureManager
	Reviews      *jobboard.TenantReview

	unsubscribe func()
}

// AppOptions carries the optional collaborators of an App.
type AppOptions struct {
	ActivitySink jobboard.ActivitySink
	PhoneRegion  string
	OfferHooks   []jobboard.OfferOption
}

// NewApp builds the client on top of store and restores the persisted
// session and tenant selection. Credentials, session teardown and tenant
// scoping of cfg are replaced by the App's own objects.
func NewApp(ctx context.Context, cfg Config, store storage.Store, opts AppOptions) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = jobboard.DefaultLogger()
	}

	b := &binding{}
	cfg.Credentials = b
	cfg.Session = b
	cfg.Tenants = b
	c := New(cfg)

	sessionOpts := []jobboard.SessionOption{
		jobboard.WithSessionLogger(cfg.Logger),
		jobboard.WithSessionActivitySink(opts.ActivitySink),
	}
	if opts.PhoneRegion != "" {
		sessionOpts = append(sessionOpts, jobboard.WithPhoneRegion(opts.PhoneRegion))
	}
	session := jobboard.NewSessionStore(store, c, sessionOpts...)

	tenants := jobboard.NewTenantContext(store, session, c,
		jobboard.WithTenantLogger(cfg.Logger),
		jobboard.WithTenantActivitySink(opts.ActivitySink),
	)

	offerOpts := append([]jobboard.OfferOption{
		jobboard.WithOfferLogger(cfg.Logger),
		jobboard.WithOfferActivitySink(opts.ActivitySink),
	}, opts.OfferHooks...)

	app := &App{
		Client:  c,
		Session: session,
		Tenants: tenants,
		Offers:  jobboard.NewOfferLifecycle(c, offerOpts...),
		Candidatures: jobboard.NewCandidatureManager(c,
			jobboard.WithCandidatureLogger(cfg.Logger),
			jobboard.WithCandidatureActivitySink(opts.ActivitySink),
		),
		Reviews: jobboard.NewTenantReview(c,
			jobboard.WithTenantReviewLogger(cfg.Logger),
			jobboard.WithTenantReviewActivitySink(opts.ActivitySink),
		),
	}
	app.unsubscribe = session.Subscribe(tenants)

	b.session.Store(session)
	b.tenants.Store(tenants)

	if err := session.Restore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := tenants.Restore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Actor returns the workflow actor for the current session.
func (a *App) Actor() jobboard.Actor {
	return jobboard.ActorFromSession(a.Session.Current(), a.Tenants)
}

// SignIn authenticates and, for community managers, loads the managed
// organizations.
func (a *App) SignIn(ctx context.Context, req jobboard.LoginRequest) (*jobboard.Session, error) {
	s, err := a.Session.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := a.Tenants.LoadManagedTenants(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Close releases the subscriptions.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// binding defers to the session and tenant context created after the
// client, which needs them in its transports.
type binding struct {
	session atomic.Pointer[jobboard.SessionStore]
	tenants atomic.Pointer[jobboard.TenantContext]
}

func (b *binding) Token() (string, bool) {
	if s := b.session.Load(); s != nil {
		return s.Token()
	}
	return "", false
}

func (b *binding) Terminate(ctx context.Context) error {
	if s := b.session.Load(); s != nil {
		return s.Terminate(ctx)
	}
	return nil
}

func (b *binding) IsMultiTenantMode() bool {
	if t := b.tenants.Load(); t != nil {
		return t.IsMultiTenantMode()
	}
	return false
}

func (b *binding) ActiveTenantID() (int64, bool) {
	if t := b.tenants.Load(); t != nil {
		return t.ActiveTenantID()
	}
	return 0, false
}
