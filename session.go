package jobboard

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-jobboard/storage"
)

// Persisted entry keys.
const (
	KeyAccessToken     = "access_token"
	KeyRoles           = "roles_name"
	KeyLegacyRole      = "user_role"
	KeyIdentity        = "utilisateur"
	KeyManagedTenants  = "entreprises"
	KeyActiveTenantID  = "selected_entreprise_id"
	KeyActiveTenant    = "selected_entreprise_full"
	KeyRememberedEmail = "remembered_email"
)

var sessionKeys = []string{KeyAccessToken, KeyRoles, KeyLegacyRole, KeyIdentity}

var tenantKeys = []string{KeyManagedTenants, KeyActiveTenantID, KeyActiveTenant}

// Session is a snapshot of the authenticated state.
type Session struct {
	Credentials Credentials
	Identity    Identity
	Roles       []Role
}

// Authenticated reports whether the snapshot holds a token.
func (s Session) Authenticated() bool {
	return !s.Credentials.IsZero()
}

// PrimaryRole returns the first role.
func (s Session) PrimaryRole() (Role, bool) {
	if len(s.Roles) > 0 {
		return s.Roles[0], true
	}
	if s.Identity.Role != "" {
		return ParseRole(s.Identity.Role)
	}
	return "", false
}

// SessionObserver is notified after every committed session change.
type SessionObserver interface {
	SessionChanged(Session)
}

// SessionObserverFunc adapts a function to SessionObserver.
type SessionObserverFunc func(Session)

// SessionChanged implements SessionObserver.
func (f SessionObserverFunc) SessionChanged(s Session) {
	if f != nil {
		f(s)
	}
}

// SessionOption customizes the store.
type SessionOption func(*SessionStore)

// WithSessionLogger sets the logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionActivitySink sets the sink receiving login and logout events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(s *SessionStore) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPhoneRegion sets the region used to validate phone numbers.
func WithPhoneRegion(region string) SessionOption {
	return func(s *SessionStore) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// SessionStore holds the credential token, the identity and its ordered
// roles. Writers are serialized and observers see each change exactly once
// before the next one is applied. Observers must not call write methods of
// the store they observe.
type SessionStore struct {
	store   storage.Store
	backend AuthBackend

	writeMu sync.Mutex
	mu      sync.RWMutex
	current Session

	observers observerSet[SessionObserver]

	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	phoneRegion  string
}

// NewSessionStore builds a store. Call Restore to load persisted state.
func NewSessionStore(store storage.Store, backend AuthBackend, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		store:        store,
		backend:      backend,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		phoneRegion:  DefaultPhoneRegion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Restore loads the persisted session. The legacy single role entry is
// migrated into the role list; an expired JWT discards the session.
func (s *SessionStore) Restore(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, _, err := s.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return err
	}

	var names []string
	found, err := storage.GetJSON(ctx, s.store, KeyRoles, &names)
	if err != nil {
		s.logger.Error("discarding unreadable roles entry: %v", err)
		found = false
	}
	if !found {
		legacy, ok, err := s.store.Get(ctx, KeyLegacyRole)
		if err != nil {
			return err
		}
		if ok && strings.TrimSpace(legacy) != "" {
			names = RoleNames(ParseRoles([]string{legacy}))
			if err := storage.SetJSON(ctx, s.store, KeyRoles, names); err != nil {
				return err
			}
		}
	}
	if err := s.store.Delete(ctx, KeyLegacyRole); err != nil {
		return err
	}

	var identity Identity
	if _, err := storage.GetJSON(ctx, s.store, KeyIdentity, &identity); err != nil {
		s.logger.Error("discarding unreadable identity entry: %v", err)
		identity = Identity{}
	}

	next := Session{
		Credentials: NewCredentials(token),
		Identity:    identity,
		Roles:       ParseRoles(names),
	}

	if next.Credentials.Expired(s.now()) {
		s.logger.Info("persisted token expired, clearing session")
		if err := s.store.Delete(ctx, sessionKeys...); err != nil {
			return err
		}
		next = Session{}
	}

	s.commit(next)
	return nil
}

// Authenticate validates the login form, calls the backend and persists the
// session. Failures are classified with ClassifyLoginFailure, except
// timeouts which are reported as they came from the transport.
func (s *SessionStore) Authenticate(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, AsValidationFailure(err)
	}

	res, err := s.backend.Login(ctx, req)
	if err != nil {
		out := error(err)
		if !IsKind(err, KindTimeout) {
			out = NewLoginError(err)
		}
		s.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{ID: req.Email, Type: "user"},
			Metadata:  map[string]any{"kind": string(KindOf(out))},
		})
		return nil, out
	}
	if res == nil || strings.TrimSpace(res.Token) == "" {
		return nil, newLoginError(KindUnknownAuthError, 0, "", nil, nil)
	}

	session, err := s.establish(ctx, res)
	if err != nil {
		return nil, err
	}

	if req.Remember {
		err = s.store.Set(ctx, KeyRememberedEmail, req.Email)
	} else {
		err = s.store.Delete(ctx, KeyRememberedEmail)
	}
	if err != nil {
		s.logger.Error("remembered email not persisted: %v", err)
	}

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Actor:      actorOf(session.Identity),
		ResourceID: strconv.FormatInt(session.Identity.ID, 10),
	})
	return session, nil
}

// RegisterCandidate creates a candidate account and signs it in when the
// backend returns a token.
func (s *SessionStore) RegisterCandidate(ctx context.Context, req CandidateRegistration) (*Session, error) {
	if err := req.ValidateIn(s.phoneRegion); err != nil {
		return nil, AsValidationFailure(err)
	}
	req.Phone = NormalizePhone(req.Phone, s.phoneRegion)

	res, err := s.backend.RegisterCandidate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.afterRegistration(ctx, res, RoleCandidate)
}

// RegisterRecruiter creates a recruiter account and its organization. The
// organization starts pending validation so the backend usually returns no
// token; the session stays anonymous in that case.
func (s *SessionStore) RegisterRecruiter(ctx context.Context, req RecruiterRegistration) (*Session, error) {
	if err := req.ValidateIn(s.phoneRegion); err != nil {
		return nil, AsValidationFailure(err)
	}
	req.Phone = NormalizePhone(req.Phone, s.phoneRegion)

	res, err := s.backend.RegisterRecruiter(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.afterRegistration(ctx, res, RoleRecruiter)
}

func (s *SessionStore) afterRegistration(ctx context.Context, res *AuthResult, role Role) (*Session, error) {
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventRegistration,
		Metadata:  map[string]any{"role": string(role)},
	})

	if res == nil || strings.TrimSpace(res.Token) == "" {
		snapshot := s.Current()
		return &snapshot, nil
	}
	if len(res.Roles) == 0 && res.Identity.Role == "" {
		res.Roles = []string{string(role)}
	}
	return s.establish(ctx, res)
}

// RefreshRoles reloads identity and roles from the backend keeping the token.
func (s *SessionStore) RefreshRoles(ctx context.Context) (*Session, error) {
	res, err := s.backend.Me(ctx)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Current()
	if res != nil {
		next.Identity = res.Identity
		next.Roles = ParseRoles(res.Roles)
		if res.Token != "" {
			next.Credentials = NewCredentials(res.Token)
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.commit(next)
	return &next, nil
}

// Logout clears the session and the tenant selection. The remembered login
// email is kept.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.Current()
	keys := append(append([]string{}, sessionKeys...), tenantKeys...)
	if err := s.store.Delete(ctx, keys...); err != nil {
		return err
	}
	s.commit(Session{})

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     actorOf(prev.Identity),
	})
	return nil
}

// Terminate is the forced teardown after the backend rejected the token:
// every persisted entry is removed.
func (s *SessionStore) Terminate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.Current()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.commit(Session{})

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventSessionTerminated,
		Actor:     actorOf(prev.Identity),
	})
	return nil
}

// Current returns the latest committed snapshot.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	out.Roles = append([]Role(nil), s.current.Roles...)
	return out
}

// Token implements the pipeline credential source.
func (s *SessionStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.current.Credentials.Token
	return t, t != ""
}

// Credentials returns the parsed token.
func (s *SessionStore) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Credentials
}

// Identity returns the authenticated identity.
func (s *SessionStore) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Identity
}

// IsAuthenticated reports whether a token is held.
func (s *SessionStore) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// CurrentRole returns the primary role, falling back to the identity's
// legacy single role field when the list is empty.
func (s *SessionStore) CurrentRole() (Role, bool) {
	return s.Current().PrimaryRole()
}

// Is reports whether the identity holds role.
func (s *SessionStore) Is(role Role) bool {
	return containsRole(s.roles(), role)
}

// HasRole compares name case-insensitively.
func (s *SessionStore) HasRole(name string) bool {
	role, _ := ParseRole(name)
	return role != "" && s.Is(role)
}

// HasAnyRole reports whether at least one name is held.
func (s *SessionStore) HasAnyRole(names ...string) bool {
	held := s.roles()
	for _, name := range names {
		if role, _ := ParseRole(name); role != "" && containsRole(held, role) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether every name is held. An empty list is false.
func (s *SessionStore) HasAllRoles(names ...string) bool {
	if len(names) == 0 {
		return false
	}
	held := s.roles()
	for _, name := range names {
		role, _ := ParseRole(name)
		if role == "" || !containsRole(held, role) {
			return false
		}
	}
	return true
}

// RememberedEmail returns the email saved by a login with Remember set.
func (s *SessionStore) RememberedEmail(ctx context.Context) (string, bool) {
	v, ok, err := s.store.Get(ctx, KeyRememberedEmail)
	if err != nil {
		s.logger.Error("remembered email lookup failed: %v", err)
		return "", false
	}
	return v, ok && v != ""
}

// Subscribe registers o and returns the function removing it.
func (s *SessionStore) Subscribe(o SessionObserver) func() {
	if o == nil {
		return func() {}
	}
	return s.observers.add(o)
}

// roles returns the held roles, using the legacy field when the list is
// empty.
func (s *SessionStore) roles() []Role {
	snap := s.Current()
	if len(snap.Roles) > 0 {
		return snap.Roles
	}
	if role, ok := snap.PrimaryRole(); ok {
		return []Role{role}
	}
	return nil
}

func (s *SessionStore) establish(ctx context.Context, res *AuthResult) (*Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := Session{
		Credentials: NewCredentials(res.Token),
		Identity:    res.Identity,
		Roles:       ParseRoles(res.Roles),
	}
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.commit(next)
	return &next, nil
}

func (s *SessionStore) persist(ctx context.Context, next Session) error {
	if err := s.store.Set(ctx, KeyAccessToken, next.Credentials.Token); err != nil {
		return err
	}
	if err := storage.SetJSON(ctx, s.store, KeyRoles, RoleNames(next.Roles)); err != nil {
		return err
	}
	if err := storage.SetJSON(ctx, s.store, KeyIdentity, next.Identity); err != nil {
		return err
	}
	return s.store.Delete(ctx, KeyLegacyRole)
}

// commit publishes next and notifies observers. Callers hold writeMu.
func (s *SessionStore) commit(next Session) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	snapshot := s.Current()
	for _, o := range s.observers.snapshot() {
		o.SessionChanged(snapshot)
	}
}

func (s *SessionStore) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, event)
}

func actorOf(identity Identity) ActorRef {
	if identity.ID == 0 {
		return ActorRef{}
	}
	return ActorRef{ID: strconv.FormatInt(identity.ID, 10), Type: "user"}
}
