package jobboard

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-jobboard/storage"
)

// TenantMode tells whether the identity acts for one organization or for
// several.
type TenantMode string

const (
	TenantModeSingleOwner TenantMode = "single_owner"
	TenantModeMultiTenant TenantMode = "multi_tenant"
)

// TenantState is a snapshot of the tenant context.
type TenantState struct {
	Mode     TenantMode
	Managed  []Tenant
	ActiveID int64
}

// Active returns the selected tenant id.
func (s TenantState) Active() (int64, bool) {
	return s.ActiveID, s.ActiveID != 0
}

// TenantObserver is notified after every committed tenant change.
type TenantObserver interface {
	TenantChanged(TenantState)
}

// TenantObserverFunc adapts a function to TenantObserver.
type TenantObserverFunc func(TenantState)

// TenantChanged implements TenantObserver.
func (f TenantObserverFunc) TenantChanged(s TenantState) {
	if f != nil {
		f(s)
	}
}

// TenantOption customizes the tenant context.
type TenantOption func(*TenantContext)

// WithTenantLogger sets the logger.
func WithTenantLogger(logger Logger) TenantOption {
	return func(t *TenantContext) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTenantActivitySink sets the sink receiving selection events.
func WithTenantActivitySink(sink ActivitySink) TenantOption {
	return func(t *TenantContext) {
		t.activitySink = normalizeActivitySink(sink)
	}
}

// WithTenantClock injects a custom clock (useful for tests).
func WithTenantClock(clock func() time.Time) TenantOption {
	return func(t *TenantContext) {
		if clock != nil {
			t.now = clock
		}
	}
}

// TenantContext tracks the organizations a community manager may act for and
// which one is active. The active id is always an element of the managed
// list. Selecting a tenant is a pointer update only.
type TenantContext struct {
	store  storage.Store
	roles  RoleSource
	loader TenantLoader

	writeMu  sync.Mutex
	mu       sync.RWMutex
	managed  []Tenant
	activeID int64

	observers observerSet[TenantObserver]

	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewTenantContext builds a tenant context. Call Restore to load persisted
// state.
func NewTenantContext(store storage.Store, roles RoleSource, loader TenantLoader, opts ...TenantOption) *TenantContext {
	t := &TenantContext{
		store:        store,
		roles:        roles,
		loader:       loader,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Restore loads the persisted list and selection. A persisted selection
// missing from the list is dropped.
func (t *TenantContext) Restore(ctx context.Context) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var managed []Tenant
	if _, err := storage.GetJSON(ctx, t.store, KeyManagedTenants, &managed); err != nil {
		t.logger.Error("discarding unreadable tenant list: %v", err)
		managed = nil
	}

	raw, ok, err := t.store.Get(ctx, KeyActiveTenantID)
	if err != nil {
		return err
	}
	var active int64
	if ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			active = id
		}
	}

	if active != 0 && indexOfTenant(managed, active) < 0 {
		active = 0
		if err := t.store.Delete(ctx, KeyActiveTenantID, KeyActiveTenant); err != nil {
			return err
		}
	}

	t.commit(managed, active)
	return nil
}

// Mode is multi-tenant iff the identity holds the community manager role.
func (t *TenantContext) Mode() TenantMode {
	if t.roles != nil && t.roles.Is(RoleCommunityManager) {
		return TenantModeMultiTenant
	}
	return TenantModeSingleOwner
}

// IsMultiTenantMode reports whether the identity manages several tenants.
func (t *TenantContext) IsMultiTenantMode() bool {
	return t.Mode() == TenantModeMultiTenant
}

// LoadManagedTenants fetches the managed list. It is a no-op outside
// multi-tenant mode. When nothing is selected the first entry becomes
// active.
func (t *TenantContext) LoadManagedTenants(ctx context.Context) ([]Tenant, error) {
	if !t.IsMultiTenantMode() {
		return nil, nil
	}

	loaded, err := t.loader.ManagedTenants(ctx)
	if err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	active := t.currentActive()
	if active != 0 && indexOfTenant(loaded, active) < 0 {
		t.logger.Info("selected tenant %d no longer managed", active)
		active = 0
	}
	if active == 0 && len(loaded) > 0 {
		active = loaded[0].ID
	}

	if err := storage.SetJSON(ctx, t.store, KeyManagedTenants, loaded); err != nil {
		return nil, err
	}
	if err := t.persistActive(ctx, loaded, active); err != nil {
		return nil, err
	}

	t.commit(loaded, active)
	return cloneTenants(loaded), nil
}

// SelectTenant makes tenant active. It must be part of the managed list.
// Selecting the active tenant again changes nothing.
func (t *TenantContext) SelectTenant(ctx context.Context, tenant Tenant) error {
	return t.SelectTenantID(ctx, tenant.ID)
}

// SelectTenantID is SelectTenant by id.
func (t *TenantContext) SelectTenantID(ctx context.Context, id int64) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	managed := t.ManagedTenants()
	if indexOfTenant(managed, id) < 0 {
		return NewKindError(ErrTenantNotManaged, 0, nil, map[string]any{
			"entreprise_id": id,
		})
	}
	if t.currentActive() == id {
		return nil
	}

	if err := t.persistActive(ctx, managed, id); err != nil {
		return err
	}
	t.commit(managed, id)

	recordActivity(ctx, t.activitySink, t.logger, t.now, ActivityEvent{
		EventType: ActivityEventTenantSelected,
		TenantID:  id,
	})
	return nil
}

// ActiveTenantID returns the selected tenant id.
func (t *TenantContext) ActiveTenantID() (int64, bool) {
	id := t.currentActive()
	return id, id != 0
}

// ActiveTenant returns the selected tenant record.
func (t *TenantContext) ActiveTenant() (Tenant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := indexOfTenant(t.managed, t.activeID); i >= 0 {
		return t.managed[i], true
	}
	return Tenant{}, false
}

// ManagedTenants returns a copy of the managed list.
func (t *TenantContext) ManagedTenants() []Tenant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneTenants(t.managed)
}

// State returns the latest committed snapshot.
func (t *TenantContext) State() TenantState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TenantState{
		Mode:     t.Mode(),
		Managed:  cloneTenants(t.managed),
		ActiveID: t.activeID,
	}
}

// Clear removes the list and the selection.
func (t *TenantContext) Clear(ctx context.Context) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.store.Delete(ctx, tenantKeys...); err != nil {
		return err
	}
	t.commit(nil, 0)
	return nil
}

// SessionChanged resets the in-memory state once the session is gone. The
// persisted entries were already removed by the session store.
func (t *TenantContext) SessionChanged(s Session) {
	if s.Authenticated() {
		return
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.RLock()
	empty := len(t.managed) == 0 && t.activeID == 0
	t.mu.RUnlock()
	if empty {
		return
	}
	t.commit(nil, 0)
}

// Subscribe registers o and returns the function removing it.
func (t *TenantContext) Subscribe(o TenantObserver) func() {
	if o == nil {
		return func() {}
	}
	return t.observers.add(o)
}

func (t *TenantContext) currentActive() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeID
}

func (t *TenantContext) persistActive(ctx context.Context, managed []Tenant, id int64) error {
	i := indexOfTenant(managed, id)
	if i < 0 {
		return t.store.Delete(ctx, KeyActiveTenantID, KeyActiveTenant)
	}
	if err := t.store.Set(ctx, KeyActiveTenantID, strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	return storage.SetJSON(ctx, t.store, KeyActiveTenant, managed[i])
}

// commit publishes the new state and notifies observers. Callers hold
// writeMu.
func (t *TenantContext) commit(managed []Tenant, active int64) {
	t.mu.Lock()
	t.managed = cloneTenants(managed)
	t.activeID = active
	t.mu.Unlock()

	state := t.State()
	for _, o := range t.observers.snapshot() {
		o.TenantChanged(state)
	}
}

func indexOfTenant(list []Tenant, id int64) int {
	if id == 0 {
		return -1
	}
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTenants(in []Tenant) []Tenant {
	if in == nil {
		return nil
	}
	return append([]Tenant(nil), in...)
}
