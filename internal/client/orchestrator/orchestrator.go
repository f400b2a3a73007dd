// Package orchestrator owns the in-memory audits, templates and actions and
// keeps them consistent with the on-device cache and the remote store.
//
// Every mutation is applied in memory first, then written through to the
// cache, then pushed to the remote store in the background when online. A
// failed push is logged and counted, never rolled back. Reconciliation
// pushes everything cached and then replaces local state with the remote
// view, so after it completes the remote copy of a record wins
// (last-writer-wins, no conflict detection).
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/defaults"
	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/auditkeeper/internal/client/scoring"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

// State is the lifecycle of one collection.
type State string

const (
	StateUnloaded     State = "unloaded"
	StateLoading      State = "loading"
	StateLoadedRemote State = "loaded_remote"
	StateLoadedLocal  State = "loaded_local"
	StateSyncing      State = "syncing"
	StateError        State = "error"
)

// Status is the sync indicator shown to the user.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSyncing  Status = "syncing"
	StatusSynced   Status = "synced"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Stats are diagnostic counters. Individual push failures are silent to
// the user and only show up here and in the log.
type Stats struct {
	Pushes                int
	PushFailures          int
	DeferredMutations     int
	Reconciles            int
	ReconcileItemFailures int
	CacheFailures         int
	LastSyncAt            time.Time
	LastError             string
}

// PhotoOffloader moves inline photo bytes out of an audit before it is
// pushed. It returns the audit to push; on failure the original is pushed.
type PhotoOffloader interface {
	Offload(ctx context.Context, audit models.Audit) (models.Audit, error)
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithDueDays sets how many days after completion derived actions fall due.
func WithDueDays(days int) Option {
	return func(o *Orchestrator) { o.dueDays = days }
}

func WithPhotoOffloader(p PhotoOffloader) Option {
	return func(o *Orchestrator) { o.offloader = p }
}

// WithMetadata enables persisting the last sync time and locally hidden
// built-in templates.
func WithMetadata(m metadata.Repository) Option {
	return func(o *Orchestrator) { o.meta = m }
}

// WithOnline sets the initial connectivity assumption (default true).
func WithOnline(online bool) Option {
	return func(o *Orchestrator) { o.online = online }
}

type Orchestrator struct {
	store     cache.Store
	meta      metadata.Repository
	identity  identity.Provider
	log       logging.Logger
	offloader PhotoOffloader
	now       func() time.Time
	newID     func() string
	dueDays   int

	remoteTemplates *client.Records[models.Template]
	remoteAudits    *client.Records[models.Audit]
	remoteActions   *client.Records[models.Action]

	mu             sync.Mutex
	templates      []models.Template
	audits         []models.Audit
	actions        []models.Action
	hiddenDefaults map[string]struct{}
	states         map[string]State
	status         Status
	online         bool
	stats          Stats
	reconciling    bool
	touched        map[string]map[string]bool

	subsMu  sync.Mutex
	subs    map[int]func(Status)
	nextSub int

	group  singleflight.Group
	pushes sync.WaitGroup
}

func New(remote client.Store, store cache.Store, id identity.Provider, log logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		identity:        id,
		log:             log.With("module", "orchestrator"),
		now:             time.Now,
		newID:           uuid.NewString,
		dueDays:         scoring.DefaultDueDays,
		remoteTemplates: client.NewRecords[models.Template](remote, common.CollectionTemplates),
		remoteAudits:    client.NewRecords[models.Audit](remote, common.CollectionAudits),
		remoteActions:   client.NewRecords[models.Action](remote, common.CollectionActions),
		hiddenDefaults:  map[string]struct{}{},
		states:          map[string]State{},
		status:          StatusIdle,
		online:          true,
		subs:            map[int]func(Status){},
	}
	for _, c := range common.Collections {
		o.states[c] = StateUnloaded
	}
	for _, opt := range opts {
		opt(o)
	}
	o.templates = o.visibleDefaults()
	return o
}

// Wait blocks until every background push started so far has finished.
func (o *Orchestrator) Wait() {
	o.pushes.Wait()
}

func (o *Orchestrator) Templates() []models.Template {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneAll(o.templates)
}

func (o *Orchestrator) Audits() []models.Audit {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneAll(o.audits)
}

func (o *Orchestrator) Actions() []models.Action {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneAll(o.actions)
}

func (o *Orchestrator) Template(id string) (models.Template, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := indexOf(o.templates, id); i >= 0 {
		return o.templates[i].Clone(), true
	}
	return models.Template{}, false
}

func (o *Orchestrator) Audit(id string) (models.Audit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := indexOf(o.audits, id); i >= 0 {
		return o.audits[i].Clone(), true
	}
	return models.Audit{}, false
}

func (o *Orchestrator) Action(id string) (models.Action, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := indexOf(o.actions, id); i >= 0 {
		return o.actions[i].Clone(), true
	}
	return models.Action{}, false
}

// ActionsForAudit returns the actions linked to auditID.
func (o *Orchestrator) ActionsForAudit(auditID string) []models.Action {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []models.Action
	for _, a := range o.actions {
		if a.AuditID != nil && *a.AuditID == auditID {
			out = append(out, a.Clone())
		}
	}
	return out
}

// State reports the lifecycle state of one collection.
func (o *Orchestrator) State(collection string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[collection]
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// SetOnline records a connectivity change. Going offline marks the status
// degraded; going online changes nothing until the next reconciliation.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	o.online = online
	if !online && o.status != StatusIdle {
		o.setStatusLocked(StatusDegraded)
	}
	o.mu.Unlock()
}

// Reset forgets the in-memory view after logout. Pushes still in flight are
// left to finish; call Wait first to be sure none land afterwards.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hiddenDefaults = map[string]struct{}{}
	o.templates = o.visibleDefaults()
	o.audits = nil
	o.actions = nil
	o.stats = Stats{}
	o.setStatesLocked(StateUnloaded)
	o.setStatusLocked(StatusIdle)
}

// Subscribe registers fn to be called with every status change, in order.
// fn runs while the orchestrator is locked: it must be quick and must not
// call back into the orchestrator. The returned function removes the
// subscription.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.subsMu.Lock()
		delete(o.subs, id)
		o.subsMu.Unlock()
	}
}

func (o *Orchestrator) setStatusLocked(s Status) {
	if o.status == s {
		return
	}
	o.status = s

	o.subsMu.Lock()
	fns := make([]func(Status), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.subsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (o *Orchestrator) setStatesLocked(s State) {
	for _, c := range common.Collections {
		o.states[c] = s
	}
}

func (o *Orchestrator) visibleDefaults() []models.Template {
	var out []models.Template
	for _, t := range defaults.Templates() {
		if _, hidden := o.hiddenDefaults[t.ID]; !hidden {
			out = append(out, t)
		}
	}
	return out
}

// mergeTemplates puts the visible built-ins first, then records whose id is
// not taken and that do not shadow a hidden built-in.
func (o *Orchestrator) mergeTemplates(records []models.Template) []models.Template {
	merged := defaults.Merge(o.visibleDefaults(), records)
	out := merged[:0]
	for _, t := range merged {
		if _, hidden := o.hiddenDefaults[t.ID]; hidden {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (o *Orchestrator) loadHiddenDefaults(ctx context.Context) {
	if o.meta == nil {
		return
	}
	raw, err := o.meta.Get(ctx, metadata.KeyHiddenDefaults)
	if err != nil || raw == nil {
		if err != nil {
			o.log.Warn(ctx, "read hidden templates", "error", err)
		}
		return
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		o.log.Warn(ctx, "decode hidden templates", "error", err)
		return
	}
	o.mu.Lock()
	o.hiddenDefaults = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		o.hiddenDefaults[id] = struct{}{}
	}
	o.mu.Unlock()
}

func (o *Orchestrator) saveHiddenDefaultsLocked(ctx context.Context) {
	if o.meta == nil {
		return
	}
	ids := make([]string, 0, len(o.hiddenDefaults))
	for id := range o.hiddenDefaults {
		ids = append(ids, id)
	}
	raw, _ := json.Marshal(ids)
	if err := o.meta.Set(ctx, metadata.KeyHiddenDefaults, raw); err != nil {
		o.stats.CacheFailures++
		o.log.Error(ctx, "save hidden templates", "error", err)
	}
}

// persistLocked writes the whole collection to the cache. A failure is
// logged and counted; the in-memory state stays authoritative.
func (o *Orchestrator) persistLocked(ctx context.Context, collection string) {
	var err error
	switch collection {
	case common.CollectionTemplates:
		err = cache.Save(ctx, o.store, collection, o.templates)
	case common.CollectionAudits:
		err = cache.Save(ctx, o.store, collection, o.audits)
	case common.CollectionActions:
		err = cache.Save(ctx, o.store, collection, o.actions)
	}
	if err != nil {
		o.stats.CacheFailures++
		o.log.Error(ctx, "cache write failed", "collection", collection, "error", err)
	}
}

// pushLocked starts a best-effort remote call when online. It is never
// cancelled and its failure never touches local state.
func (o *Orchestrator) pushLocked(ctx context.Context, collection, id, op string, fn func(context.Context) error) {
	if !o.online {
		o.stats.DeferredMutations++
		return
	}
	o.stats.Pushes++
	o.pushes.Add(1)
	pctx := context.WithoutCancel(ctx)
	go func() {
		defer o.pushes.Done()
		if err := fn(pctx); err != nil {
			o.mu.Lock()
			o.stats.PushFailures++
			o.stats.LastError = err.Error()
			o.mu.Unlock()
			o.log.Warn(pctx, "push failed", "collection", collection, "id", id, "op", op, "error", err)
		}
	}()
}

// touchLocked remembers a mutation made while a reconciliation is in
// flight so the pulled view does not undo it.
func (o *Orchestrator) touchLocked(collection, id string, deleted bool) {
	if !o.reconciling {
		return
	}
	if o.touched[collection] == nil {
		o.touched[collection] = map[string]bool{}
	}
	o.touched[collection][id] = deleted
}

func (o *Orchestrator) creator() string {
	if o.identity == nil {
		return ""
	}
	if u := o.identity.CurrentUser(); u != nil {
		return u.Name
	}
	return ""
}
