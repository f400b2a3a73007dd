package orchestrator

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/defaults"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/auditkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// Load fills the three collections, preferring the remote store and
// falling back to the cache per collection. It never fails: with neither
// source usable a collection starts empty (templates keep the built-ins).
func (o *Orchestrator) Load(ctx context.Context) {
	o.mu.Lock()
	online := o.online
	o.mu.Unlock()
	o.load(ctx, online)
}

// Resume restores the cached view of a previous session and, when online,
// reconciles so that work done offline reaches the server before the
// remote view replaces it.
func (o *Orchestrator) Resume(ctx context.Context) {
	o.load(ctx, false)
	o.Reconcile(ctx)
}

func (o *Orchestrator) load(ctx context.Context, online bool) {
	o.loadHiddenDefaults(ctx)
	if o.meta != nil {
		if at, err := metadata.GetTime(ctx, o.meta, metadata.KeyLastSyncAt); err == nil && !at.IsZero() {
			o.mu.Lock()
			o.stats.LastSyncAt = at
			o.mu.Unlock()
		}
	}

	o.mu.Lock()
	o.setStatesLocked(StateLoading)
	o.setStatusLocked(StatusSyncing)
	o.mu.Unlock()

	templates, tState := loadCollection(ctx, o, online, o.remoteTemplates)
	audits, aState := loadCollection(ctx, o, online, o.remoteAudits)
	actions, xState := loadCollection(ctx, o, online, o.remoteActions)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.templates = o.mergeTemplates(templates)
	o.audits = dedupe(audits)
	o.actions = dedupe(actions)

	o.states[common.CollectionTemplates] = tState
	o.states[common.CollectionAudits] = aState
	o.states[common.CollectionActions] = xState

	for _, c := range common.Collections {
		if o.states[c] == StateLoadedRemote {
			o.persistLocked(ctx, c)
		}
	}

	switch {
	case tState == StateLoadedRemote && aState == StateLoadedRemote && xState == StateLoadedRemote:
		o.markSyncedLocked(ctx)
	case tState == StateError || aState == StateError || xState == StateError:
		o.setStatusLocked(StatusError)
	default:
		o.setStatusLocked(StatusDegraded)
	}
	o.log.Info(ctx, "collections loaded",
		"templates", tState, "audits", aState, "actions", xState,
		"status", o.status)
}

func loadCollection[T cloner[T]](ctx context.Context, o *Orchestrator, online bool, remote *client.Records[T]) ([]T, State) {
	collection := remote.Collection()
	if online {
		items, err := remote.ListAll(ctx)
		if err == nil {
			return items, StateLoadedRemote
		}
		o.mu.Lock()
		o.stats.LastError = err.Error()
		o.mu.Unlock()
		o.log.Warn(ctx, "remote load failed, using cache", "collection", collection, "error", err)
	}

	items, _, err := cache.Load[T](ctx, o.store, collection)
	if err != nil {
		o.mu.Lock()
		o.stats.CacheFailures++
		o.mu.Unlock()
		o.log.Error(ctx, "cache load failed, starting empty", "collection", collection, "error", err)
		return nil, StateError
	}
	return items, StateLoadedLocal
}

// Reconcile pushes every cached record as an upsert (built-in templates
// excluded) and then replaces local state with a full remote fetch. Calls
// made while one is running share its result. It is a no-op offline and
// never fails; the outcome is reported through Status and Stats.
func (o *Orchestrator) Reconcile(ctx context.Context) {
	_, _, _ = o.group.Do("reconcile", func() (any, error) {
		o.reconcile(ctx)
		return nil, nil
	})
}

func (o *Orchestrator) reconcile(ctx context.Context) {
	o.mu.Lock()
	if !o.online {
		o.mu.Unlock()
		o.log.Debug(ctx, "reconcile skipped while offline")
		return
	}
	o.reconciling = true
	o.touched = map[string]map[string]bool{}
	o.stats.Reconciles++
	o.setStatesLocked(StateSyncing)
	o.setStatusLocked(StatusSyncing)
	memTemplates := cloneAll(o.templates)
	memAudits := cloneAll(o.audits)
	memActions := cloneAll(o.actions)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.reconciling = false
		o.touched = nil
		o.mu.Unlock()
	}()

	templates := cachedOr(ctx, o, common.CollectionTemplates, memTemplates)
	audits := cachedOr(ctx, o, common.CollectionAudits, memAudits)
	actions := cachedOr(ctx, o, common.CollectionActions, memActions)

	if o.offloader != nil {
		for i, a := range audits {
			audits[i] = o.offload(ctx, a)
		}
	}

	isDefault := func(t models.Template) bool { return defaults.IsReserved(t.ID) }
	err := pushEach(ctx, o, o.remoteTemplates, templates, isDefault)
	if err == nil {
		err = pushEach(ctx, o, o.remoteAudits, audits, nil)
	}
	if err == nil {
		err = pushEach(ctx, o, o.remoteActions, actions, nil)
	}
	if err != nil {
		o.mu.Lock()
		o.setStatesLocked(StateError)
		o.setStatusLocked(StatusError)
		o.mu.Unlock()
		o.log.Warn(ctx, "reconcile aborted before pull", "error", err)
		return
	}

	pulledTemplates, tErr := o.remoteTemplates.ListAll(ctx)
	pulledAudits, aErr := o.remoteAudits.ListAll(ctx)
	pulledActions, xErr := o.remoteActions.ListAll(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if tErr == nil {
		pulled := overlay(pulledTemplates, o.templates, o.touched[common.CollectionTemplates])
		o.templates = o.mergeTemplates(pulled)
	}
	if aErr == nil {
		o.audits = dedupe(overlay(pulledAudits, o.audits, o.touched[common.CollectionAudits]))
	}
	if xErr == nil {
		o.actions = dedupe(overlay(pulledActions, o.actions, o.touched[common.CollectionActions]))
	}

	failed := false
	for c, err := range map[string]error{
		common.CollectionTemplates: tErr,
		common.CollectionAudits:    aErr,
		common.CollectionActions:   xErr,
	} {
		if err != nil {
			failed = true
			o.states[c] = StateError
			o.stats.LastError = err.Error()
			o.log.Warn(ctx, "reconcile pull failed", "collection", c, "error", err)
			continue
		}
		o.states[c] = StateLoadedRemote
		o.persistLocked(ctx, c)
	}

	if failed {
		o.setStatusLocked(StatusError)
		return
	}
	o.markSyncedLocked(ctx)
	o.log.Info(ctx, "reconciled",
		"templates", len(o.templates), "audits", len(o.audits), "actions", len(o.actions))
}

// cachedOr reads a collection from the cache, falling back to the given
// in-memory copy when the cache is unreadable or was never written.
func cachedOr[T cloner[T]](ctx context.Context, o *Orchestrator, collection string, mem []T) []T {
	items, ok, err := cache.Load[T](ctx, o.store, collection)
	if err != nil {
		o.log.Warn(ctx, "cache unreadable, pushing in-memory state", "collection", collection, "error", err)
		return mem
	}
	if !ok {
		return mem
	}
	return items
}

// pushEach upserts every record not skipped. Validation and not-found
// failures only drop that record; an authentication or transport failure
// stops the batch since the rest would fail the same way.
func pushEach[T models.Record](ctx context.Context, o *Orchestrator, remote *client.Records[T], items []T, skip func(T) bool) error {
	for _, rec := range items {
		if skip != nil && skip(rec) {
			continue
		}
		err := remote.Upsert(ctx, rec)
		if err == nil {
			continue
		}

		o.mu.Lock()
		o.stats.ReconcileItemFailures++
		o.stats.LastError = err.Error()
		o.mu.Unlock()
		o.log.Warn(ctx, "reconcile push failed",
			"collection", remote.Collection(), "id", rec.RecordID(), "error", err)

		if errors.Is(err, client.ErrUnauthenticated) || errors.Is(err, client.ErrSyncFailure) {
			return err
		}
	}
	return nil
}

// offload uploads an audit's pending photos and returns the audit to push.
// Keys obtained are also recorded on the in-memory copy so the bytes are
// not uploaded twice.
func (o *Orchestrator) offload(ctx context.Context, audit models.Audit) models.Audit {
	if audit.PendingPhotos() == 0 {
		return audit
	}
	out, err := o.offloader.Offload(ctx, audit)
	if err != nil {
		o.log.Warn(ctx, "photo offload failed", "audit", audit.ID, "error", err)
		return audit
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if i := indexOf(o.audits, audit.ID); i >= 0 && adoptPhotoKeys(&o.audits[i], out) {
		o.persistLocked(ctx, common.CollectionAudits)
	}
	return out
}

// adoptPhotoKeys copies storage keys from src onto the matching pending
// photos of dst and drops their inline bytes.
func adoptPhotoKeys(dst *models.Audit, src models.Audit) bool {
	keys := map[string]string{}
	for _, ps := range src.Photos {
		for _, p := range ps {
			if p.Key != "" {
				keys[p.ID] = p.Key
			}
		}
	}
	changed := false
	for q, ps := range dst.Photos {
		for i, p := range ps {
			if key, ok := keys[p.ID]; ok && p.Pending() {
				dst.Photos[q][i].Key = key
				dst.Photos[q][i].Data = nil
				changed = true
			}
		}
	}
	return changed
}

func (o *Orchestrator) markSyncedLocked(ctx context.Context) {
	o.stats.LastSyncAt = o.now()
	o.setStatusLocked(StatusSynced)
	if o.meta != nil {
		if err := metadata.SetTime(ctx, o.meta, metadata.KeyLastSyncAt, o.stats.LastSyncAt); err != nil {
			o.log.Warn(ctx, "save last sync time", "error", err)
		}
	}
}
