package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

// fakeRemote is an in-memory remote store with failure injection.
type fakeRemote struct {
	mu    sync.Mutex
	data  map[string]map[string]json.RawMessage
	order map[string][]string

	listErr   error
	writeErr  error
	rejectIDs map[string]error

	listCalls map[string]int
	creates   []string
	updates   []string
	deletes   []string

	gate    chan struct{}
	entered chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		data:      map[string]map[string]json.RawMessage{},
		order:     map[string][]string{},
		rejectIDs: map[string]error{},
		listCalls: map[string]int{},
	}
}

func (f *fakeRemote) seed(t *testing.T, collection string, recs ...models.Record) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		raw, err := json.Marshal(r)
		require.NoError(t, err)
		f.putLocked(collection, r.RecordID(), raw)
	}
}

func (f *fakeRemote) putLocked(collection, id string, raw json.RawMessage) {
	if f.data[collection] == nil {
		f.data[collection] = map[string]json.RawMessage{}
	}
	if _, ok := f.data[collection][id]; !ok {
		f.order[collection] = append(f.order[collection], id)
	}
	f.data[collection][id] = raw
}

func (f *fakeRemote) has(collection, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[collection][id]
	return ok
}

func (f *fakeRemote) record(collection, id string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[collection][id]
	if !ok {
		return client.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeRemote) calls(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[collection]
}

func (f *fakeRemote) ops() (creates, updates, deletes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.creates), slices.Clone(f.updates), slices.Clone(f.deletes)
}

func (f *fakeRemote) ListAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.listCalls[collection]++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]json.RawMessage, 0, len(f.order[collection]))
	for _, id := range f.order[collection] {
		out = append(out, f.data[collection][id])
	}
	return out, nil
}

func (f *fakeRemote) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[collection][id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return raw, nil
}

func (f *fakeRemote) write(collection, id string, record any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if err := f.rejectIDs[id]; err != nil {
		return nil, err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	f.putLocked(collection, id, raw)
	return raw, nil
}

func (f *fakeRemote) Create(ctx context.Context, collection string, record any) (json.RawMessage, error) {
	r, ok := record.(models.Record)
	if !ok {
		return nil, fmt.Errorf("unexpected record %T", record)
	}
	raw, err := f.write(collection, r.RecordID(), record)
	if err == nil {
		f.mu.Lock()
		f.creates = append(f.creates, collection+"/"+r.RecordID())
		f.mu.Unlock()
	}
	return raw, err
}

// Update merges top-level keys into the stored record the way the server's
// jsonb || does.
func (f *fakeRemote) Update(ctx context.Context, collection, id string, partial any) (json.RawMessage, error) {
	patch, err := json.Marshal(partial)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	var merged map[string]json.RawMessage
	if existing, ok := f.data[collection][id]; ok {
		_ = json.Unmarshal(existing, &merged)
	}
	f.mu.Unlock()
	if merged == nil {
		merged = map[string]json.RawMessage{}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}

	raw, err := f.write(collection, id, merged)
	if err == nil {
		f.mu.Lock()
		f.updates = append(f.updates, collection+"/"+id)
		f.mu.Unlock()
	}
	return raw, err
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	delete(f.data[collection], id)
	f.order[collection] = slices.DeleteFunc(f.order[collection], func(s string) bool { return s == id })
	f.deletes = append(f.deletes, collection+"/"+id)
	return nil
}

type fakeOffloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOffloader) Offload(ctx context.Context, a models.Audit) (models.Audit, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return a, f.err
	}
	out := a.Clone()
	for q, ps := range out.Photos {
		for i, p := range ps {
			if p.Pending() {
				out.Photos[q][i].Key = "photos/" + p.ID
				out.Photos[q][i].Data = nil
			}
		}
	}
	return out, nil
}

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type harness struct {
	remote *fakeRemote
	repos  *client.Repositories
	o      *Orchestrator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{remote: newFakeRemote(), repos: client.NewRepositories(db)}
	h.o = h.newOrchestrator(opts...)
	return h
}

// newOrchestrator builds a fresh instance over the same remote and cache,
// as after an app restart.
func (h *harness) newOrchestrator(opts ...Option) *Orchestrator {
	session := identity.NewSession()
	session.SetUser(identity.User{ID: "u1", Name: "ann", Token: identity.Token{AccessToken: "tok"}})
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
		WithMetadata(h.repos.Metadata),
	}
	return New(h.remote, h.repos.Cache, session, logging.Discard(), append(base, opts...)...)
}

func userTemplate(id string) models.Template {
	return models.Template{
		ID:    id,
		Title: "Dock inspection",
		Sections: []models.Section{{
			ID: "s1",
			Questions: []models.Question{
				{ID: "q1", Text: "Gate closed", Type: models.QuestionBoolean},
				{ID: "q2", Text: "Alarm armed", Type: models.QuestionBoolean, Critical: true},
			},
		}},
	}
}
