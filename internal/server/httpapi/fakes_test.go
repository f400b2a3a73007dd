package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
	"github.com/dmitrijs2005/auditkeeper/internal/server/auth"
	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
	"github.com/dmitrijs2005/auditkeeper/internal/server/services"
)

var testSecret = []byte("test-secret")

type fakeUser struct {
	id       string
	salt     []byte
	verifier []byte
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]fakeUser
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]fakeUser{}}
}

func (f *fakeUsers) GetSalt(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[name]; ok {
		return u.salt, nil
	}
	return []byte("decoy"), nil
}

func (f *fakeUsers) Register(ctx context.Context, name string, salt, verifier []byte) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return nil, common.ErrorValidation
	}
	if _, ok := f.users[name]; ok {
		return nil, common.ErrorConflict
	}
	u := fakeUser{id: "id-" + name, salt: salt, verifier: verifier}
	f.users[name] = u
	return &models.User{ID: u.id, UserName: name}, nil
}

func (f *fakeUsers) Login(ctx context.Context, name string, verifier []byte) (*services.LoginResult, error) {
	f.mu.Lock()
	u, ok := f.users[name]
	f.mu.Unlock()
	if !ok || string(u.verifier) != string(verifier) {
		return nil, common.ErrorUnauthorized
	}
	tok, err := auth.GenerateToken(u.id, testSecret, time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{UserID: u.id, AccessToken: tok}, nil
}

func (f *fakeUsers) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, testSecret)
}

// fakeRecords mirrors RecordService semantics in memory.
type fakeRecords struct {
	mu    sync.Mutex
	data  map[string]map[string]any
	order []string
	err   error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{data: map[string]map[string]any{}}
}

func key(userID, collection, id string) string { return userID + "|" + collection + "|" + id }

func parseDoc(body []byte) (map[string]any, string, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, "", common.ErrorValidation
	}
	id, _ := doc["id"].(string)
	if id == "" {
		return nil, "", common.ErrorValidation
	}
	return doc, id, nil
}

func (f *fakeRecords) List(ctx context.Context, userID, collection string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]json.RawMessage, 0)
	for _, k := range f.order {
		if doc, ok := f.data[k]; ok && strings.HasPrefix(k, userID+"|"+collection+"|") {
			b, _ := json.Marshal(doc)
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRecords) Get(ctx context.Context, userID, collection, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.data[key(userID, collection, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	b, _ := json.Marshal(doc)
	return b, nil
}

func (f *fakeRecords) Create(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error) {
	doc, id, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(userID, collection, id)
	if _, ok := f.data[k]; ok {
		return nil, common.ErrorConflict
	}
	f.data[k] = doc
	f.order = append(f.order, k)
	return body, nil
}

func (f *fakeRecords) Update(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error) {
	patch, id, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(userID, collection, id)
	doc, ok := f.data[k]
	if !ok {
		doc = map[string]any{}
		f.order = append(f.order, k)
	}
	for field, v := range patch {
		doc[field] = v
	}
	f.data[k] = doc
	b, _ := json.Marshal(doc)
	return b, nil
}

func (f *fakeRecords) Delete(ctx context.Context, userID, collection string, body []byte) error {
	_, id, err := parseDoc(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(userID, collection, id)
	if _, ok := f.data[k]; !ok {
		return common.ErrorNotFound
	}
	delete(f.data, k)
	return nil
}

type fakePhotos struct {
	lastUser        string
	lastContentType string
}

func (f *fakePhotos) PresignUpload(ctx context.Context, userID, contentType string) (string, string, error) {
	f.lastUser, f.lastContentType = userID, contentType
	return "users/" + userID + "/photos/p1", "http://storage/put/p1", nil
}

func (f *fakePhotos) PresignDownload(ctx context.Context, userID, key string) (string, error) {
	f.lastUser = userID
	if key != "users/"+userID+"/photos/p1" {
		return "", common.ErrorUnauthorized
	}
	return "http://storage/get/p1", nil
}

type harness struct {
	srv     *httptest.Server
	users   *fakeUsers
	records *fakeRecords
	photos  *fakePhotos
}

func newHarness(t *testing.T, ready Checker) *harness {
	t.Helper()
	h := &harness{users: newFakeUsers(), records: newFakeRecords(), photos: &fakePhotos{}}
	s := NewServer("", logging.Discard(), h.users, h.records, h.photos, ready)
	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}
