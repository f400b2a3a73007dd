package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// recordingServer answers every request with status and body and keeps the
// last request it saw.
func recordingServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest, *int32) {
	t.Helper()
	last := &capturedRequest{}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		last.Method = r.Method
		last.Path = r.URL.Path
		last.Query = r.URL.RawQuery
		last.Auth = r.Header.Get(common.AuthorizationHeader)
		last.Body = nil
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &last.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, last, &hits
}

func signedIn() *identity.Session {
	s := identity.NewSession()
	s.SetUser(identity.User{ID: "u1", Name: "ann", Token: identity.Token{AccessToken: "tok"}})
	return s
}

func TestListAll_DecodesEnvelopeAndSendsBearer(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"audits":[{"id":"a1"},{"id":"a2"}]}`)
	c := NewHTTPClient(srv.URL+"/", signedIn())

	recs, err := c.ListAll(context.Background(), common.CollectionAudits)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"id":"a1"}`, string(recs[0]))
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/audits", last.Path)
	assert.Equal(t, "Bearer tok", last.Auth)
}

func TestListAll_MissingEnvelopeField(t *testing.T) {
	srv, _, _ := recordingServer(t, http.StatusOK, `{"actions":[]}`)
	c := NewHTTPClient(srv.URL, signedIn())

	_, err := c.ListAll(context.Background(), common.CollectionAudits)
	assert.ErrorIs(t, err, ErrSyncFailure)
}

func TestNoCredential_ShortCircuits(t *testing.T) {
	srv, _, hits := recordingServer(t, http.StatusOK, `{}`)
	c := NewHTTPClient(srv.URL, identity.NewSession())
	ctx := context.Background()

	_, err := c.ListAll(ctx, common.CollectionAudits)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.Create(ctx, common.CollectionAudits, map[string]string{"id": "a"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.Update(ctx, common.CollectionAudits, "a", nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, c.Delete(ctx, common.CollectionAudits, "a"), ErrUnauthenticated)
	_, err = c.PresignPhotoUpload(ctx, "image/jpeg")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestGet_SendsIDQuery(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"id":"t 1","title":"x"}`)
	c := NewHTTPClient(srv.URL, signedIn())

	rec, err := c.Get(context.Background(), common.CollectionTemplates, "t 1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t 1","title":"x"}`, string(rec))
	assert.Equal(t, "id=t+1", last.Query)
}

func TestUpdate_MergesIDIntoPartial(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"id":"a1","location":"Dock"}`)
	c := NewHTTPClient(srv.URL, signedIn())

	_, err := c.Update(context.Background(), common.CollectionAudits, "a1", map[string]string{"location": "Dock"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, map[string]any{"id": "a1", "location": "Dock"}, last.Body)
}

func TestUpdate_NonObjectPartial(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", signedIn())
	_, err := c.Update(context.Background(), common.CollectionAudits, "a1", []int{1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete_SendsIDBody(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusNoContent, ``)
	c := NewHTTPClient(srv.URL, signedIn())

	require.NoError(t, c.Delete(context.Background(), common.CollectionActions, "x1"))
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/actions", last.Path)
	assert.Equal(t, map[string]any{"id": "x1"}, last.Body)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusForbidden, ErrUnauthenticated},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusInternalServerError, ErrSyncFailure},
		{http.StatusBadGateway, ErrSyncFailure},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv, _, _ := recordingServer(t, tc.status, `{"error":"nope"}`)
			c := NewHTTPClient(srv.URL, signedIn())

			_, err := c.Create(context.Background(), common.CollectionAudits, map[string]string{"id": "a"})
			require.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Body, "nope")
		})
	}
}

func TestTimeout_IsSyncFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(srv.URL, signedIn(), WithTimeout(50*time.Millisecond))

	_, err := c.ListAll(context.Background(), common.CollectionAudits)
	require.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrSyncFailure)
}

func TestNetworkFailure_IsSyncFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, signedIn())
	_, err := c.ListAll(context.Background(), common.CollectionAudits)
	assert.ErrorIs(t, err, ErrSyncFailure)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthCalls_DoNotNeedCredential(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"salt":"AQID","userId":"u9","accessToken":"jwt"}`)
	c := NewHTTPClient(srv.URL, identity.NewSession())
	ctx := context.Background()

	salt, err := c.GetSalt(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, salt)
	assert.Equal(t, "/auth/salt", last.Path)
	assert.Empty(t, last.Auth)

	res, err := c.Login(ctx, "ann", []byte{9})
	require.NoError(t, err)
	assert.Equal(t, &LoginResult{UserID: "u9", AccessToken: "jwt"}, res)
	assert.Equal(t, "CQ==", last.Body["verifier"])

	require.NoError(t, c.Register(ctx, "ann", []byte{1}, []byte{2}))
	assert.Equal(t, "/auth/register", last.Path)
	assert.Equal(t, "AQ==", last.Body["salt"])

	require.NoError(t, c.Ping(ctx))
	assert.Equal(t, "/health", last.Path)
}

func TestPresign(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"key":"photos/u1/k","url":"https://s3/put"}`)
	c := NewHTTPClient(srv.URL, signedIn())

	p, err := c.PresignPhotoUpload(context.Background(), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "photos/u1/k", p.Key)
	assert.Equal(t, "image/png", last.Body["contentType"])

	_, err = c.PresignPhotoDownload(context.Background(), "photos/u1/k")
	require.NoError(t, err)
	assert.Equal(t, "/photos/download-url", last.Path)
}

func TestRecords_TypedRoundTrip(t *testing.T) {
	srv, last, _ := recordingServer(t, http.StatusOK, `{"actions":[{"id":"x1","title":"Fix door","priority":"high","status":"open"}]}`)
	c := NewHTTPClient(srv.URL, signedIn())
	actions := NewRecords[models.Action](c, common.CollectionActions)

	got, err := actions.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
	assert.Nil(t, got[0].AuditID)

	require.NoError(t, actions.Upsert(context.Background(), got[0]))
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "x1", last.Body["id"])
	assert.Equal(t, "Fix door", last.Body["title"])
}

func TestRecords_UndecodableRecord(t *testing.T) {
	srv, _, _ := recordingServer(t, http.StatusOK, `{"audits":[{"id":"a1","score":"high"}]}`)
	c := NewHTTPClient(srv.URL, signedIn())

	_, err := NewRecords[models.Audit](c, common.CollectionAudits).ListAll(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
}
