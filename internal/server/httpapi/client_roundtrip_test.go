package httpapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteClient_AgainstServer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	session := identity.NewSession()
	c := client.NewHTTPClient(h.srv.URL, session, client.WithHTTPClient(h.srv.Client()))

	require.NoError(t, c.Ping(ctx))

	// no session: short-circuits before the network
	_, err := c.ListAll(ctx, "audits")
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	require.NoError(t, c.Register(ctx, "alice", []byte("salt"), []byte("ver")))
	require.ErrorIs(t, c.Register(ctx, "alice", []byte("salt"), []byte("ver")), client.ErrValidation)

	salt, err := c.GetSalt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("salt"), salt)

	_, err = c.Login(ctx, "alice", []byte("bad"))
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	res, err := c.Login(ctx, "alice", []byte("ver"))
	require.NoError(t, err)
	session.SetUser(identity.User{ID: res.UserID, Name: "alice", Token: identity.Token{AccessToken: res.AccessToken}})

	_, err = c.Create(ctx, "actions", map[string]any{"id": "x1", "title": "Fix door", "status": "open"})
	require.NoError(t, err)

	updated, err := c.Update(ctx, "actions", "x1", map[string]any{"status": "done"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x1","title":"Fix door","status":"done"}`, string(updated))

	got, err := c.Get(ctx, "actions", "x1")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(got, &doc))
	assert.Equal(t, "done", doc["status"])

	all, err := c.ListAll(ctx, "actions")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, c.Delete(ctx, "actions", "x1"))
	_, err = c.Get(ctx, "actions", "x1")
	require.ErrorIs(t, err, client.ErrNotFound)

	up, err := c.PresignPhotoUpload(ctx, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "users/id-alice/photos/p1", up.Key)

	down, err := c.PresignPhotoDownload(ctx, up.Key)
	require.NoError(t, err)
	assert.Equal(t, "http://storage/get/p1", down.URL)

	// a forged token is rejected
	session.SetUser(identity.User{ID: "x", Token: identity.Token{AccessToken: "forged"}})
	_, err = c.ListAll(ctx, "actions")
	require.ErrorIs(t, err, client.ErrUnauthenticated)
}
